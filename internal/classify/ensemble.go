package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"replyrouter/internal/llm"
)

// EnsembleExhausted means every vote in an ensemble run failed. The caller
// must surface it; it is never resolved to a default verdict.
type EnsembleExhausted struct {
	Attempts int
	Failures []error
}

func (e *EnsembleExhausted) Error() string {
	return fmt.Sprintf("all %d ensemble votes failed: %v", e.Attempts, errors.Join(e.Failures...))
}

func (e *EnsembleExhausted) Unwrap() []error { return e.Failures }

// ensembleVote collects n raw votes from the source. Individual parse and
// transport failures are dropped from the tally but recorded; any other
// error (context cancellation and the like) aborts immediately. Surviving
// votes resolve by unanimity, otherwise by integer median, which settles a
// -1/1 split on 0 instead of picking an extreme.
func ensembleVote(ctx context.Context, source VerdictSource, reply string, n int) (int, error) {
	votes := make([]int, 0, n)
	var failures []error

	for i := 0; i < n; i++ {
		vote, err := source.Verdict(ctx, reply)
		if err != nil {
			if isRecoverable(err) {
				failures = append(failures, err)
				continue
			}
			return 0, err
		}
		votes = append(votes, vote)
	}

	if len(votes) == 0 {
		return 0, &EnsembleExhausted{Attempts: n, Failures: failures}
	}

	return aggregateVotes(votes), nil
}

func aggregateVotes(votes []int) int {
	unanimous := true
	for _, v := range votes[1:] {
		if v != votes[0] {
			unanimous = false
			break
		}
	}
	if unanimous {
		return votes[0]
	}

	sorted := append([]int(nil), votes...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func isRecoverable(err error) bool {
	var pe *llm.ParseError
	var te *llm.TransportError
	return errors.As(err, &pe) || errors.As(err, &te)
}
