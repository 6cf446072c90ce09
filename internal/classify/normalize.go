package classify

import (
	"time"

	"replyrouter/internal"
)

// Normalize reconciles the model's raw vote against the lexical and temporal
// evidence in the reply and returns the final verdict. It is a pure, total
// function: any integer vote and any text yield a verdict, never an error.
//
// Override order, first hit wins:
//  1. hard decline language forces negative;
//  2. stock-out forces negative unless an alternative or supply offer
//     softens it to a neutral lean;
//  3. an affirmative vote with hedging/substitution language drops to neutral;
//  4. a stated delay is measured against the deadline (sent + delay) when one
//     is given, else against the static lead limit;
//  5. real fulfillment claims resolve to out-of-term or positive by lateness;
//  6. a neutral supply offer that only names a week/month/year horizon is
//     treated as out-of-term rather than plain neutral;
//  7. anything left maps straight from the vote.
func Normalize(raw int, reply string, limitDays int, deadline *time.Time, sent time.Time) internal.Verdict {
	sig := DetectSignals(reply)
	val := raw

	if sig.HardDecline {
		return internal.VerdictNegative
	}

	if sig.StockOut {
		if sig.Alternative || sig.CanSupply {
			val = 0
		} else {
			return internal.VerdictNegative
		}
	}

	if val == 1 && (sig.Uncertain || sig.Alternative) {
		val = 0
	}

	late := false
	if delay := ExtractDelay(reply); delay != nil {
		late = *delay > limitDays
		if deadline != nil {
			late = sent.AddDate(0, 0, *delay).After(*deadline)
		}
	}

	if !sig.Alternative {
		if late && val != -1 {
			return internal.VerdictPositiveOutOfTerm
		}
		if !late && sig.CanSupply {
			return internal.VerdictPositive
		}
	}

	if val == 0 && sig.CanSupply && sig.VagueUnit {
		return internal.VerdictPositiveOutOfTerm
	}

	return internal.VerdictFromScore(val)
}
