package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"replyrouter/internal"
	"replyrouter/internal/llm"
)

// Mode selects how the raw model vote is obtained.
type Mode string

const (
	// ModeSingle issues exactly one model call.
	ModeSingle Mode = "single"
	// ModeEnsemble collects several votes and aggregates them.
	ModeEnsemble Mode = "ensemble"
	// ModeRetry is a single call re-issued on unparseable responses,
	// bounded by Config.MaxParseRetry. Transport failures are not retried
	// here; they already carry the client's own backoff.
	ModeRetry Mode = "retry"
)

// UnknownModeError flags a mode string outside single/ensemble/retry.
// It is a configuration error, never retried.
type UnknownModeError struct {
	Mode string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown classifier mode: %q", e.Mode)
}

// VerdictSource produces one raw -1/0/1 vote per call. Implementations may
// fail with *llm.ParseError or *llm.TransportError; both are recoverable.
type VerdictSource interface {
	Verdict(ctx context.Context, reply string) (int, error)
}

type Config struct {
	Mode          Mode
	LeadLimitDays int
	EnsembleN     int
	MaxParseRetry int
}

// Classifier is the public entry point: it obtains a raw vote in the
// configured mode and funnels it through Normalize exactly once. It holds
// no mutable state, so one instance serves concurrent calls.
type Classifier struct {
	source VerdictSource
	cfg    Config
}

func New(source VerdictSource, cfg Config) *Classifier {
	if cfg.Mode == "" {
		cfg.Mode = ModeSingle
	}
	if cfg.LeadLimitDays <= 0 {
		cfg.LeadLimitDays = 14
	}
	if cfg.EnsembleN <= 0 {
		cfg.EnsembleN = 5
	}
	if cfg.MaxParseRetry <= 0 {
		cfg.MaxParseRetry = 3
	}
	return &Classifier{source: source, cfg: cfg}
}

// Options carries the per-call inputs. Zero values fall back to the
// classifier's configuration; a nil Sent means today.
type Options struct {
	Mode          Mode
	LeadLimitDays int
	Deadline      *time.Time
	Sent          *time.Time
}

// ParseDate accepts an ISO-8601 date (2025-09-01) or an RFC3339 timestamp;
// only the date part participates in deadline arithmetic.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}

// Classify runs the configured (or per-call overridden) vote strategy on the
// reply and returns the final verdict. Vote failures propagate unmodified;
// a failed classification is never defaulted to a verdict.
func (c *Classifier) Classify(ctx context.Context, reply string, opts Options) (internal.Verdict, error) {
	mode := c.cfg.Mode
	if opts.Mode != "" {
		mode = opts.Mode
	}

	raw, err := c.rawVerdict(ctx, reply, mode)
	if err != nil {
		return "", err
	}

	limit := c.cfg.LeadLimitDays
	if opts.LeadLimitDays > 0 {
		limit = opts.LeadLimitDays
	}

	sent := time.Now().UTC().Truncate(24 * time.Hour)
	if opts.Sent != nil {
		sent = opts.Sent.UTC().Truncate(24 * time.Hour)
	}

	return Normalize(raw, reply, limit, opts.Deadline, sent), nil
}

func (c *Classifier) rawVerdict(ctx context.Context, reply string, mode Mode) (int, error) {
	switch mode {
	case ModeSingle:
		return c.source.Verdict(ctx, reply)
	case ModeEnsemble:
		return ensembleVote(ctx, c.source, reply, c.cfg.EnsembleN)
	case ModeRetry:
		return c.retryVerdict(ctx, reply)
	default:
		return 0, &UnknownModeError{Mode: string(mode)}
	}
}

func (c *Classifier) retryVerdict(ctx context.Context, reply string) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxParseRetry; attempt++ {
		vote, err := c.source.Verdict(ctx, reply)
		if err == nil {
			return vote, nil
		}
		var pe *llm.ParseError
		if !errors.As(err, &pe) {
			return 0, err
		}
		lastErr = err
	}
	return 0, lastErr
}
