package classify

import (
	"context"
	"errors"
	"testing"

	"replyrouter/internal"
	"replyrouter/internal/llm"
)

func TestClassifySingleMode(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){vote(1)}}
	c := New(src, Config{Mode: ModeSingle})

	got, err := c.Classify(context.Background(), "Yes, we can ship within 12 days.", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != internal.VerdictPositive {
		t.Fatalf("got %s want positive", got)
	}
	if src.calls != 1 {
		t.Fatalf("calls=%d want 1", src.calls)
	}
}

func TestClassifyNormalizationOverridesVote(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){vote(1)}}
	c := New(src, Config{})

	got, err := c.Classify(context.Background(), "Sorry, we are unable to assist with construction materials.", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != internal.VerdictNegative {
		t.Fatalf("got %s want negative", got)
	}
}

func TestClassifyEnsembleMode(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){vote(1), vote(-1), vote(1), vote(-1), vote(1)}}
	c := New(src, Config{Mode: ModeEnsemble, EnsembleN: 4})

	// Votes split 2/2 between the extremes, the median lands on neutral.
	got, err := c.Classify(context.Background(), "Thanks for reaching out.", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != internal.VerdictNeutral {
		t.Fatalf("got %s want neutral", got)
	}
}

func TestClassifyRetryModeRetriesParseErrors(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){
		fail(&llm.ParseError{Response: "??"}),
		fail(&llm.ParseError{Response: "??"}),
		vote(0),
	}}
	c := New(src, Config{Mode: ModeRetry, MaxParseRetry: 3})

	got, err := c.Classify(context.Background(), "Thanks for reaching out.", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != internal.VerdictNeutral {
		t.Fatalf("got %s want neutral", got)
	}
	if src.calls != 3 {
		t.Fatalf("calls=%d want 3", src.calls)
	}
}

func TestClassifyRetryModeGivesUpAfterBudget(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){fail(&llm.ParseError{Response: "??"})}}
	c := New(src, Config{Mode: ModeRetry, MaxParseRetry: 2})

	_, err := c.Classify(context.Background(), "Thanks.", Options{})
	var pe *llm.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("calls=%d want 3 (initial + 2 retries)", src.calls)
	}
}

func TestClassifyRetryModeDoesNotRetryTransport(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){fail(&llm.TransportError{Err: errors.New("down")})}}
	c := New(src, Config{Mode: ModeRetry})

	_, err := c.Classify(context.Background(), "Thanks.", Options{})
	var te *llm.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("calls=%d want 1", src.calls)
	}
}

func TestClassifyUnknownMode(t *testing.T) {
	src := &scriptedSource{results: []func() (int, error){vote(0)}}
	c := New(src, Config{})

	_, err := c.Classify(context.Background(), "Thanks.", Options{Mode: Mode("crewai")})
	var um *UnknownModeError
	if !errors.As(err, &um) {
		t.Fatalf("expected UnknownModeError, got %v", err)
	}
}

func TestClassifyDeadlineOptions(t *testing.T) {
	reply := "We can dispatch in two weeks."
	sent, err := ParseDate("2025-09-10")
	if err != nil {
		t.Fatal(err)
	}
	deadline, err := ParseDate("2025-09-01")
	if err != nil {
		t.Fatal(err)
	}

	src := &scriptedSource{results: []func() (int, error){vote(1)}}
	c := New(src, Config{})

	got, err := c.Classify(context.Background(), reply, Options{Deadline: &deadline, Sent: &sent})
	if err != nil {
		t.Fatal(err)
	}
	if got != internal.VerdictPositiveOutOfTerm {
		t.Fatalf("got %s want positive_out_of_term", got)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2025-09-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseDate("2025-09-01T12:30:00Z"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseDate("next tuesday"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
