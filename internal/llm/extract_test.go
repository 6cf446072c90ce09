package llm

import (
	"errors"
	"testing"
)

func TestExtractVerdictTagged(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     int
	}{
		{name: "positive", response: "<ANSWER>1</ANSWER>", want: 1},
		{name: "negative", response: "Sure thing. <ANSWER>-1</ANSWER>", want: -1},
		{name: "whitespace in tag", response: "<ANSWER> 0 </ANSWER>", want: 0},
		{name: "lowercase tag", response: "<answer>1</answer>", want: 1},
		{name: "tag wins over earlier bare digit", response: "score 0 overall, <ANSWER>1</ANSWER>", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractVerdict(tc.response)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestExtractVerdictBareFallback(t *testing.T) {
	got, err := ExtractVerdict("I would say -1 because they refuse.")
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Fatalf("got %d want -1", got)
	}
}

func TestExtractVerdictNoToken(t *testing.T) {
	_, err := ExtractVerdict("cannot decide, sorry")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
