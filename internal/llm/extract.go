package llm

import (
	"regexp"
	"strconv"
)

var (
	reTaggedAnswer = regexp.MustCompile(`(?i)<ANSWER>\s*(-1|0|1)\s*</ANSWER>`)
	reBareAnswer   = regexp.MustCompile(`-1|0|1`)
)

// ExtractVerdict pulls the raw -1/0/1 vote out of a model response.
// The tagged form wins over any bare digit; a bare first occurrence is
// accepted as fallback. Returns a *ParseError when neither is present.
func ExtractVerdict(response string) (int, error) {
	if m := reTaggedAnswer.FindStringSubmatch(response); m != nil {
		return strconv.Atoi(m[1])
	}
	if m := reBareAnswer.FindString(response); m != "" {
		return strconv.Atoi(m)
	}
	return 0, &ParseError{Response: response}
}
