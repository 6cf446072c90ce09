package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// reDelay recognizes "<lead-in>? <quantity> <unit>", e.g. "within 4.5 weeks",
// "takes three months", "lead time of 12 days". Quantities are numeric
// literals (decimals allowed) or the spelled-out words one..twenty.
var reDelay = regexp.MustCompile(`(?i)(?:(?:in|within|after|about|around|approximately|roughly|another|up\s*to)\s+|(?:take|takes|needs|need|lead\s*time\s*of)\s+)?` +
	`(\d+(?:\.\d+)?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty)` +
	`\s+(day|week|month|year)s?`)

var wordToNumber = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

var unitDays = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
	"year":  365,
}

// ExtractDelay parses the first delay phrase in the text into a day count,
// rounding up so a "4.5 weeks" promise never shrinks to an on-time 31 days.
// A nil result means no delay phrase was found, which is not the same as a
// zero-day delay.
func ExtractDelay(text string) *int {
	m := reDelay.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	var qty float64
	if n, ok := wordToNumber[strings.ToLower(m[1])]; ok {
		qty = float64(n)
	} else {
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		qty = parsed
	}

	days := int(math.Ceil(qty * float64(unitDays[strings.ToLower(m[2])])))
	return &days
}
