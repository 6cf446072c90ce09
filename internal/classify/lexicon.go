package classify

import (
	"regexp"

	"replyrouter/internal/util"
)

// Lexical signal matchers. All patterns run against folded text
// (lower-case, diacritics stripped), so the Czech terms appear here in
// their folded spelling. Whole-word bounds keep "uncertain" from firing
// inside "uncertainty" and the like.
var (
	reHardDecline = regexp.MustCompile(`\b(unable\s+to|not\s+able\s+to|must\s+decline|no\s+capacity|cannot\s+assist)\b`)

	reStockOut = regexp.MustCompile(`\b(no\s+stock|out\s+of\s+stock|neskladem)\b`)

	reUncertain = regexp.MustCompile(`\b((i['’]?m\s+)?not\s+sure|maybe|perhaps|depends|uncertain|nejsem\s+si\s+jist\w*|mozna)\b`)

	reAlternative = regexp.MustCompile(`\b(similar|alternative|variant|option|colou?r|instead|other\s+product|substitute|upgraded|jiny\s+vyrobek|nahrada)\b`)

	reCanSupply = regexp.MustCompile(`\b(we\s+can\s+(supply|ship|deliver|dispatch|provide)|can\s+ship|able\s+to\s+supply|will\s+dispatch|dispatch\s+in|ship\s+in|deliver\s+in|muzeme\s+dodat)\b`)

	reVagueUnit = regexp.MustCompile(`\b(week|month|year)s?\b`)
)

// Signals carries the per-category lexical matches for one reply.
type Signals struct {
	HardDecline bool
	StockOut    bool
	Uncertain   bool
	Alternative bool
	CanSupply   bool
	VagueUnit   bool
}

// DetectSignals folds the reply and evaluates every matcher once.
func DetectSignals(reply string) Signals {
	text := util.FoldText(reply)
	return Signals{
		HardDecline: reHardDecline.MatchString(text),
		StockOut:    reStockOut.MatchString(text),
		Uncertain:   reUncertain.MatchString(text),
		Alternative: reAlternative.MatchString(text),
		CanSupply:   reCanSupply.MatchString(text),
		VagueUnit:   reVagueUnit.MatchString(text),
	}
}
