package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldText lower-cases the input and strips combining diacritics,
// so "Neskladem, MOŽNÁ náhrada" becomes "neskladem, mozna nahrada".
func FoldText(input string) string {
	folded, _, err := transform.String(foldChain, input)
	if err != nil {
		folded = input
	}
	return strings.ToLower(folded)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}
