package leak

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// asciiDigits folds Arabic-Indic and Extended Arabic-Indic digits to ASCII.
var asciiDigits = runes.Map(func(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return r
})

// Normalize folds text into the form the rules match against: compatibility
// normalized, narrow width, ASCII digits, lower case, with format runes
// (zero-width spaces and joiners, soft hyphens, BOMs) removed so they cannot
// split a phone number or address.
func Normalize(text string) string {
	t := transform.Chain(norm.NFKC, width.Fold, asciiDigits, runes.Remove(runes.In(unicode.Cf)))
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}
