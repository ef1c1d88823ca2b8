// Package normalize canonicalizes Japanese drug names so that spellings from different
// publishers compare equal.
package normalize

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dashes are folded to ASCII hyphen-minus.
var dashes = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2010, Hi: 0x2015, Stride: 1},
		{Lo: 0x2212, Hi: 0x2212, Stride: 1},
		{Lo: 0xfe58, Hi: 0xfe58, Stride: 1},
		{Lo: 0xfe63, Hi: 0xfe63, Stride: 1},
		{Lo: 0xff0d, Hi: 0xff0d, Stride: 1},
	},
})

func chain() transform.Transformer {
	// Removing a space can bring a combining mark next to a base character, so NFKC runs
	// again afterwards to keep Name idempotent.
	return transform.Chain(
		norm.NFKC,
		runes.Remove(runes.In(unicode.White_Space)),
		norm.NFKC,
		runes.Map(func(r rune) rune {
			if dashes.Contains(r) {
				return '-'
			}
			return r
		}),
	)
}

// Name unifies character width, strips all whitespace and folds dash variants.
// Name(Name(s)) == Name(s) for every s.
func Name(s string) string {
	if s == "" {
		return s
	}
	out, _, err := transform.String(chain(), s)
	if err != nil {
		return s
	}
	return out
}
