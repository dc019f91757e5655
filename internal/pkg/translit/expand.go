package translit

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mg52/bizsearch/internal/pkg/keys"
)

// Expand returns every Latin spelling of query in lowercase, titlecase and
// uppercase. Unmapped characters pass through unchanged. The result is empty
// when nothing but whitespace or viramas remains.
//
// The number of raw expansions is the product of the alternatives of each
// grapheme; use Count to bound it before calling Expand on untrusted input.
func Expand(query string) *keys.Keys {
	out := keys.NewKeys()
	if query == "" {
		return out
	}

	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)

	for _, word := range expandRaw(query) {
		word = Trim(word)
		if word == "" {
			continue
		}
		l := lower.String(word)
		out.Insert(l)
		out.Insert(titlecase(l, upper))
		out.Insert(upper.String(l))
	}
	return out
}

// expandRaw builds the cartesian product of per-grapheme romanizations.
func expandRaw(query string) []string {
	runes := []rune(query)
	results := []string{""}

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if conjunct(runes, i) {
			first, second := phoneticMap[c], phoneticMap[runes[i+2]]
			joined := make([]string, 0, len(results)*len(first)*len(second))
			for _, prefix := range results {
				for _, a := range first {
					for _, b := range second {
						joined = append(joined, prefix+a+b)
					}
				}
			}
			results = joined
			i += 2
			continue
		}

		if c == Virama {
			continue
		}

		alts := alternatives(c)
		next := make([]string, 0, len(results)*len(alts))
		for _, prefix := range results {
			for _, alt := range alts {
				next = append(next, prefix+alt)
			}
		}
		results = next
	}

	return results
}

// Count returns how many raw expansions Expand would build for query,
// saturating at math.MaxInt.
func Count(query string) int {
	runes := []rune(query)
	total := 1

	mul := func(n int) {
		if total > math.MaxInt/n {
			total = math.MaxInt
			return
		}
		total *= n
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case conjunct(runes, i):
			mul(len(phoneticMap[c]))
			mul(len(phoneticMap[runes[i+2]]))
			i += 2
		case c == Virama:
		default:
			mul(len(alternatives(c)))
		}
	}
	return total
}

// titlecase uppercases the first rune of an already lowercased word.
func titlecase(lowered string, upper cases.Caser) string {
	for i := range lowered {
		if i == 0 {
			continue
		}
		return upper.String(lowered[:i]) + lowered[i:]
	}
	return upper.String(lowered)
}

// Trim strips the whitespace ECMAScript String.prototype.trim strips, which
// differs from strings.TrimSpace around U+0085 and U+FEFF.
func Trim(s string) string {
	return strings.TrimFunc(s, isTrimSpace)
}

// isTrimSpace matches the whitespace stripped by ECMAScript String.prototype.trim.
func isTrimSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}
