// Package translit expands Gujarati and mixed-script search queries into the
// Latin spellings a user might have typed for the same words.
package translit

// Virama joins two consonants with no vowel sound between them.
const Virama = '્'

// phoneticMap lists the romanizations of each Gujarati grapheme. Order matters:
// expansions are produced in table order. Matras may romanize to "".
var phoneticMap = map[rune][]string{
	// vowels
	'અ': {"a"},
	'આ': {"aa", "a"},
	'ઇ': {"i"},
	'ઈ': {"ee", "i"},
	'ઉ': {"u"},
	'ઊ': {"oo", "u"},
	'એ': {"e"},
	'ઐ': {"ai"},
	'ઓ': {"o"},
	'ઔ': {"au"},

	// consonants
	'ક': {"k", "c"},
	'ખ': {"kh"},
	'ગ': {"g"},
	'ઘ': {"gh"},
	'ચ': {"ch"},
	'છ': {"chh"},
	'જ': {"j"},
	'ઝ': {"jh"},
	'ટ': {"t"},
	'ઠ': {"th"},
	'ડ': {"d"},
	'ઢ': {"dh"},
	'ત': {"t"},
	'થ': {"th"},
	'દ': {"d"},
	'ધ': {"dh"},
	'ન': {"n"},
	'પ': {"p"},
	'ફ': {"f", "ph"},
	'બ': {"b"},
	'ભ': {"bh"},
	'મ': {"m"},
	'ય': {"y"},
	'ર': {"r"},
	'લ': {"l"},
	'વ': {"v", "w", "Wa", "va", "wa"},
	'શ': {"sh"},
	'ષ': {"sh"},
	'સ': {"s"},
	'હ': {"h"},

	// matras
	'ા': {"a", ""},
	'િ': {"i", ""},
	'ી': {"ee", "i"},
	'ુ': {"u", ""},
	'ૂ': {"oo", "u"},
	'ે': {"e"},
	'ૈ': {"ai"},
	'ો': {"o"},
	'ૌ': {"au"},
}

// Romanizations returns a copy of the table entry for r.
func Romanizations(r rune) ([]string, bool) {
	alts, ok := phoneticMap[r]
	if !ok {
		return nil, false
	}
	out := make([]string, len(alts))
	copy(out, alts)
	return out, true
}

// alternatives returns the table entry for r, or r itself when unmapped.
func alternatives(r rune) []string {
	if alts, ok := phoneticMap[r]; ok {
		return alts
	}
	return []string{string(r)}
}

// conjunct reports whether runes[i:] starts with consonant + virama + mapped grapheme.
func conjunct(runes []rune, i int) bool {
	if i+2 >= len(runes) {
		return false
	}
	if _, ok := phoneticMap[runes[i]]; !ok {
		return false
	}
	if runes[i+1] != Virama {
		return false
	}
	_, ok := phoneticMap[runes[i+2]]
	return ok
}
