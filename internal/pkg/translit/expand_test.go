package translit

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query",
			query: "",
			want:  []string{},
		},
		{
			name:  "unmapped characters pass through",
			query: "xyz123",
			want:  []string{"xyz123", "Xyz123", "XYZ123"},
		},
		{
			name:  "latin input is case folded",
			query: "SHAH",
			want:  []string{"shah", "Shah", "SHAH"},
		},
		{
			name:  "titlecase only touches the first character",
			query: "Hello World",
			want:  []string{"hello world", "Hello world", "HELLO WORLD"},
		},
		{
			name:  "long vowel matra",
			query: "દીપ",
			want:  []string{"deep", "Deep", "DEEP", "dip", "Dip", "DIP"},
		},
		{
			name:  "conjunct joins both consonants",
			query: "ક્ત",
			want:  []string{"kt", "Kt", "KT", "ct", "Ct", "CT"},
		},
		{
			name:  "trailing virama is skipped",
			query: "ક્",
			want:  []string{"k", "K", "c", "C"},
		},
		{
			name:  "virama before unmapped grapheme falls through",
			query: "ક્x",
			want:  []string{"kx", "Kx", "KX", "cx", "Cx", "CX"},
		},
		{
			name:  "only viramas",
			query: "્્",
			want:  []string{},
		},
		{
			name:  "elided matra",
			query: "કા",
			want:  []string{"ka", "Ka", "KA", "k", "K", "ca", "Ca", "CA", "c", "C"},
		},
		{
			name:  "va alternatives keep table order",
			query: "વ",
			want:  []string{"v", "V", "w", "W", "wa", "Wa", "WA", "va", "Va", "VA"},
		},
		{
			name:  "whitespace trimmed and empty dropped",
			query: " ા",
			want:  []string{"a", "A"},
		},
		{
			name:  "mixed script",
			query: "શાહ traders",
			want: []string{
				"shah traders", "Shah traders", "SHAH TRADERS",
				"shh traders", "Shh traders", "SHH TRADERS",
			},
		},
		{
			name:  "byte order mark is trimmed",
			query: "\ufeffabc",
			want:  []string{"abc", "Abc", "ABC"},
		},
		{
			name:  "next line is not trimmed",
			query: "\u0085",
			want:  []string{"\u0085"},
		},
		{
			name:  "full case mapping",
			query: "ß",
			want:  []string{"ß", "SS"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Expand(tc.query).Slice()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpand_CaseVariantsPresent(t *testing.T) {
	lower := cases.Lower(language.Und)
	upper := cases.Upper(language.Und)

	for _, query := range []string{"દીપ શાહ", "Patel", "વડોદરા", "ક્ષ", "mixed ભાઈ"} {
		set := Expand(query)
		require.NotZero(t, set.Len(), query)
		for _, member := range set.Slice() {
			l := lower.String(member)
			assert.True(t, set.Contains(l), "%q: missing lowercase of %q", query, member)
			assert.True(t, set.Contains(upper.String(l)), "%q: missing uppercase of %q", query, member)
			assert.True(t, set.Contains(titlecase(l, upper)), "%q: missing titlecase of %q", query, member)
		}
	}
}

func TestExpand_PureLatinRoundTrip(t *testing.T) {
	for _, s := range []string{"shah", "Shah Traders", "PATEL", "a", "rAnA 42"} {
		lowered := strings.ToLower(s)
		want := []string{lowered, strings.ToUpper(lowered[:1]) + lowered[1:], strings.ToUpper(s)}
		got := Expand(s)
		for _, w := range want {
			assert.True(t, got.Contains(w), "%q: expected %q", s, w)
		}
		assert.LessOrEqual(t, got.Len(), 3)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"abc", 1},
		{"દીપ", 2},
		{"વવ", 25},
		{"ક્ત", 2},
		{"ક્", 2},
		{"્", 1},
		{"કા", 4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Count(tc.query), tc.query)
		if tc.query != "" {
			assert.Len(t, expandRaw(tc.query), tc.want, tc.query)
		}
	}
}

func TestCount_Saturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, Count(strings.Repeat("વ", 40)))
}

func TestRomanizations(t *testing.T) {
	alts, ok := Romanizations('ફ')
	require.True(t, ok)
	assert.Equal(t, []string{"f", "ph"}, alts)

	alts[0] = "x"
	again, _ := Romanizations('ફ')
	assert.Equal(t, "f", again[0], "returned slice must be a copy")

	_, ok = Romanizations(Virama)
	assert.False(t, ok)
	_, ok = Romanizations('z')
	assert.False(t, ok)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "a b", Trim(" \t a b \ufeff\u3000"))
	assert.Equal(t, "\u0085x", Trim("\u0085x "))
	assert.Equal(t, "", Trim(" \n "))
}

func TestExpand_AstralTitlecase(t *testing.T) {
	// the whole supplementary-plane code point is uppercased, not half of it
	assert.Equal(t, []string{"𐐨x", "𐐀x", "𐐀X"}, Expand("𐐨x").Slice())
}
