// Package engine matches directory records against transliterated queries
// and serves the directory on top of a Store.
package engine

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mg52/bizsearch/internal/models"
	"github.com/mg52/bizsearch/internal/pkg/translit"
)

// Record is anything the filter can scan: an ordered list of searchable
// fields and an optional category.
type Record interface {
	SearchFields() []string
	Category() (int64, bool)
}

// View selects the searchable fields and category of T for one screen.
// A nil Category means records of that view never satisfy a category
// constraint.
type View[T any] struct {
	Name     string
	Fields   func(T) []string
	Category func(T) (int64, bool)
}

// RecordView builds a View from the Record methods of T.
func RecordView[T Record]() View[T] {
	return View[T]{
		Fields:   func(r T) []string { return r.SearchFields() },
		Category: func(r T) (int64, bool) { return r.Category() },
	}
}

// Filter keeps the records whose searchable fields contain any spelling of
// rawQuery, then applies the category constraint when categoryID is set.
// Input order is preserved and records are never modified.
func Filter[T Record](records []T, rawQuery string, categoryID *int64) []T {
	return FilterView(records, RecordView[T](), rawQuery, categoryID)
}

// FilterView is Filter with explicit field selection.
func FilterView[T any](records []T, view View[T], rawQuery string, categoryID *int64) []T {
	return filterWith(records, view, compile(rawQuery), categoryID)
}

// compile prepares the matcher of rawQuery; nil matches everything.
func compile(rawQuery string) *matcher {
	if translit.Trim(rawQuery) == "" {
		return nil
	}
	return newMatcher(rawQuery)
}

func filterWith[T any](records []T, view View[T], m *matcher, categoryID *int64) []T {
	result := make([]T, 0, len(records))
	for _, r := range records {
		if m != nil && !m.matchAny(view.Fields(r)) {
			continue
		}
		if categoryID != nil {
			if view.Category == nil {
				continue
			}
			id, ok := view.Category(r)
			if !ok || id != *categoryID {
				continue
			}
		}
		result = append(result, r)
	}
	return result
}

// matcher holds the lowercased candidates of one query.
type matcher struct {
	lower   cases.Caser
	needles []string
}

func newMatcher(rawQuery string) *matcher {
	lower := cases.Lower(language.Und)
	candidates := translit.Expand(lower.String(rawQuery))

	seen := make(map[string]struct{}, candidates.Len())
	needles := make([]string, 0, candidates.Len())
	for _, c := range candidates.Slice() {
		n := lower.String(c)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		needles = append(needles, n)
	}
	return &matcher{lower: lower, needles: needles}
}

// clone shares the needles but not the caser, which is not safe for
// concurrent use.
func (m *matcher) clone() *matcher {
	if m == nil {
		return nil
	}
	return &matcher{lower: cases.Lower(language.Und), needles: m.needles}
}

func (m *matcher) matchAny(fields []string) bool {
	for _, field := range fields {
		if field == "" {
			continue
		}
		lf := m.lower.String(field)
		for _, n := range m.needles {
			if strings.Contains(lf, n) {
				return true
			}
		}
	}
	return false
}

// ParseCategory coerces a query-string category to a numeric id. Blank
// input means no constraint.
func ParseCategory(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return nil, ErrInvalidCategory
	}
	id := int64(f)
	return &id, nil
}

// FilterByName is the plain substring filter of the category and keyword
// admin lists. No transliteration is applied.
func FilterByName[T any](items []T, name func(T) string, term string) []T {
	lower := cases.Lower(language.Und)
	needle := lower.String(term)
	result := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(lower.String(name(it)), needle) {
			result = append(result, it)
		}
	}
	return result
}

func businessCategory(b models.Business) (int64, bool) { return b.Category() }

func businessKeywordNames(b models.Business) []string { return b.KeywordNames() }

// DirectoryView is the public business listing.
var DirectoryView = View[models.Business]{
	Name:     "directory",
	Fields:   models.Business.SearchFields,
	Category: businessCategory,
}

// HomeView is the home page listing, which also matches the short name.
var HomeView = View[models.Business]{
	Name: "home",
	Fields: func(b models.Business) []string {
		return append([]string{b.Name, b.BusinessName}, businessKeywordNames(b)...)
	},
	Category: businessCategory,
}

// AdminBusinessView is the admin business table: business name, free-text
// keywords and the owner's contact details.
var AdminBusinessView = View[models.Business]{
	Name: "admin",
	Fields: func(b models.Business) []string {
		fields := []string{b.BusinessName, b.BusinessKeyword}
		if o := b.Owner; o != nil {
			fields = append(fields, o.PhoneNumber, o.FirstName, o.MiddleName, o.LastName)
		}
		return fields
	},
	Category: businessCategory,
}

var businessViews = map[string]View[models.Business]{
	"":                     DirectoryView,
	DirectoryView.Name:     DirectoryView,
	HomeView.Name:          HomeView,
	AdminBusinessView.Name: AdminBusinessView,
}

// BusinessView looks up a business view by name; blank selects DirectoryView.
func BusinessView(name string) (View[models.Business], error) {
	v, ok := businessViews[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return View[models.Business]{}, ErrUnknownView
	}
	return v, nil
}
