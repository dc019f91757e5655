package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_SearchFields(t *testing.T) {
	u := User{FirstName: "Deep", LastName: "Shah", Email: "deep@example.com", PhoneNumber: "98765"}
	assert.Equal(t, []string{"Deep  Shah", "deep@example.com", "98765"}, u.SearchFields())
	assert.Equal(t, "Deep Shah", u.FullName())

	_, ok := u.Category()
	assert.False(t, ok)
}

func TestBusiness_SearchFields(t *testing.T) {
	cat := int64(4)
	b := Business{
		BusinessName: "Patel Dairy",
		CategoryID:   &cat,
		Keywords:     []Keyword{{ID: 1, Name: "milk"}, {ID: 2, Name: "ghee"}},
	}
	assert.Equal(t, []string{"Patel Dairy", "milk", "ghee"}, b.SearchFields())
	assert.Equal(t, []string{"milk", "ghee"}, b.KeywordNames())

	id, ok := b.Category()
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)

	_, ok = Business{}.Category()
	assert.False(t, ok)
	assert.Equal(t, []string{""}, Business{}.SearchFields())
}
