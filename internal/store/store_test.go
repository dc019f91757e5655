package store

import (
	"bytes"
	"context"
	_ "embed"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mg52/bizsearch/internal/models"
)

//go:embed testdata/seed.yaml
var seedYAML []byte

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "directory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := openTestStore(t)
	seed, err := LoadSeed(bytes.NewReader(seedYAML), "yaml")
	require.NoError(t, err)
	_, err = s.ImportSeed(context.Background(), seed)
	require.NoError(t, err)
	return s
}

func int64p(v int64) *int64 { return &v }

func TestImportSeed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seed, err := LoadSeed(bytes.NewReader(seedYAML), "yaml")
	require.NoError(t, err)

	stats, err := s.ImportSeed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Categories: 2, Keywords: 3, Users: 2, Businesses: 3}, stats)

	businesses, err := s.ListBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, businesses, 3)
	assert.Equal(t, "Shah Traders", businesses[0].BusinessName)
	assert.Equal(t, []string{"saree"}, businesses[0].KeywordNames())
	require.NotNil(t, businesses[0].Owner)
	assert.Equal(t, "Deep", businesses[0].Owner.FirstName)
	assert.Equal(t, []string{"milk", "ghee"}, businesses[1].KeywordNames())
	assert.Nil(t, businesses[2].CategoryID)
	assert.Nil(t, businesses[2].Owner)

	// importing twice replaces rows by id
	seed, err = LoadSeed(bytes.NewReader(seedYAML), "yaml")
	require.NoError(t, err)
	_, err = s.ImportSeed(ctx, seed)
	require.NoError(t, err)
	businesses, err = s.ListBusinesses(ctx)
	require.NoError(t, err)
	assert.Len(t, businesses, 3)
}

func TestLoadSeed_JSON(t *testing.T) {
	doc := `{"categories":[{"id":4,"categoryName":"Food"}],"businesses":[{"BusinessName":"Amul","categoryid":4,"keywordIds":[7]}]}`
	seed, err := LoadSeed(strings.NewReader(doc), "json")
	require.NoError(t, err)
	require.Len(t, seed.Businesses, 1)
	assert.Equal(t, "Amul", seed.Businesses[0].BusinessName)
	assert.Equal(t, []int64{7}, seed.Businesses[0].KeywordIDs)
	assert.Equal(t, int64(4), *seed.Businesses[0].CategoryID)
	assert.Equal(t, "Food", seed.Categories[0].Name)
}

func TestLoadSeed_UnknownFormat(t *testing.T) {
	_, err := LoadSeed(strings.NewReader(""), "toml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "yaml", FormatFromPath("seed.YML"))
	assert.Equal(t, "yaml", FormatFromPath("/tmp/seed.yaml"))
	assert.Equal(t, "json", FormatFromPath("seed.json"))
	assert.Equal(t, "", FormatFromPath("seed.txt"))
}

func TestSaveBusiness(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	b := models.Business{BusinessName: "Mehta Sweets", CategoryID: int64p(2)}
	require.NoError(t, s.SaveBusiness(ctx, &b, []int64{3, 3}))
	assert.NotZero(t, b.ID)
	assert.Equal(t, []string{"ghee"}, b.KeywordNames())

	created := b.CreatedAt
	b.BusinessName = "Mehta Sweets & Farsan"
	require.NoError(t, s.SaveBusiness(ctx, &b, nil))
	assert.Empty(t, b.Keywords)
	assert.WithinDuration(t, created, b.CreatedAt, 0)

	got, err := s.Business(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mehta Sweets & Farsan", got.BusinessName)
}

func TestSaveBusiness_MissingReferences(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	err := s.SaveBusiness(ctx, &models.Business{BusinessName: "x", CategoryID: int64p(99)}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveBusiness(ctx, &models.Business{BusinessName: "x", UserID: int64p(99)}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveBusiness(ctx, &models.Business{BusinessName: "x"}, []int64{1, 42})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveBusiness(ctx, &models.Business{ID: 77, BusinessName: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	businesses, err := s.ListBusinesses(ctx)
	require.NoError(t, err)
	assert.Len(t, businesses, 3)
}

func TestDeleteBusiness(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	require.NoError(t, s.DeleteBusiness(ctx, 2))
	_, err := s.Business(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteBusiness(ctx, 2), ErrNotFound)

	// keywords survive their business
	keywords, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Len(t, keywords, 3)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	u, err := s.SetAdmin(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	u, err = s.User(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = s.SetAdmin(ctx, 9, true)
	assert.ErrorIs(t, err, ErrNotFound)

	nu := models.User{FirstName: "Meera", LastName: "Joshi"}
	require.NoError(t, s.SaveUser(ctx, &nu))
	assert.NotZero(t, nu.ID)

	require.NoError(t, s.DeleteUser(ctx, 1))
	b, err := s.Business(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, b.UserID)
	assert.Nil(t, b.Owner)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Kiran", users[0].FirstName)
	assert.Equal(t, "Meera", users[1].FirstName)
}

func TestCategoriesAndKeywords(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	require.NoError(t, s.DeleteCategory(ctx, 1))
	b, err := s.Business(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, b.CategoryID)
	assert.ErrorIs(t, s.DeleteCategory(ctx, 1), ErrNotFound)

	c := models.Category{Name: "Hardware"}
	require.NoError(t, s.SaveCategory(ctx, &c))
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Hardware", categories[1].Name)

	k, err := s.Keyword(ctx, 2)
	require.NoError(t, err)
	k.Name = "doodh"
	require.NoError(t, s.SaveKeyword(ctx, &k))

	require.NoError(t, s.DeleteKeyword(ctx, 3))
	b, err = s.Business(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"doodh"}, b.KeywordNames())
	_, err = s.Keyword(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPopularSearches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, kw := range []string{"saree", "milk", "saree", " saree ", "ghee", "milk"} {
		_, err := s.IncrementSearch(ctx, kw)
		require.NoError(t, err)
	}

	top, err := s.TopSearches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "saree", top[0].Keyword)
	assert.Equal(t, int64(3), top[0].Count)
	assert.Equal(t, "milk", top[1].Keyword)
	assert.Equal(t, int64(2), top[1].Count)
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
