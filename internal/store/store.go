// Package store persists the directory in SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mg52/bizsearch/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the gorm-backed directory store.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Keyword{},
		&models.User{},
		&models.Business{},
		&models.PopularSearch{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

// saveRow inserts row when id is zero and otherwise updates the existing row,
// keeping its creation time. The row is reloaded afterwards.
func saveRow[T any](tx *gorm.DB, row *T, id func() int64, what string, omit ...string) error {
	if id() != 0 {
		var existing T
		if err := tx.Select("id").First(&existing, id()).Error; err != nil {
			return notFound(err, what, id())
		}
		if err := tx.Omit(append(omit, "created_at")...).Save(row).Error; err != nil {
			return fmt.Errorf("update %s %d: %w", what, id(), err)
		}
	} else if err := tx.Omit(omit...).Create(row).Error; err != nil {
		return fmt.Errorf("create %s: %w", what, err)
	}
	if err := tx.First(row, id()).Error; err != nil {
		return notFound(err, what, id())
	}
	return nil
}

func withBusinessAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Keywords", func(db *gorm.DB) *gorm.DB { return db.Order("keywords.id") }).
		Preload("Owner")
}

// ListBusinesses returns every business ordered by id, with keywords and owner.
func (s *Store) ListBusinesses(ctx context.Context) ([]models.Business, error) {
	var out []models.Business
	if err := withBusinessAssociations(s.db.WithContext(ctx)).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	return out, nil
}

// Business loads one business with keywords and owner.
func (s *Store) Business(ctx context.Context, id int64) (models.Business, error) {
	return loadBusiness(s.db.WithContext(ctx), id)
}

func loadBusiness(db *gorm.DB, id int64) (models.Business, error) {
	var b models.Business
	if err := withBusinessAssociations(db).First(&b, id).Error; err != nil {
		return models.Business{}, notFound(err, "business", id)
	}
	return b, nil
}

// SaveBusiness creates b when its ID is zero and updates it otherwise. The
// attached keywords are replaced by keywordIDs. On success b is reloaded.
func (s *Store) SaveBusiness(ctx context.Context, b *models.Business, keywordIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveBusiness(tx, b, keywordIDs)
	})
}

func saveBusiness(tx *gorm.DB, b *models.Business, keywordIDs []int64) error {
	if b.CategoryID != nil {
		if err := tx.Select("id").First(&models.Category{}, *b.CategoryID).Error; err != nil {
			return notFound(err, "category", *b.CategoryID)
		}
	}
	if b.UserID != nil {
		if err := tx.Select("id").First(&models.User{}, *b.UserID).Error; err != nil {
			return notFound(err, "user", *b.UserID)
		}
	}

	keywords, err := keywordsByID(tx, keywordIDs)
	if err != nil {
		return err
	}

	b.Owner = nil
	b.Keywords = nil
	if err := saveRow(tx, b, func() int64 { return b.ID }, "business", clause.Associations); err != nil {
		return err
	}

	assoc := tx.Model(b).Association("Keywords")
	if len(keywords) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(keywords)
	}
	if err != nil {
		return fmt.Errorf("attach keywords to business %d: %w", b.ID, err)
	}

	loaded, err := loadBusiness(tx, b.ID)
	if err != nil {
		return err
	}
	*b = loaded
	return nil
}

func keywordsByID(tx *gorm.DB, ids []int64) ([]models.Keyword, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var keywords []models.Keyword
	if err := tx.Where("id IN ?", unique).Order("id").Find(&keywords).Error; err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	if len(keywords) != len(unique) {
		found := make(map[int64]struct{}, len(keywords))
		for _, k := range keywords {
			found[k.ID] = struct{}{}
		}
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("keyword %d: %w", id, ErrNotFound)
			}
		}
	}
	return keywords, nil
}

// DeleteBusiness removes a business and its keyword links.
func (s *Store) DeleteBusiness(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b := models.Business{ID: id}
		if err := tx.Select("id").First(&b, id).Error; err != nil {
			return notFound(err, "business", id)
		}
		if err := tx.Model(&b).Association("Keywords").Clear(); err != nil {
			return fmt.Errorf("detach keywords: %w", err)
		}
		if err := tx.Delete(&models.Business{}, id).Error; err != nil {
			return fmt.Errorf("delete business %d: %w", id, err)
		}
		return nil
	})
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// User loads one user.
func (s *Store) User(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return u, nil
}

// SaveUser creates u when its ID is zero and updates it otherwise.
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveRow(tx, u, func() int64 { return u.ID }, "user")
	})
}

// SetAdmin sets the admin flag of a user and returns the updated row.
func (s *Store) SetAdmin(ctx context.Context, id int64, admin bool) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return notFound(err, "user", id)
		}
		if err := tx.Model(&u).Update("is_admin", admin).Error; err != nil {
			return fmt.Errorf("update user %d: %w", id, err)
		}
		u.IsAdmin = admin
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// DeleteUser removes a user; their businesses lose the owner link.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, id).Error; err != nil {
			return notFound(err, "user", id)
		}
		if err := tx.Model(&models.Business{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("unlink businesses of user %d: %w", id, err)
		}
		if err := tx.Delete(&models.User{}, id).Error; err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		return nil
	})
}

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// SaveCategory creates c when its ID is zero and updates it otherwise.
func (s *Store) SaveCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveRow(tx, c, func() int64 { return c.ID }, "category")
	})
}

// DeleteCategory removes a category; businesses in it become uncategorised.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Category{}, id).Error; err != nil {
			return notFound(err, "category", id)
		}
		if err := tx.Model(&models.Business{}).Where("categoryid = ?", id).Update("categoryid", nil).Error; err != nil {
			return fmt.Errorf("unlink businesses of category %d: %w", id, err)
		}
		if err := tx.Delete(&models.Category{}, id).Error; err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return nil
	})
}

// ListKeywords returns every keyword ordered by id.
func (s *Store) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	var out []models.Keyword
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	return out, nil
}

// Keyword loads one keyword.
func (s *Store) Keyword(ctx context.Context, id int64) (models.Keyword, error) {
	var k models.Keyword
	if err := s.db.WithContext(ctx).First(&k, id).Error; err != nil {
		return models.Keyword{}, notFound(err, "keyword", id)
	}
	return k, nil
}

// SaveKeyword creates k when its ID is zero and updates it otherwise.
func (s *Store) SaveKeyword(ctx context.Context, k *models.Keyword) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveRow(tx, k, func() int64 { return k.ID }, "keyword")
	})
}

// DeleteKeyword removes a keyword and detaches it from every business.
func (s *Store) DeleteKeyword(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Keyword{}, id).Error; err != nil {
			return notFound(err, "keyword", id)
		}
		if err := tx.Exec("DELETE FROM business_keywords WHERE keyword_id = ?", id).Error; err != nil {
			return fmt.Errorf("detach keyword %d: %w", id, err)
		}
		if err := tx.Delete(&models.Keyword{}, id).Error; err != nil {
			return fmt.Errorf("delete keyword %d: %w", id, err)
		}
		return nil
	})
}

// IncrementSearch bumps the counter of keyword, creating it on first use.
func (s *Store) IncrementSearch(ctx context.Context, keyword string) (models.PopularSearch, error) {
	keyword = strings.TrimSpace(keyword)
	now := time.Now().UTC()
	db := s.db.WithContext(ctx)

	row := models.PopularSearch{Keyword: keyword, Count: 1, CreatedAt: now, UpdatedAt: now}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "keyword"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return models.PopularSearch{}, fmt.Errorf("increment search %q: %w", keyword, err)
	}

	var out models.PopularSearch
	if err := db.Where("keyword = ?", keyword).First(&out).Error; err != nil {
		return models.PopularSearch{}, fmt.Errorf("reload search %q: %w", keyword, err)
	}
	return out, nil
}

// TopSearches returns the most searched keywords, most recent first on ties.
func (s *Store) TopSearches(ctx context.Context, limit int) ([]models.PopularSearch, error) {
	var out []models.PopularSearch
	err := s.db.WithContext(ctx).
		Order("count DESC").
		Order("updated_at DESC").
		Order("id").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("top searches: %w", err)
	}
	return out, nil
}
