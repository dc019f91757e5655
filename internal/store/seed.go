package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mg52/bizsearch/internal/models"
)

// ErrUnknownFormat is returned for seed files that are neither YAML nor JSON.
var ErrUnknownFormat = errors.New("unknown seed format")

// Seed is the bulk import document.
type Seed struct {
	Categories []models.Category `json:"categories" yaml:"categories"`
	Keywords   []models.Keyword  `json:"keywords" yaml:"keywords"`
	Users      []models.User     `json:"users" yaml:"users"`
	Businesses []SeedBusiness    `json:"businesses" yaml:"businesses"`
}

// SeedBusiness is a business whose keywords are referenced by id.
type SeedBusiness struct {
	models.Business `yaml:",inline"`
	KeywordIDs      []int64 `json:"keywordIds" yaml:"keywordIds"`
}

// ImportStats counts the rows written by ImportSeed.
type ImportStats struct {
	Categories int `json:"categories"`
	Keywords   int `json:"keywords"`
	Users      int `json:"users"`
	Businesses int `json:"businesses"`
}

// FormatFromPath guesses the seed format from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// LoadSeed decodes a seed document in the given format ("yaml" or "json").
func LoadSeed(r io.Reader, format string) (*Seed, error) {
	var seed Seed
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml seed: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&seed); err != nil {
			return nil, fmt.Errorf("decode json seed: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &seed, nil
}

// ImportSeed upserts the seed in a single transaction. Rows with an id
// replace the existing row with that id; rows without one are inserted.
func (s *Store) ImportSeed(ctx context.Context, seed *Seed) (ImportStats, error) {
	var stats ImportStats
	if seed == nil {
		return stats, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{UpdateAll: true}

		for i := range seed.Categories {
			if err := tx.Clauses(upsert).Create(&seed.Categories[i]).Error; err != nil {
				return fmt.Errorf("import category %q: %w", seed.Categories[i].Name, err)
			}
			stats.Categories++
		}
		for i := range seed.Keywords {
			if err := tx.Clauses(upsert).Create(&seed.Keywords[i]).Error; err != nil {
				return fmt.Errorf("import keyword %q: %w", seed.Keywords[i].Name, err)
			}
			stats.Keywords++
		}
		for i := range seed.Users {
			if err := tx.Clauses(upsert).Create(&seed.Users[i]).Error; err != nil {
				return fmt.Errorf("import user %q: %w", seed.Users[i].FullName(), err)
			}
			stats.Users++
		}
		for i := range seed.Businesses {
			b := &seed.Businesses[i]
			ids := b.KeywordIDs
			for _, k := range b.Keywords {
				if k.ID != 0 {
					ids = append(ids, k.ID)
				}
			}
			b.Owner = nil
			b.Keywords = nil
			if b.ID != 0 {
				if err := tx.Clauses(upsert).Omit(clause.Associations).Create(&b.Business).Error; err != nil {
					return fmt.Errorf("import business %q: %w", b.BusinessName, err)
				}
			}
			if err := saveBusiness(tx, &b.Business, ids); err != nil {
				return fmt.Errorf("import business %q: %w", b.BusinessName, err)
			}
			stats.Businesses++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	s.logger.Info("seed imported",
		zap.Int("categories", stats.Categories),
		zap.Int("keywords", stats.Keywords),
		zap.Int("users", stats.Users),
		zap.Int("businesses", stats.Businesses),
	)
	return stats, nil
}
