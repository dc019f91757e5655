// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the runtime settings of the directory service.
type Config struct {
	Port          int           `validate:"min=1,max=65535"`
	ReadTimeout   time.Duration `validate:"gt=0"`
	WriteTimeout  time.Duration `validate:"gt=0"`
	IdleTimeout   time.Duration `validate:"gt=0"`
	DatabasePath  string        `validate:"required"`
	LogLevel      string        `validate:"oneof=debug info warn error dpanic panic fatal"`
	MaxExpansions int           `validate:"min=0"`
	PageSize      int           `validate:"min=1,max=1000"`
	PopularLimit  int           `validate:"min=1,max=1000"`
	Workers       int           `validate:"min=0"`

	// SuggestRefresh is the cron schedule of suggestion index rebuilds;
	// "off" disables them.
	SuggestRefresh string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		DatabasePath:   "bizsearch.db",
		LogLevel:       "info",
		MaxExpansions:  4096,
		PageSize:       10,
		PopularLimit:   10,
		Workers:        runtime.GOMAXPROCS(0),
		SuggestRefresh: "@every 5m",
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RefreshEnabled reports whether suggestion rebuilds are scheduled.
func (c Config) RefreshEnabled() bool {
	return c.SuggestRefresh != "" && !strings.EqualFold(c.SuggestRefresh, "off")
}

// Load reads the optional dotenv files (missing files are skipped; values
// already in the environment win) and then parses the environment.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, falling back to Default for
// unset variables.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.int("PORT", &cfg.Port)
	p.duration("READ_TIMEOUT", &cfg.ReadTimeout)
	p.duration("WRITE_TIMEOUT", &cfg.WriteTimeout)
	p.duration("IDLE_TIMEOUT", &cfg.IdleTimeout)
	p.string("DATABASE_PATH", &cfg.DatabasePath)
	p.string("LOG_LEVEL", &cfg.LogLevel)
	p.int("MAX_EXPANSIONS", &cfg.MaxExpansions)
	p.int("PAGE_SIZE", &cfg.PageSize)
	p.int("POPULAR_LIMIT", &cfg.PopularLimit)
	p.int("WORKERS", &cfg.Workers)
	p.string("SUGGEST_REFRESH", &cfg.SuggestRefresh)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.RefreshEnabled() {
		if _, err := cron.ParseStandard(cfg.SuggestRefresh); err != nil {
			p.errs = append(p.errs, fmt.Errorf("SUGGEST_REFRESH: %w", err))
		}
	}

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) value(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) string(key string, dst *string) {
	if v, ok := p.value(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

// duration accepts Go durations ("15s") or a plain number of seconds.
func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
