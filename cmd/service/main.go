package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	ht "github.com/mg52/bizsearch/cmd/http"
	"github.com/mg52/bizsearch/internal/config"
	"github.com/mg52/bizsearch/internal/engine"
	"github.com/mg52/bizsearch/internal/observability"
	"github.com/mg52/bizsearch/internal/pkg/translit"
	"github.com/mg52/bizsearch/internal/store"
)

const shutdownTimeout = 10 * time.Second

// service carries what Before prepares for the commands.
type service struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	svc := &service{logger: zap.NewNop()}

	return &cli.App{
		Name:  "bizsearch",
		Usage: "Family business directory with Gujarati-aware search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional dotenv file read before the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the SQLite database (overrides DATABASE_PATH)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Logging level (overrides LOG_LEVEL)",
			},
		},
		Before: svc.setup,
		After: func(*cli.Context) error {
			_ = svc.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: svc.serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides PORT)",
					},
				},
			},
			{
				Name:      "expand",
				Usage:     "Print the spellings a query is matched with",
				ArgsUsage: "<query>",
				Action:    svc.expand,
			},
			{
				Name:   "import",
				Usage:  "Import a YAML or JSON seed file into the database",
				Action: svc.importSeed,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Seed file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Seed format (yaml or json); guessed from the extension when empty",
					},
				},
			},
		},
	}
}

func (s *service) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}
	if db := c.String("db"); db != "" {
		cfg.DatabasePath = db
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	s.cfg = cfg
	s.logger = logger
	return nil
}

func (s *service) openStore() (*store.Store, error) {
	return store.Open(s.cfg.DatabasePath, store.WithLogger(s.logger))
}

func (s *service) serve(c *cli.Context) error {
	if port := c.Int("port"); port > 0 {
		s.cfg.Port = port
	}

	st, err := s.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dir, err := engine.NewDirectory(st,
		engine.WithLogger(s.logger),
		engine.WithMaxExpansions(s.cfg.MaxExpansions),
		engine.WithPageSize(s.cfg.PageSize),
		engine.WithPopularLimit(s.cfg.PopularLimit),
		engine.WithWorkers(s.cfg.Workers),
	)
	if err != nil {
		return err
	}
	defer dir.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dir.Warm(ctx); err != nil {
		return err
	}
	if s.cfg.RefreshEnabled() {
		stopRefresh, err := dir.ScheduleWarm(ctx, s.cfg.SuggestRefresh)
		if err != nil {
			return err
		}
		defer stopRefresh()
	}

	handler := ht.NewHTTP(dir,
		ht.WithLogger(s.logger),
		ht.WithHealthCheck(st.Ping),
		ht.WithRequestTimeout(s.cfg.WriteTimeout),
	)
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("db", s.cfg.DatabasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *service) expand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expand takes exactly one query argument", 2)
	}
	query := c.Args().First()
	if limit := s.cfg.MaxExpansions; limit > 0 {
		if n := translit.Count(query); n > limit {
			return fmt.Errorf("%w: %d spellings, limit %d", engine.ErrQueryTooComplex, n, limit)
		}
	}
	for _, candidate := range translit.Expand(query).Slice() {
		fmt.Fprintln(c.App.Writer, candidate)
	}
	return nil
}

func (s *service) importSeed(c *cli.Context) error {
	path := c.String("file")
	format := c.String("format")
	if format == "" {
		format = store.FormatFromPath(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := store.LoadSeed(f, format)
	if err != nil {
		return err
	}

	st, err := s.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.ImportSeed(c.Context, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d categories, %d keywords, %d users, %d businesses\n",
		stats.Categories, stats.Keywords, stats.Users, stats.Businesses)
	return nil
}
