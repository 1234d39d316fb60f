package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// connectPostgres initializes the shared PostgreSQL pool unless another
// component already did. Only the caller that opened the pool closes it.
func connectPostgres(ctx context.Context, cfg *config.Config) (func(), error) {
	if postgres.IsAvailable() {
		return func() {}, nil
	}
	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(ctx, &cfg.Database); err != nil {
		return func() {}, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return func() {
		if err := postgres.GetGlobalPool().Close(); err != nil {
			slog.Warn("closing PostgreSQL pool", "error", err)
		}
	}, nil
}

// loadGallery reads the gallery from GALLERY_SOURCE. The reader is nil for
// the file source. The returned close function is never nil.
func loadGallery(ctx context.Context, cfg *config.Config) (*gallery.Gallery, database.GalleryReader, func(), error) {
	noop := func() {}

	switch cfg.Paths.GallerySource {
	case "", database.GallerySourceFile:
		g, err := gallery.Load(cfg.Paths.GalleryFile)
		if err != nil {
			return nil, nil, noop, err
		}
		slog.Info("gallery loaded", "path", cfg.Paths.GalleryFile, "entries", g.Len())
		return g, nil, noop, nil

	case database.GallerySourcePostgres:
		closeFn, err := connectPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, noop, err
		}
		reader, err := database.GetGalleryReader(ctx)
		if err != nil {
			closeFn()
			return nil, nil, noop, err
		}
		g, err := reader.All(ctx)
		if err != nil {
			closeFn()
			return nil, nil, noop, fmt.Errorf("loading gallery from PostgreSQL: %w", err)
		}
		slog.Info("gallery loaded", "source", database.GallerySourcePostgres, "entries", g.Len())
		return g, reader, closeFn, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown GALLERY_SOURCE %q (expected file or postgres)", cfg.Paths.GallerySource)
	}
}

// loadMatcher loads the gallery and wraps it with the configured metric.
func loadMatcher(ctx context.Context, cfg *config.Config) (*facematch.Matcher, func(), error) {
	metric, err := facematch.MetricByName(cfg.Matching.Metric)
	if err != nil {
		return nil, func() {}, err
	}
	g, _, closeFn, err := loadGallery(ctx, cfg)
	if err != nil {
		return nil, closeFn, err
	}
	if cfg.Embedding.Dim > 0 && g.Len() > 0 && g.Dim() != cfg.Embedding.Dim {
		slog.Warn("gallery dimensionality differs from the configured model",
			"gallery_dim", g.Dim(), "expected_dim", cfg.Embedding.Dim)
	}
	slog.Debug("matcher ready", "metric", metric.Name())
	return facematch.NewMatcher(g, metric), closeFn, nil
}

// openLedger connects the backend selected by LEDGER_BACKEND. The returned
// close function releases database connections and is never nil.
func openLedger(ctx context.Context, cfg *config.Config) (database.LedgerStore, func(), error) {
	noop := func() {}

	switch cfg.Ledger.Backend {
	case "", database.BackendXLSX:
		loc, err := cfg.Ledger.Location()
		if err != nil {
			return nil, noop, err
		}
		return ledger.NewXLSXStore(cfg.Paths.AttendanceDir, loc), noop, nil

	case database.BackendPostgres:
		closeFn, err := connectPostgres(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		store, err := database.GetLedgerStore(ctx, database.BackendPostgres)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		return store, closeFn, nil

	case database.BackendMariaDB:
		fmt.Printf("Connecting to MariaDB database...\n")
		pool, err := mariadb.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		closeFn := func() {
			if err := pool.Close(); err != nil {
				slog.Warn("closing MariaDB pool", "error", err)
			}
		}
		store, err := database.GetLedgerStore(ctx, database.BackendMariaDB)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		return store, closeFn, nil

	default:
		return nil, noop, fmt.Errorf("unknown LEDGER_BACKEND %q (expected xlsx, postgres or mariadb)", cfg.Ledger.Backend)
	}
}

// newGuard builds the attendance guard over store in the configured time zone.
func newGuard(cfg *config.Config, store ledger.Store, m *metrics.Metrics) (*ledger.Guard, error) {
	loc, err := cfg.Ledger.Location()
	if err != nil {
		return nil, err
	}
	opts := []ledger.GuardOption{ledger.WithLocation(loc)}
	if m != nil {
		opts = append(opts, ledger.WithObserver(m))
	}
	return ledger.NewGuard(store, opts...), nil
}
