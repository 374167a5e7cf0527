// Package app wires configuration into a ready-to-use set of components.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/config"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/move"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/msgcat"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/obslog"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/render"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/storage/redisstore"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/storage/sqlstore"
)

// Migrator is implemented by backends that carry a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

type Deps struct {
	Config    *config.AppConfig
	Repo      session.Repository
	Engine    board.Engine
	Processor *move.Processor
	Catalog   *msgcat.Catalog
	Renderer  render.BoardRenderer

	migrator Migrator
	closers  []func() error
}

// New opens the configured store and builds the processor around it. When
// AutoMigrate is set, SQL schemas are brought up to date before returning.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger = obslog.Or(logger)

	d := &Deps{Config: cfg, Engine: board.NewEngine(), Renderer: render.NewRenderer(64)}
	if err := d.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate && d.migrator != nil {
		if err := d.migrator.Migrate(ctx); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = catalog
	d.Processor = move.NewProcessor(d.Repo, d.Engine,
		move.WithLogger(logger),
		move.WithMaxAttempts(cfg.MoveMaxAttempts),
	)

	logger.Info("app_ready",
		zap.String("store_driver", cfg.StoreDriver),
		zap.Bool("auto_migrate", cfg.AutoMigrate && d.migrator != nil),
		zap.Int("move_max_attempts", cfg.MoveMaxAttempts),
	)
	return d, nil
}

func (d *Deps) openStore(ctx context.Context, cfg *config.AppConfig) error {
	switch cfg.StoreDriver {
	case config.DriverSQLite, config.DriverPostgres:
		dialect, err := sqlstore.ParseDialect(cfg.StoreDriver)
		if err != nil {
			return err
		}
		store, err := sqlstore.Open(ctx, sqlstore.Options{
			Dialect:         dialect,
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			Timeout:         cfg.StoreTimeout,
		})
		if err != nil {
			return fmt.Errorf("init sql store: %w", err)
		}
		d.Repo, d.migrator = store, store
		d.closers = append(d.closers, store.Close)
	case config.DriverRedis:
		store, err := redisstore.Open(ctx, cfg.RedisURL, cfg.StoreTimeout)
		if err != nil {
			return fmt.Errorf("init redis store: %w", err)
		}
		d.Repo = store
		d.closers = append(d.closers, store.Close)
	case config.DriverMemory:
		d.Repo = session.NewMemoryRepository()
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	return nil
}

// Migrate applies pending schema migrations. It reports false when the
// backend has no schema.
func (d *Deps) Migrate(ctx context.Context) (bool, error) {
	if d.migrator == nil {
		return false, nil
	}
	if err := d.migrator.Migrate(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Close releases store connections.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
