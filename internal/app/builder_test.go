package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/config"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		MaxOpenConns:     4,
		MaxIdleConns:     2,
		StoreTimeout:     2 * time.Second,
		SessionListLimit: 5,
		MoveMaxAttempts:  3,
		AutoMigrate:      true,
	}
}

func playOpening(t *testing.T, d *Deps) {
	t.Helper()
	ctx := context.Background()
	s, err := d.Repo.Create(ctx, 10, 20)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	resp := d.Processor.Process(ctx, domain.MoveRequest{SessionID: s.ID, PlayerID: 10, Move: "e2e4"})
	if resp.Outcome != domain.OutcomeValidMove {
		t.Fatalf("Process = %+v", resp)
	}
	if got := d.Catalog.Outcome(domain.MoveRequest{SessionID: s.ID, PlayerID: 10, Move: "e2e4"}, resp); got != "Move: e4" {
		t.Fatalf("catalog text = %q", got)
	}
}

func TestMemoryBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = config.DriverMemory
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	migrated, err := d.Migrate(context.Background())
	if err != nil || migrated {
		t.Fatalf("Migrate on memory = %v, %v", migrated, err)
	}
	playOpening(t, d)
}

func TestSQLiteBackendMigratesOnStart(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = config.DriverSQLite
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "ajedrez.db")
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	playOpening(t, d)
	migrated, err := d.Migrate(context.Background())
	if err != nil || !migrated {
		t.Fatalf("second Migrate = %v, %v", migrated, err)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.StoreDriver = config.DriverRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	playOpening(t, d)
}

func TestUnknownDriver(t *testing.T) {
	cfg := baseConfig()
	cfg.StoreDriver = "mongo"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
