package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/twscan/pkg/config"
)

func integrationDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestCloseNil(t *testing.T) {
	var db *DB
	db.Close()
}

func TestHealthCheck(t *testing.T) {
	db := integrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}
	if status.Stats.MaxConns == 0 {
		t.Error("Expected MaxConns to be greater than 0")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := integrationDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if len(status.Tables) != len(Tables) {
		t.Errorf("Expected tables %v, got %v", Tables, status.Tables)
	}
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestInTx(t *testing.T) {
	ctx := context.Background()

	ok := &fakeBeginner{tx: &fakeTx{}}
	if err := InTx(ctx, ok, func(pgx.Tx) error { return nil }); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if !ok.tx.committed || ok.tx.rolledBack {
		t.Errorf("Expected commit without rollback, got %+v", ok.tx)
	}

	boom := errors.New("duplicate key")
	failing := &fakeBeginner{tx: &fakeTx{}}
	if err := InTx(ctx, failing, func(pgx.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected fn error, got %v", err)
	}
	if failing.tx.committed || !failing.tx.rolledBack {
		t.Errorf("Expected rollback, got %+v", failing.tx)
	}

	down := &fakeBeginner{err: errors.New("connection refused")}
	if err := InTx(ctx, down, func(pgx.Tx) error { t.Fatal("fn must not run"); return nil }); err == nil {
		t.Error("Expected begin error")
	}
}
