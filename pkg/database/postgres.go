package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/twscan/pkg/config"
)

// ErrNotConfigured is returned by New when DATABASE_URL is empty
var ErrNotConfigured = errors.New("database not configured")

const connectTimeout = 5 * time.Second

// DB owns the Postgres pool used by the stock, strategy and result repositories
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool and verifies it with a ping
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.Database.MinConns)
	}
	if cfg.Database.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}
	if cfg.Database.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool; safe on nil
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// Beginner is satisfied by *pgxpool.Pool and pgx.Tx
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn in a transaction, committing when fn returns nil
func InTx(ctx context.Context, b Beginner, fn func(pgx.Tx) error) error {
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthStatus is the result of HealthCheck
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
	Tables       []string      `json:"tables,omitempty"` // scanner tables present
}

// HealthCheck pings the pool and reports which scanner tables exist
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Timestamp: time.Now()}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()

	tables, err := db.existingTables(ctx)
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.Tables = tables
	status.Healthy = true
	return status, nil
}

func (db *DB) existingTables(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)
		ORDER BY table_name
	`, Tables)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// PoolStats is a JSON-friendly snapshot of pgxpool.Stat
type PoolStats struct {
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	TotalConns      int32         `json:"total_conns"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		AcquireCount:    stats.AcquireCount(),
		AcquireDuration: stats.AcquireDuration(),
		AcquiredConns:   stats.AcquiredConns(),
		IdleConns:       stats.IdleConns(),
		MaxConns:        stats.MaxConns(),
		TotalConns:      stats.TotalConns(),
	}
}
