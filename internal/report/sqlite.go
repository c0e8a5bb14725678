package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/twscan/internal/contracts"
)

// SQLiteStore keeps every scan in a local SQLite file.
// It is both a report sink and a contracts.ResultRepository.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database and runs migrations
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			config_hash TEXT NOT NULL,
			config      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_results (
			run_id   TEXT    NOT NULL,
			position INTEGER NOT NULL,
			code     TEXT    NOT NULL,
			date     TEXT    NOT NULL,
			close    REAL    NOT NULL,
			signal   TEXT    NOT NULL,
			memo     TEXT    NOT NULL,
			k        REAL,
			d        REAL,
			rsi      REAL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS scan_skipped (
			run_id TEXT NOT NULL,
			code   TEXT NOT NULL,
			reason TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_finished ON scan_runs(finished_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Name implements contracts.ReportSink
func (s *SQLiteStore) Name() string { return "sqlite" }

// Write implements contracts.ReportSink
func (s *SQLiteStore) Write(ctx context.Context, r *contracts.ScanReport) error {
	return s.SaveReport(ctx, r)
}

// SaveReport stores one run with its rows in report order
func (s *SQLiteStore) SaveReport(ctx context.Context, r *contracts.ScanReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_runs (run_id, started_at, finished_at, config_hash, config) VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.Unix(), r.FinishedAt.Unix(), r.ConfigHash, string(cfg),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, row := range r.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_results (run_id, position, code, date, close, signal, memo, k, d, rsi)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, row.Code, contracts.DateString(row.Date), row.Close, row.Signal.String(), row.Memo,
			row.K.Ptr(), row.D.Ptr(), row.RSI.Ptr(),
		); err != nil {
			return fmt.Errorf("insert row %s: %w", row.Code, err)
		}
	}

	for _, sk := range r.Skipped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_skipped (run_id, code, reason) VALUES (?, ?, ?)`,
			r.RunID, sk.Code, sk.Reason,
		); err != nil {
			return fmt.Errorf("insert skipped %s: %w", sk.Code, err)
		}
	}

	return tx.Commit()
}

// GetLatest returns the most recently finished run, or (nil, nil) when empty
func (s *SQLiteStore) GetLatest(ctx context.Context) (*contracts.StoredReport, error) {
	var (
		runID    string
		finished int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, finished_at FROM scan_runs ORDER BY finished_at DESC, rowid DESC LIMIT 1`,
	).Scan(&runID, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, date, close, signal, memo, k, d, rsi FROM scan_results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest rows: %w", err)
	}
	defer rows.Close()

	out := &contracts.StoredReport{RunID: runID, CreatedAt: time.Unix(finished, 0)}
	for rows.Next() {
		var (
			res       contracts.SignalResult
			date, sig string
			k, d, rsi sql.NullFloat64
		)
		if err := rows.Scan(&res.Code, &date, &res.Close, &sig, &res.Memo, &k, &d, &rsi); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if res.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("row date: %w", err)
		}
		if res.Signal, err = contracts.ParseSignal(sig); err != nil {
			return nil, err
		}
		res.K, res.D, res.RSI = fromNull(k), fromNull(d), fromNull(rsi)
		out.Rows = append(out.Rows, res)
	}
	return out, rows.Err()
}

func fromNull(v sql.NullFloat64) contracts.NullFloat {
	if !v.Valid {
		return contracts.None()
	}
	return contracts.Some(v.Float64)
}
