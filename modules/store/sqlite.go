package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Deepreo/mathengine/calc"
	_ "github.com/glebarez/go-sqlite"
)

//go:embed migrations/sqlite.sql
var sqliteSchema string

type SQLiteConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, storeError("open", fmt.Errorf("sqlite path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, storeError("open", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, storeError("open", err)
	}
	// One writer at a time; SQLite serializes them anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, storeError("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SavePending(ctx context.Context, records []calc.Record) error {
	return s.replace(ctx, "save pending", "DELETE FROM pending_operations", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO pending_operations(position, id, first_operand, second_operand, operator, delay_seconds, end_time)
			 VALUES(?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, r := range records {
			if _, err := stmt.ExecContext(ctx, i, r.ID, r.FirstOperand, r.SecondOperand,
				r.Operator.String(), int64(r.DelaySeconds), r.EndTime.UnixMilli()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveResults(ctx context.Context, results []calc.Answer) error {
	return s.replace(ctx, "save results", "DELETE FROM answers", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO answers(position, text) VALUES(?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, a := range results {
			if _, err := stmt.ExecContext(ctx, i, a.Text); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) replace(ctx context.Context, op, clearStmt string, insert func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, clearStmt); err != nil {
		return storeError(op, err)
	}
	if err := insert(tx); err != nil {
		return storeError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storeError(op, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_operand, second_operand, operator, delay_seconds, end_time
		 FROM pending_operations ORDER BY position`)
	if err != nil {
		return Snapshot{}, storeError("load pending", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r        calc.Record
			operator string
			delay    int64
			endMilli int64
		)
		if err := rows.Scan(&r.ID, &r.FirstOperand, &r.SecondOperand, &operator, &delay, &endMilli); err != nil {
			return Snapshot{}, storeError("load pending", err)
		}
		if r.Operator, err = calc.ParseOperator(operator); err != nil {
			return Snapshot{}, storeError("load pending", err)
		}
		r.DelaySeconds = uint64(delay)
		r.EndTime = time.UnixMilli(endMilli).UTC()
		snap.Pending = append(snap.Pending, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, storeError("load pending", err)
	}

	answers, err := s.db.QueryContext(ctx, `SELECT text FROM answers ORDER BY position`)
	if err != nil {
		return Snapshot{}, storeError("load results", err)
	}
	defer answers.Close()
	for answers.Next() {
		var a calc.Answer
		if err := answers.Scan(&a.Text); err != nil {
			return Snapshot{}, storeError("load results", err)
		}
		snap.Results = append(snap.Results, a)
	}
	if err := answers.Err(); err != nil {
		return Snapshot{}, storeError("load results", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
