package store

import (
	"context"
	_ "embed"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/modules/database"
	"github.com/jackc/pgx/v5"
)

//go:embed migrations/postgres.sql
var postgresSchema string

type PostgresStore struct {
	db *database.Database
}

func NewPostgres(ctx context.Context, cfg *database.Config) (*PostgresStore, error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, storeError("open", err)
	}
	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, storeError("migrate", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SavePending(ctx context.Context, records []calc.Record) error {
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM pending_operations"); err != nil {
			return err
		}
		rows := make([][]any, 0, len(records))
		for i, r := range records {
			rows = append(rows, []any{i, r.ID, r.FirstOperand, r.SecondOperand, r.Operator.String(), int64(r.DelaySeconds), r.EndTime})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"pending_operations"},
			[]string{"position", "id", "first_operand", "second_operand", "operator", "delay_seconds", "end_time"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return storeError("save pending", err)
	}
	return nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, results []calc.Answer) error {
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM answers"); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, a := range results {
			batch.Queue("INSERT INTO answers(position, text) VALUES($1, $2)", i, a.Text)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return storeError("save results", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, first_operand, second_operand, operator, delay_seconds, end_time
		 FROM pending_operations ORDER BY position`)
	if err != nil {
		return Snapshot{}, storeError("load pending", err)
	}
	pending, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (calc.Record, error) {
		var (
			r        calc.Record
			operator string
			delay    int64
		)
		if err := row.Scan(&r.ID, &r.FirstOperand, &r.SecondOperand, &operator, &delay, &r.EndTime); err != nil {
			return calc.Record{}, err
		}
		r.DelaySeconds = uint64(delay)
		op, err := calc.ParseOperator(operator)
		r.Operator = op
		return r, err
	})
	if err != nil {
		return Snapshot{}, storeError("load pending", err)
	}

	rows, err = s.db.Pool.Query(ctx, `SELECT text FROM answers ORDER BY position`)
	if err != nil {
		return Snapshot{}, storeError("load results", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (calc.Answer, error) {
		var a calc.Answer
		err := row.Scan(&a.Text)
		return a, err
	})
	if err != nil {
		return Snapshot{}, storeError("load results", err)
	}
	return Snapshot{Pending: pending, Results: results}, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
