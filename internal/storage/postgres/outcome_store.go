// Package postgres provides the Postgres-backed judge outcome repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultTable     = "judge_outcomes"
	defaultListLimit = 20
)

// Config controls the connection pool used for outcome rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// OutcomeStore implements store.OutcomeRepository.
type OutcomeStore struct {
	pool  pool
	table string
}

var _ store.OutcomeRepository = (*OutcomeStore)(nil)

// NewOutcomeStore connects to cfg.DSN.
func NewOutcomeStore(ctx context.Context, cfg Config) (*OutcomeStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewOutcomeStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewOutcomeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewOutcomeStoreWithPool(p pool, table string) (*OutcomeStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &OutcomeStore{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *OutcomeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the outcome table when it does not exist.
func (s *OutcomeStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	solution_id BIGINT PRIMARY KEY,
	session_id UUID NOT NULL,
	problem_id INTEGER NOT NULL,
	language INTEGER NOT NULL,
	result SMALLINT NOT NULL,
	memory_kb INTEGER NOT NULL,
	time_ms INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create outcome table: %w", err)
	}
	return nil
}

// RecordOutcome upserts the row keyed by solution id.
func (s *OutcomeStore) RecordOutcome(ctx context.Context, o store.Outcome) error {
	if o.SolutionID <= 0 {
		return errors.New("solution id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	solution_id, session_id, problem_id, language, result, memory_kb, time_ms, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (solution_id) DO UPDATE SET
	session_id = EXCLUDED.session_id,
	result = EXCLUDED.result,
	memory_kb = EXCLUDED.memory_kb,
	time_ms = EXCLUDED.time_ms,
	finished_at = EXCLUDED.finished_at`, s.table)
	_, err := s.pool.Exec(ctx, query,
		o.SolutionID,
		o.SessionID,
		o.ProblemID,
		o.Language,
		o.Result.Code(),
		o.MemoryKB,
		o.TimeMS,
		o.StartedAt,
		o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

const outcomeColumns = `solution_id, session_id, problem_id, language, result, memory_kb, time_ms, started_at, finished_at`

// GetOutcome loads the row for solutionID.
func (s *OutcomeStore) GetOutcome(ctx context.Context, solutionID int) (store.Outcome, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE solution_id = $1`, outcomeColumns, s.table)
	o, err := scanOutcome(s.pool.QueryRow(ctx, query, solutionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Outcome{}, store.ErrNotFound
	}
	if err != nil {
		return store.Outcome{}, fmt.Errorf("get outcome %d: %w", solutionID, err)
	}
	return o, nil
}

// ListOutcomes returns rows newest first.
func (s *OutcomeStore) ListOutcomes(ctx context.Context, f store.OutcomeFilter) ([]store.Outcome, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var result *int
	if f.Result != nil {
		code := f.Result.Code()
		result = &code
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
WHERE ($1 = 0 OR problem_id = $1) AND ($2::smallint IS NULL OR result = $2)
ORDER BY finished_at DESC
LIMIT $3 OFFSET $4`, outcomeColumns, s.table)
	rows, err := s.pool.Query(ctx, query, f.ProblemID, result, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []store.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return out, nil
}

func scanOutcome(row pgx.Row) (store.Outcome, error) {
	var (
		o    store.Outcome
		code int
	)
	if err := row.Scan(
		&o.SolutionID,
		&o.SessionID,
		&o.ProblemID,
		&o.Language,
		&code,
		&o.MemoryKB,
		&o.TimeMS,
		&o.StartedAt,
		&o.FinishedAt,
	); err != nil {
		return store.Outcome{}, err
	}
	r, err := judge.ParseResult(code)
	if err != nil {
		return store.Outcome{}, err
	}
	o.Result = r
	return o, nil
}
