package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

var outcomeCols = []string{"solution_id", "session_id", "problem_id", "language", "result", "memory_kb", "time_ms", "started_at", "finished_at"}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *OutcomeStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s, err := NewOutcomeStoreWithPool(mock, "")
	require.NoError(t, err)
	return mock, s
}

func sampleOutcome() store.Outcome {
	started := time.Unix(1700000000, 0).UTC()
	return store.Outcome{
		SessionID:  uuid.MustParse("0190f4a2-7c1d-7000-8000-000000000001"),
		SolutionID: 71234567,
		ProblemID:  1000,
		Language:   28,
		Result:     judge.Accepted,
		MemoryKB:   31120,
		TimeMS:     44,
		StartedAt:  started,
		FinishedAt: started.Add(6 * time.Second),
	}
}

// TestRecordOutcomeUpserts writes every column keyed by solution id.
func TestRecordOutcomeUpserts(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	o := sampleOutcome()
	mock.ExpectExec("INSERT INTO judge_outcomes").
		WithArgs(o.SolutionID, o.SessionID, o.ProblemID, o.Language, o.Result.Code(), o.MemoryKB, o.TimeMS, o.StartedAt, o.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.RecordOutcome(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Error(t, s.RecordOutcome(context.Background(), store.Outcome{}))
}

// TestRecordOutcomeWrapsErrors keeps the driver error reachable.
func TestRecordOutcomeWrapsErrors(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO judge_outcomes").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(boom)

	err := s.RecordOutcome(context.Background(), sampleOutcome())
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetOutcome scans a row and maps a missing row to store.ErrNotFound.
func TestGetOutcome(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	o := sampleOutcome()
	mock.ExpectQuery("SELECT .+ FROM judge_outcomes WHERE solution_id").
		WithArgs(o.SolutionID).
		WillReturnRows(pgxmock.NewRows(outcomeCols).
			AddRow(o.SolutionID, o.SessionID, o.ProblemID, o.Language, o.Result.Code(), o.MemoryKB, o.TimeMS, o.StartedAt, o.FinishedAt))
	mock.ExpectQuery("SELECT .+ FROM judge_outcomes WHERE solution_id").
		WithArgs(1).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetOutcome(context.Background(), o.SolutionID)
	require.NoError(t, err)
	require.Equal(t, o, got)

	_, err = s.GetOutcome(context.Background(), 1)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestListOutcomesFilters passes the filter and default limit through.
func TestListOutcomesFilters(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	o := sampleOutcome()
	accepted := judge.Accepted
	code := int(accepted)
	mock.ExpectQuery("SELECT .+ FROM judge_outcomes").
		WithArgs(1000, &code, defaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows(outcomeCols).
			AddRow(o.SolutionID, o.SessionID, o.ProblemID, o.Language, o.Result.Code(), o.MemoryKB, o.TimeMS, o.StartedAt, o.FinishedAt))

	got, err := s.ListOutcomes(context.Background(), store.OutcomeFilter{ProblemID: 1000, Result: &accepted})
	require.NoError(t, err)
	require.Equal(t, []store.Outcome{o}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestListOutcomesRejectsUnknownResult refuses codes outside the result set.
func TestListOutcomesRejectsUnknownResult(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	o := sampleOutcome()
	mock.ExpectQuery("SELECT .+ FROM judge_outcomes").
		WithArgs(0, pgxmock.AnyArg(), 5, 10).
		WillReturnRows(pgxmock.NewRows(outcomeCols).
			AddRow(o.SolutionID, o.SessionID, o.ProblemID, o.Language, 99, o.MemoryKB, o.TimeMS, o.StartedAt, o.FinishedAt))

	_, err := s.ListOutcomes(context.Background(), store.OutcomeFilter{Limit: 5, Offset: 10})
	require.ErrorIs(t, err, judge.ErrUnknownResult)
}

// TestEnsureSchemaAndTableValidation covers table creation and name checks.
func TestEnsureSchemaAndTableValidation(t *testing.T) {
	t.Parallel()

	mock, s := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS judge_outcomes").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	_, err := NewOutcomeStoreWithPool(mock, "outcomes; DROP TABLE x")
	require.Error(t, err)
	_, err = NewOutcomeStoreWithPool(nil, "")
	require.Error(t, err)
	_, err = NewOutcomeStore(context.Background(), Config{})
	require.Error(t, err)
}
