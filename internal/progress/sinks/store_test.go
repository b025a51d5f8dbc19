package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

// TestStoreSinkPersistsOutcomes stores one row per finished session with its start time.
func TestStoreSinkPersistsOutcomes(t *testing.T) {
	t.Parallel()

	repo := &fakeOutcomeRepo{}
	sink := NewStoreSink(repo, nil)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := start
	session := progress.Session{ID: uuid.New(), SolutionID: 71234567, ProblemID: 1000, Language: 28, Now: func() time.Time { return clock }}

	begin := session.Event(progress.StageStart, judge.Progress{})
	clock = start.Add(3 * time.Second)
	update := session.Event(progress.StageUpdate, judge.Progress{Percentage: 30, Result: judge.Judging})
	clock = start.Add(5 * time.Second)
	done := session.Event(progress.StageDone, judge.Progress{Percentage: 100, MemoryKB: 31120, TimeMS: 44, Result: judge.TimeExceeded})

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{begin, update}))
	require.Empty(t, repo.outcomes)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{done}))

	require.Len(t, repo.outcomes, 1)
	got := repo.outcomes[0]
	require.Equal(t, session.ID, got.SessionID)
	require.Equal(t, 71234567, got.SolutionID)
	require.Equal(t, 28, got.Language)
	require.Equal(t, judge.TimeExceeded, got.Result)
	require.Equal(t, start, got.StartedAt)
	require.Equal(t, start.Add(5*time.Second), got.FinishedAt)
}

// TestStoreSinkWithoutStart falls back to the finish time.
func TestStoreSinkWithoutStart(t *testing.T) {
	t.Parallel()

	repo := &fakeOutcomeRepo{}
	sink := NewStoreSink(repo, nil)
	done := progress.Session{ID: uuid.New(), SolutionID: 9}.Event(progress.StageDone, judge.Progress{Result: judge.Accepted})
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{done}))
	require.Equal(t, repo.outcomes[0].FinishedAt, repo.outcomes[0].StartedAt)
}

// TestStoreSinkHandlesErrors surfaces repository failures back to the caller.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeOutcomeRepo{fail: true}
	sink := NewStoreSink(repo, nil)
	done := progress.Session{ID: uuid.New(), SolutionID: 9}.Event(progress.StageDone, judge.Progress{Result: judge.Accepted})
	err := sink.Consume(context.Background(), []progress.Event{done})
	require.ErrorIs(t, err, errRepo)

	var nilSink *StoreSink
	require.NoError(t, nilSink.Consume(context.Background(), []progress.Event{done}))
}

type fakeOutcomeRepo struct {
	fail     bool
	outcomes []store.Outcome
}

var errRepo = assertErr("repository down")

func (f *fakeOutcomeRepo) RecordOutcome(_ context.Context, outcome store.Outcome) error {
	if f.fail {
		return errRepo
	}
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakeOutcomeRepo) GetOutcome(context.Context, int) (store.Outcome, error) {
	return store.Outcome{}, store.ErrNotFound
}

func (f *fakeOutcomeRepo) ListOutcomes(context.Context, store.OutcomeFilter) ([]store.Outcome, error) {
	return f.outcomes, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
