package sinks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/publisher/memory"
)

// TestPublishSinkAnnouncesOutcomes publishes terminal snapshots only.
func TestPublishSinkAnnouncesOutcomes(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	sink := NewPublishSink(pub, "judge-outcomes", nil)
	session := progress.Session{ID: uuid.New(), SolutionID: 71234567, ProblemID: 1000, Language: 12}

	batch := []progress.Event{
		session.Event(progress.StageStart, judge.Progress{}),
		session.Event(progress.StageUpdate, judge.Progress{Percentage: 10, Result: judge.Judging}),
		session.Event(progress.StageDone, judge.Progress{Percentage: 100, MemoryKB: 1024, TimeMS: 8, Result: judge.WrongAnswer}),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "judge-outcomes", msgs[0].Topic)
	payload, ok := msgs[0].Payload.(OutcomeMessage)
	require.True(t, ok)
	require.Equal(t, "WRONG_ANSWER", payload.Result)
	require.Equal(t, judge.WrongAnswer.Code(), payload.ResultCode)
	require.Equal(t, session.ID.String(), payload.SessionID)
	require.NoError(t, sink.Close(context.Background()))
}

// TestLogSinkAcceptsEveryStage never fails on a mixed batch.
func TestLogSinkAcceptsEveryStage(t *testing.T) {
	t.Parallel()

	session := progress.Session{ID: uuid.New(), SolutionID: 5}
	sink := NewLogSink(zap.NewExample())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		session.Event(progress.StageStart, judge.Progress{}),
		session.Event(progress.StageDone, judge.Progress{Result: judge.Accepted}),
		session.Failed(judge.Progress{}, context.DeadlineExceeded),
	}))
	require.NoError(t, NewLogSink(nil).Close(context.Background()))
}
