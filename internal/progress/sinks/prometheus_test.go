package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms follow a session.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	start := time.Now()
	session := progress.Session{ID: uuid.New(), SolutionID: 71234567, ProblemID: 1000, Now: func() time.Time { return start }}
	begin := session.Event(progress.StageStart, judge.Progress{})
	update := session.Event(progress.StageUpdate, judge.Progress{Percentage: 50, Result: judge.Judging})
	done := session.Event(progress.StageDone, judge.Progress{Percentage: 100, MemoryKB: 2020, TimeMS: 4, Result: judge.Accepted})
	done.TS = start.Add(8 * time.Second)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{begin, begin, update}))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.sessionsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.sessionsRunning))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{done}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.sessionsFinished.WithLabelValues("ACCEPTED")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.sessionsRunning))
	require.Equal(t, 1, testutil.CollectAndCount(sink.watchDuration, "zipline_watch_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.judgeMemory, "zipline_judge_memory_kb"))

	failed := progress.Session{ID: uuid.New(), SolutionID: 2}.Failed(judge.Progress{}, context.Canceled)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{failed}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.sessionsFinished.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.sessionsRunning))
}

// TestPrometheusSinkDuplicateRegistration reports collector clashes.
func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
