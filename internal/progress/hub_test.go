package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
)

// TestHubBatchBySize verifies the hub flushes immediately once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	evt := sampleEvent(StageUpdate)
	hub.Emit(evt)
	hub.Emit(evt)
	require.Eventually(t, func() bool {
		batches := sink.Batches()
		return len(batches) == 1 && len(batches[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageUpdate))
	hub.Emit(sampleEvent(StageUpdate))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains buffered events and closes sinks.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	hub.Emit(sampleEvent(StageUpdate))
	hub.Emit(sampleEvent(StageDone))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 2)
	require.True(t, sink.closed)

	hub.Emit(sampleEvent(StageUpdate))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
}

// TestHubDiscardsInvalidEvents keeps malformed snapshots away from sinks.
func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, sink)

	notDone := sampleEvent(StageDone)
	notDone.Result = judge.Judging
	hub.Emit(notDone)
	hub.Emit(Event{})

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

// TestHubKeepsFlushingAfterSinkError logs sink failures and moves on.
func TestHubKeepsFlushingAfterSinkError(t *testing.T) {
	t.Parallel()

	failing := &stubSink{err: errors.New("boom")}
	ok := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, failing, nil, ok)
	hub.Emit(sampleEvent(StageUpdate))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, ok.Batches(), 1)
}

// TestEventValidate enforces the required snapshot fields.
func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleEvent(StageUpdate).Validate())

	for name, mutate := range map[string]func(*Event){
		"session":    func(e *Event) { e.SessionID = [16]byte{} },
		"timestamp":  func(e *Event) { e.TS = time.Time{} },
		"solution":   func(e *Event) { e.SolutionID = 0 },
		"stage":      func(e *Event) { e.Stage = "BOGUS" },
		"percentage": func(e *Event) { e.Percentage = 101 },
	} {
		evt := sampleEvent(StageUpdate)
		mutate(&evt)
		require.Error(t, evt.Validate(), name)
	}
}

// TestSessionStampsEvents copies the tracker state into events.
func TestSessionStampsEvents(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	s := Session{ID: id, SolutionID: 71234567, ProblemID: 1000, Language: 28, Now: func() time.Time { return at }}

	evt := s.Event(StageDone, judge.Progress{Percentage: 100, MemoryKB: 31120, TimeMS: 44, Result: judge.Accepted})
	require.Equal(t, id, evt.SessionUUID())
	require.Equal(t, at.UTC(), evt.TS)
	require.Equal(t, time.UTC, evt.TS.Location())
	require.Equal(t, judge.Accepted, evt.Result)
	require.Equal(t, 31120, evt.MemoryKB)
	require.NoError(t, evt.Validate())

	failed := s.Failed(judge.Progress{}, errors.New("stream closed"))
	require.Equal(t, StageError, failed.Stage)
	require.Equal(t, "stream closed", failed.Note)
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	err     error
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func sampleEvent(stage Stage) Event {
	result := judge.Judging
	if stage == StageDone {
		result = judge.Accepted
	}
	return Event{
		SessionID:  UUIDToBytes(uuid.New()),
		TS:         time.Now(),
		Stage:      stage,
		SolutionID: 71234567,
		ProblemID:  1000,
		Result:     result,
		Percentage: 40,
	}
}
