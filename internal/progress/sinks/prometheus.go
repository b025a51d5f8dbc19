package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
)

// PrometheusSink exports watch session metrics: sessions started and
// running, outcomes by result, and judged time and memory.
type PrometheusSink struct {
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	sessionsRunning  prometheus.Gauge
	watchDuration    *prometheus.HistogramVec

	judgeTime   *prometheus.HistogramVec
	judgeMemory *prometheus.HistogramVec

	tracker *sessionTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zipline_watch_sessions_started_total",
			Help: "Total judge watch sessions started.",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zipline_watch_sessions_finished_total",
			Help: "Total judge watch sessions finished, partitioned by result.",
		}, []string{"result"}),
		sessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zipline_watch_sessions_running",
			Help: "Current number of running watch sessions.",
		}),
		watchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zipline_watch_duration_seconds",
			Help:    "Wall time from subscription to terminal result.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60, 120, 300},
		}, []string{"result"}),
		judgeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zipline_judge_time_ms",
			Help:    "Execution time reported by the judge.",
			Buckets: []float64{0, 4, 16, 64, 256, 1000, 2000, 5000},
		}, []string{"result"}),
		judgeMemory: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zipline_judge_memory_kb",
			Help:    "Memory usage reported by the judge.",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
		}, []string{"result"}),
		tracker: newSessionTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.sessionsStarted,
		s.sessionsFinished,
		s.sessionsRunning,
		s.watchDuration,
		s.judgeTime,
		s.judgeMemory,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageStart:
			s.sessionsStarted.Inc()
			if s.tracker.start(evt.SessionID, evt.TS) {
				s.sessionsRunning.Inc()
			}
		case progress.StageDone:
			label := evt.Result.String()
			s.sessionsFinished.WithLabelValues(label).Inc()
			s.judgeTime.WithLabelValues(label).Observe(float64(evt.TimeMS))
			s.judgeMemory.WithLabelValues(label).Observe(float64(evt.MemoryKB))
			s.finish(evt, label)
		case progress.StageError:
			s.sessionsFinished.WithLabelValues("error").Inc()
			s.finish(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) finish(evt progress.Event, label string) {
	started, ok := s.tracker.complete(evt.SessionID)
	if !ok {
		return
	}
	s.sessionsRunning.Dec()
	if d := evt.TS.Sub(started); d > 0 {
		s.watchDuration.WithLabelValues(label).Observe(d.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type sessionTracker struct {
	mu      sync.Mutex
	running map[[16]byte]time.Time
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{running: make(map[[16]byte]time.Time)}
}

func (t *sessionTracker) start(id [16]byte, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = at
	return true
}

func (t *sessionTracker) complete(id [16]byte) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.running[id]
	if ok {
		delete(t.running, id)
	}
	return at, ok
}
