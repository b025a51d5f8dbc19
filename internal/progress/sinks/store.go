package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

// StoreSink persists terminal snapshots through a store.OutcomeRepository.
// Start events are remembered so the stored outcome carries its start time.
type StoreSink struct {
	repo   store.OutcomeRepository
	logger *zap.Logger

	mu      sync.Mutex
	started map[[16]byte]time.Time
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.OutcomeRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger, started: make(map[[16]byte]time.Time)}
}

// Consume records one outcome per StageDone event and returns the first
// repository error.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageStart:
			s.remember(evt)
		case progress.StageDone:
			outcome := store.Outcome{
				SessionID:  evt.SessionUUID(),
				SolutionID: evt.SolutionID,
				ProblemID:  evt.ProblemID,
				Language:   evt.Language,
				Result:     evt.Result,
				MemoryKB:   evt.MemoryKB,
				TimeMS:     evt.TimeMS,
				StartedAt:  s.forget(evt),
				FinishedAt: evt.TS,
			}
			if err := s.repo.RecordOutcome(ctx, outcome); err != nil {
				return fmt.Errorf("record outcome %d: %w", evt.SolutionID, err)
			}
			s.logger.Debug("outcome stored", zap.Int("solution_id", evt.SolutionID))
		case progress.StageError:
			s.forget(evt)
		}
	}
	return nil
}

func (s *StoreSink) remember(evt progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.started[evt.SessionID]; !ok {
		s.started[evt.SessionID] = evt.TS
	}
}

func (s *StoreSink) forget(evt progress.Event) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.started[evt.SessionID]
	if !ok {
		return evt.TS
	}
	delete(s.started, evt.SessionID)
	return at
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
