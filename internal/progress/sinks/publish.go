package sinks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
)

// Publisher sends a payload to a topic and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// OutcomeMessage is the payload published for each finished submission.
type OutcomeMessage struct {
	SessionID  string    `json:"session_id"`
	SolutionID int       `json:"solution_id"`
	ProblemID  int       `json:"problem_id"`
	Language   int       `json:"language"`
	Result     string    `json:"result"`
	ResultCode int       `json:"result_code"`
	MemoryKB   int       `json:"memory_kb"`
	TimeMS     int       `json:"time_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// PublishSink announces terminal results on a topic.
type PublishSink struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublishSink publishes to topic through p.
func NewPublishSink(p Publisher, topic string, logger *zap.Logger) *PublishSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: p, topic: topic, logger: logger}
}

// Consume publishes one OutcomeMessage per StageDone event.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageDone {
			continue
		}
		msg := OutcomeMessage{
			SessionID:  evt.SessionUUID().String(),
			SolutionID: evt.SolutionID,
			ProblemID:  evt.ProblemID,
			Language:   evt.Language,
			Result:     evt.Result.String(),
			ResultCode: evt.Result.Code(),
			MemoryKB:   evt.MemoryKB,
			TimeMS:     evt.TimeMS,
			FinishedAt: evt.TS,
		}
		id, err := s.publisher.Publish(ctx, s.topic, msg)
		if err != nil {
			return fmt.Errorf("publish outcome %d: %w", evt.SolutionID, err)
		}
		s.logger.Debug("outcome published", zap.String("message_id", id), zap.Int("solution_id", evt.SolutionID))
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
