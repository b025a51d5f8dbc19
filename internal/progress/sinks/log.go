package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
)

// LogSink writes each snapshot as a structured debug log; terminal and error
// snapshots are logged at info and warn.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("session_id", evt.SessionUUID()),
			zap.String("stage", string(evt.Stage)),
			zap.Int("solution_id", evt.SolutionID),
			zap.Int("problem_id", evt.ProblemID),
			zap.Stringer("result", evt.Result),
			zap.Int("percentage", evt.Percentage),
			zap.Int("memory_kb", evt.MemoryKB),
			zap.Int("time_ms", evt.TimeMS),
		}
		switch evt.Stage {
		case progress.StageDone:
			s.logger.Info("judge finished", fields...)
		case progress.StageError:
			s.logger.Warn("watch failed", append(fields, zap.String("note", evt.Note))...)
		default:
			s.logger.Debug("judge progress", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
