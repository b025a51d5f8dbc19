// Package store declares interfaces for persisting judge outcomes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("outcome record not found")

// Outcome is the final state of one watched submission.
type Outcome struct {
	// SessionID identifies the watch that observed the result.
	SessionID uuid.UUID
	// SolutionID is the site's submission number.
	SolutionID int
	ProblemID  int
	// Language is the numeric language code, or -1 when unknown.
	Language   int
	Result     judge.Result
	MemoryKB   int
	TimeMS     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// OutcomeFilter narrows ListOutcomes. Zero fields match everything.
type OutcomeFilter struct {
	ProblemID int
	Result    *judge.Result
	Limit     int
	Offset    int
}

// OutcomeRepository persists terminal judge results.
type OutcomeRepository interface {
	// RecordOutcome inserts the outcome, replacing an earlier row for the same solution.
	RecordOutcome(ctx context.Context, outcome Outcome) error
	// GetOutcome loads one outcome or returns ErrNotFound.
	GetOutcome(ctx context.Context, solutionID int) (Outcome, error)
	// ListOutcomes returns outcomes newest first.
	ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]Outcome, error)
}
