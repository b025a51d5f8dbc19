// Package progress defines the snapshots emitted while a submission is judged.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageStart  Stage = "WATCH_START"
	StageUpdate Stage = "JUDGE_UPDATE"
	StageDone   Stage = "JUDGE_DONE"
	StageError  Stage = "WATCH_ERROR"
)

// Event is a snapshot of one watched submission.
type Event struct {
	// SessionID identifies the watch using the 16-byte UUID form.
	SessionID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage

	SolutionID int
	ProblemID  int
	// Language is the numeric language code, -1 when unknown.
	Language int

	Result     judge.Result
	Percentage int
	MemoryKB   int
	TimeMS     int

	// Note carries the error text of a StageError event.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SessionID == [16]byte{} {
		return errors.New("session id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.SolutionID <= 0 {
		return errors.New("solution id is required")
	}
	switch e.Stage {
	case StageStart, StageUpdate, StageError:
	case StageDone:
		if !e.Result.IsTerminal() {
			return fmt.Errorf("done event with non-terminal result %s", e.Result)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Percentage < 0 || e.Percentage > 100 {
		return fmt.Errorf("percentage %d out of range", e.Percentage)
	}
	return nil
}

// SessionUUID converts the binary session ID to uuid.UUID for repositories.
func (e Event) SessionUUID() uuid.UUID {
	return uuid.UUID(e.SessionID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// Session stamps events for one watched submission.
type Session struct {
	ID         uuid.UUID
	SolutionID int
	ProblemID  int
	Language   int
	Now        func() time.Time
}

// Event builds a snapshot of p at stage.
func (s Session) Event(stage Stage, p judge.Progress) Event {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Event{
		SessionID:  UUIDToBytes(s.ID),
		TS:         now().UTC(),
		Stage:      stage,
		SolutionID: s.SolutionID,
		ProblemID:  s.ProblemID,
		Language:   s.Language,
		Result:     p.Result,
		Percentage: p.Percentage,
		MemoryKB:   p.MemoryKB,
		TimeMS:     p.TimeMS,
	}
}

// Failed builds a StageError event carrying err.
func (s Session) Failed(p judge.Progress, err error) Event {
	evt := s.Event(StageError, p)
	if err != nil {
		evt.Note = err.Error()
	}
	return evt
}
