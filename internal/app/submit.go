package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	guuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/metrics"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/pusher"
)

var tracer = otel.Tracer("github.com/Nergy-TCGeneric/Zipline/internal/app")

// Channel is a subscribed push connection.
type Channel interface {
	judge.Receiver
	Subscribe(ctx context.Context, channel string) error
	Close() error
}

// ChannelDialer opens a push connection.
type ChannelDialer func(ctx context.Context) (Channel, error)

// SessionIDs hands out watch session ids.
type SessionIDs interface {
	NewSessionID() (guuid.UUID, error)
}

// SubmitterConfig carries the optional collaborators of a Submitter.
type SubmitterConfig struct {
	Emitter progress.Emitter
	IDs     SessionIDs
	// Preferred breaks ties when several languages share an extension.
	Preferred boj.Language
	// CodeOpen is used when a request leaves it empty.
	CodeOpen boj.CodeOpen
	Logger   *zap.Logger
	Now      func() time.Time
}

// SubmitRequest describes one source file to submit.
type SubmitRequest struct {
	ProblemID int
	Path      string
	// Language overrides inference when not boj.NoLanguage.
	Language boj.Language
	CodeOpen boj.CodeOpen
}

// Submission is what the site and the push channel reported.
type Submission struct {
	User       string
	SolutionID int
	Language   boj.Language
	SessionID  guuid.UUID
	Final      judge.Progress
}

// Submitter runs the submit flow: login check, token, language, post, then
// the live watch until a terminal result.
type Submitter struct {
	site Site
	dial ChannelDialer
	cfg  SubmitterConfig
}

// NewSubmitter wires a Submitter.
func NewSubmitter(site Site, dial ChannelDialer, cfg SubmitterConfig) *Submitter {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CodeOpen == "" {
		cfg.CodeOpen = boj.CodeOpenOnlyAccepted
	}
	return &Submitter{site: site, dial: dial, cfg: cfg}
}

// Run submits req and blocks until judging ends, calling render after every
// merged update.
func (s *Submitter) Run(ctx context.Context, req SubmitRequest, render judge.RenderFunc) (_ Submission, err error) {
	ctx, span := tracer.Start(ctx, "zipline.submit", trace.WithAttributes(attribute.Int("boj.problem_id", req.ProblemID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	user, err := s.site.Username(ctx)
	if err != nil {
		return Submission{}, err
	}
	source, err := os.ReadFile(req.Path)
	if err != nil {
		return Submission{}, fmt.Errorf("read source: %w", err)
	}
	lang := req.Language
	if lang == boj.NoLanguage {
		lang, err = boj.InferLanguage(req.Path, s.cfg.Preferred)
		if err != nil {
			return Submission{}, err
		}
	}
	codeOpen := req.CodeOpen
	if codeOpen == "" {
		codeOpen = s.cfg.CodeOpen
	}
	token, err := s.site.SubmitToken(ctx, req.ProblemID)
	if err != nil {
		return Submission{}, err
	}
	record, err := s.site.Submit(ctx, boj.SubmitForm{
		ProblemID: req.ProblemID,
		Language:  lang,
		CodeOpen:  codeOpen,
		Source:    string(source),
		CSRFKey:   token,
	})
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{User: user, SolutionID: record.SolutionID, Language: lang}
	span.SetAttributes(attribute.Int("boj.solution_id", sub.SolutionID))
	session, err := s.session(sub, req.ProblemID)
	if err != nil {
		return sub, err
	}
	sub.SessionID = session.ID

	tracker := judge.NewTracker()
	s.emit(session.Event(progress.StageStart, tracker.Progress()))
	if record.StatusCode.IsTerminal() {
		// Judged before the channel could be joined; no updates will follow.
		sub.Final = judge.Progress{Percentage: 100, Result: record.StatusCode}
		if render != nil {
			render(sub.Final)
		}
		s.emit(session.Event(progress.StageDone, sub.Final))
		return sub, nil
	}

	final, err := s.watch(ctx, user, session, tracker, render)
	sub.Final = final
	if err != nil {
		s.emit(session.Failed(final, err))
		return sub, err
	}
	s.emit(session.Event(progress.StageDone, final))
	return sub, nil
}

func (s *Submitter) watch(ctx context.Context, user string, session progress.Session, tracker *judge.Tracker, render judge.RenderFunc) (judge.Progress, error) {
	if s.dial == nil {
		return tracker.Progress(), errors.New("no push channel configured")
	}
	ch, err := s.dial(ctx)
	if err != nil {
		return tracker.Progress(), err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			s.cfg.Logger.Debug("closing push channel", zap.Error(cerr))
		}
	}()
	channel := pusher.ChannelForSolution(session.SolutionID)
	if err := ch.Subscribe(ctx, channel); err != nil {
		return tracker.Progress(), fmt.Errorf("subscribe %s: %w", channel, err)
	}
	// A verdict published before the subscription took effect is never pushed.
	if result, ok := s.recheck(ctx, user, session); ok {
		final := judge.Progress{Percentage: 100, Result: result}
		if render != nil {
			render(final)
		}
		metrics.ObserveJudgeOutcome(result.String())
		return final, nil
	}
	final, err := judge.Watch(ctx, ch, tracker, func(p judge.Progress) {
		metrics.ObserveJudgeUpdate(p.Result.String())
		s.emit(session.Event(progress.StageUpdate, p))
		if render != nil {
			render(p)
		}
	}, s.cfg.Logger)
	if err == nil {
		metrics.ObserveJudgeOutcome(final.Result.String())
	}
	return final, err
}

// recheck reads the status page once more and reports the result of the
// session's solution if it is already terminal. Failures only cost the
// shortcut.
func (s *Submitter) recheck(ctx context.Context, user string, session progress.Session) (judge.Result, bool) {
	records, err := s.site.Submissions(ctx, user, session.ProblemID)
	if err != nil {
		s.cfg.Logger.Debug("rechecking submission status", zap.Int("solution_id", session.SolutionID), zap.Error(err))
		return judge.Result{}, false
	}
	for _, r := range records {
		if r.SolutionID == session.SolutionID {
			return r.StatusCode, r.StatusCode.IsTerminal()
		}
	}
	return judge.Result{}, false
}

func (s *Submitter) session(sub Submission, problemID int) (progress.Session, error) {
	id := guuid.New()
	if s.cfg.IDs != nil {
		var err error
		if id, err = s.cfg.IDs.NewSessionID(); err != nil {
			return progress.Session{}, err
		}
	}
	return progress.Session{
		ID:         id,
		SolutionID: sub.SolutionID,
		ProblemID:  problemID,
		Language:   int(sub.Language),
		Now:        s.cfg.Now,
	}, nil
}

func (s *Submitter) emit(evt progress.Event) {
	if s.cfg.Emitter != nil {
		s.cfg.Emitter.Emit(evt)
	}
}
