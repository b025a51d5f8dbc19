package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/app"
	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/config"
	"github.com/Nergy-TCGeneric/Zipline/internal/extract"
	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

type fakeSite struct {
	categories  []extract.ProblemCategory
	previews    []extract.ProblemPreview
	problemsErr error
	detail      extract.ProblemDetail
	detailErr   error
	user        string
	userErr     error
	record      extract.SubmitRecord
	history     []extract.SubmitRecord
}

func (f *fakeSite) Categories(context.Context) ([]extract.ProblemCategory, error) {
	return f.categories, nil
}

func (f *fakeSite) Problems(context.Context, int) ([]extract.ProblemPreview, error) {
	return f.previews, f.problemsErr
}

func (f *fakeSite) Problem(context.Context, int) (extract.ProblemDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeSite) Username(context.Context) (string, error) { return f.user, f.userErr }

func (f *fakeSite) SubmitToken(context.Context, int) (string, error) { return "c0ffee", nil }

func (f *fakeSite) Submit(context.Context, boj.SubmitForm) (extract.SubmitRecord, error) {
	return f.record, nil
}

func (f *fakeSite) Submissions(context.Context, string, int) ([]extract.SubmitRecord, error) {
	return f.history, nil
}

type scriptedChannel struct{ msgs []string }

func (c *scriptedChannel) Subscribe(context.Context, string) error { return nil }

func (c *scriptedChannel) Receive(context.Context) ([]byte, error) {
	if len(c.msgs) == 0 {
		return nil, nil
	}
	msg := c.msgs[0]
	c.msgs = c.msgs[1:]
	return []byte(msg), nil
}

func (c *scriptedChannel) Close() error { return nil }

type fakeOutcomes struct {
	outcomes []store.Outcome
	filter   store.OutcomeFilter
}

func (f *fakeOutcomes) RecordOutcome(context.Context, store.Outcome) error { return nil }

func (f *fakeOutcomes) GetOutcome(context.Context, int) (store.Outcome, error) {
	return store.Outcome{}, store.ErrNotFound
}

func (f *fakeOutcomes) ListOutcomes(_ context.Context, filter store.OutcomeFilter) ([]store.Outcome, error) {
	f.filter = filter
	return f.outcomes, nil
}

type fakeApp struct {
	site     *fakeSite
	channel  *scriptedChannel
	outcomes store.OutcomeRepository
	closed   bool
}

func (f *fakeApp) Close()                            { f.closed = true }
func (f *fakeApp) Logger() *zap.Logger               { return zap.NewNop() }
func (f *fakeApp) Config() config.Config             { return config.Config{} }
func (f *fakeApp) Site() app.Site                    { return f.site }
func (f *fakeApp) Outcomes() store.OutcomeRepository { return f.outcomes }
func (f *fakeApp) NewHub() *progress.Hub             { return progress.NewHub(progress.Config{}) }

func (f *fakeApp) NewSubmitter(emitter progress.Emitter) *app.Submitter {
	dial := func(context.Context) (app.Channel, error) { return f.channel, nil }
	return app.NewSubmitter(f.site, dial, app.SubmitterConfig{Emitter: emitter})
}

// execute runs the CLI against fake, swapping the factories for the test.
func execute(t *testing.T, fake *fakeApp, args ...string) (string, error) {
	t.Helper()
	origApp, origLogger := newApp, installLogger
	t.Cleanup(func() {
		newApp = origApp
		installLogger = origLogger
	})
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) { return fake, nil }
	installLogger = func(bool) (*zap.Logger, func(), error) { return zap.NewNop(), func() {}, nil }

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

// TestCategoryCommandRendersTable prints every category and closes the app.
func TestCategoryCommandRendersTable(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{categories: []extract.ProblemCategory{
		{ID: 1, Title: "입출력과 사칙연산", Description: "입력, 출력과 사칙연산을 연습해 봅시다.", TotalCount: 3, SolvedCount: 3},
		{ID: 4, Title: "1차원 배열", Description: "배열을 사용해 봅시다.", TotalCount: extract.UnknownCount, SolvedCount: 1},
	}}}
	out, err := execute(t, fake, "category")
	require.NoError(t, err)
	require.Contains(t, out, "입출력과 사칙연산")
	require.Contains(t, out, "3/3")
	require.Contains(t, out, "1/?")
	require.True(t, fake.closed)
}

// TestListCommand prints previews with their acceptance ratio.
func TestListCommand(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{previews: []extract.ProblemPreview{
		{ID: 1000, Title: "A+B", AcceptedSubmits: 50, Submits: 100, Accepted: true},
	}}}
	out, err := execute(t, fake, "list", "1")
	require.NoError(t, err)
	require.Contains(t, out, "A+B")
	require.Contains(t, out, "50.00%")
}

// TestListCommandNotFound names the missing step.
func TestListCommandNotFound(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{problemsErr: boj.ErrNotFound}}
	_, err := execute(t, fake, "list", "999")
	require.ErrorIs(t, err, boj.ErrNotFound)
	require.ErrorContains(t, err, "no such step with given id 999")
}

// TestProblemCommand prints the statement sections and samples.
func TestProblemCommand(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{detail: extract.ProblemDetail{
		Preview:     extract.ProblemPreview{ID: 1000, Title: "A+B", Submits: 10, AcceptedSubmits: 4},
		TimeLimit:   "2 초",
		MemoryLimit: "128 MB",
		Description: "두 정수 A와 B를 입력받은 다음, A+B를 출력하는 프로그램을 작성하시오.",
		Input:       "첫째 줄에 A와 B가 주어진다.",
		Output:      "첫째 줄에 A+B를 출력한다.",
		Samples:     []extract.Sample{{Index: 1, Input: "1 2\n", Output: "3\n"}},
	}}}
	out, err := execute(t, fake, "problem", "1000")
	require.NoError(t, err)
	require.Contains(t, out, "1000. A+B")
	require.Contains(t, out, "128 MB")
	require.Contains(t, out, "Sample input 1")
	require.Contains(t, out, "첫째 줄에 A+B를 출력한다.")
	require.NotContains(t, out, "Hint")
}

// TestProblemCommandNotFound reports a missing problem distinctly.
func TestProblemCommandNotFound(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{detailErr: boj.ErrNotFound}}
	_, err := execute(t, fake, "problem", "1000")
	require.ErrorIs(t, err, boj.ErrNotFound)
	require.ErrorContains(t, err, "no such problem with given id 1000")
}

// TestProblemCommandRejectsBadID validates the argument.
func TestProblemCommandRejectsBadID(t *testing.T) {
	_, err := execute(t, &fakeApp{site: &fakeSite{}}, "problem", "abc")
	require.ErrorContains(t, err, `invalid problem id "abc"`)
}

// TestSubmitCommandFollowsJudge renders progress and the verdict line.
func TestSubmitCommandFollowsJudge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print(sum(map(int, input().split())))\n"), 0o600))

	fake := &fakeApp{
		site: &fakeSite{user: "solver", record: extract.SubmitRecord{SolutionID: 42}},
		channel: &scriptedChannel{msgs: []string{
			`{"event":"update","data":"{\"result\":3,\"progress\":50}"}`,
			`{"event":"update","data":"{\"result\":4,\"progress\":100,\"memory\":2020,\"time\":4}"}`,
		}},
	}
	out, err := execute(t, fake, "submit", "1000", path, "--language", "28")
	require.NoError(t, err)
	require.Contains(t, out, "100%")
	require.Contains(t, out, "solution 42 (Python 3)")
	require.Contains(t, out, judge.Accepted.Message())
	require.Contains(t, out, "memory 2020 KB")
}

// TestSubmitCommandRejectsUnknownLanguage validates --language before any request.
func TestSubmitCommandRejectsUnknownLanguage(t *testing.T) {
	_, err := execute(t, &fakeApp{site: &fakeSite{}}, "submit", "1000", "main.py", "--language", "9999")
	require.ErrorIs(t, err, boj.ErrUnknownLanguage)
}

// TestSubmissionsCommand lists the user's status page entries.
func TestSubmissionsCommand(t *testing.T) {
	fake := &fakeApp{site: &fakeSite{user: "solver", history: []extract.SubmitRecord{
		{SolutionID: 71234567, StatusCode: judge.WrongAnswer},
	}}}
	out, err := execute(t, fake, "submissions", "1000")
	require.NoError(t, err)
	require.Contains(t, out, "71234567")
	require.Contains(t, out, judge.WrongAnswer.Message())
}

// TestHistoryCommandNeedsStore fails without a database.
func TestHistoryCommandNeedsStore(t *testing.T) {
	_, err := execute(t, &fakeApp{site: &fakeSite{}}, "history")
	require.ErrorIs(t, err, errNoOutcomeStore)
}

// TestHistoryCommandFilters passes flags through to the repository.
func TestHistoryCommandFilters(t *testing.T) {
	repo := &fakeOutcomes{outcomes: []store.Outcome{{
		SolutionID: 71234567,
		ProblemID:  1000,
		Language:   28,
		Result:     judge.Accepted,
		MemoryKB:   2020,
		TimeMS:     4,
		FinishedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}}}
	out, err := execute(t, &fakeApp{site: &fakeSite{}, outcomes: repo}, "history", "--problem", "1000", "--result", "4", "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "71234567")
	require.Contains(t, out, "Python 3")
	require.Equal(t, 1000, repo.filter.ProblemID)
	require.Equal(t, 5, repo.filter.Limit)
	require.NotNil(t, repo.filter.Result)
	require.Equal(t, judge.Accepted, *repo.filter.Result)
}

// TestHistoryCommandSolutionNotFound maps a missing row to a readable error.
func TestHistoryCommandSolutionNotFound(t *testing.T) {
	_, err := execute(t, &fakeApp{site: &fakeSite{}, outcomes: &fakeOutcomes{}}, "history", "--solution", "7")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorContains(t, err, "no such solution with given id 7")
}

// TestDescribe adds hints for common failures.
func TestDescribe(t *testing.T) {
	require.Contains(t, describe(boj.ErrNotLoggedIn), "ZIPLINE_BOJ_COOKIE")
	require.Contains(t, describe(errors.Join(boj.ErrUnknownLanguage)), "--language")
	require.Equal(t, "boom", describe(errors.New("boom")))
}
