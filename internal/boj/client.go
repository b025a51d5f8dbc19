package boj

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/extract"
	"github.com/Nergy-TCGeneric/Zipline/internal/metrics"
)

var tracer = otel.Tracer("github.com/Nergy-TCGeneric/Zipline/internal/boj")

// Pacer spaces out requests to the site.
type Pacer interface {
	Wait(ctx context.Context, url string) error
}

// Config carries the session and identity sent with every request.
type Config struct {
	BaseURL   string
	Cookie    string
	UserAgent string
}

// Client reads pages and posts submissions. It performs no retries.
type Client struct {
	cfg       Config
	routes    Routes
	fetcher   Fetcher
	headless  Fetcher
	detector  HeadlessDetector
	pacer     Pacer
	snapshots SnapshotStore
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHeadless enables browser re-fetches for pages the detector rejects.
func WithHeadless(f Fetcher, d HeadlessDetector) Option {
	return func(c *Client) {
		c.headless = f
		c.detector = d
	}
}

// WithPacer sets the request pacer.
func WithPacer(p Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithSnapshots stores every fetched page.
func WithSnapshots(s SnapshotStore) Option {
	return func(c *Client) { c.snapshots = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client on top of fetcher.
func New(cfg Config, fetcher Fetcher, opts ...Option) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("boj client requires a fetcher")
	}
	routes, err := NewRoutes(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		routes:  routes,
		fetcher: fetcher,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Routes exposes the URL builder.
func (c *Client) Routes() Routes {
	return c.routes
}

// Categories lists the step categories.
func (c *Client) Categories(ctx context.Context) ([]extract.ProblemCategory, error) {
	body, err := c.page(ctx, Request{Kind: PageSteps, URL: c.routes.Steps()})
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	out, err := extract.Categories(body)
	c.observeExtraction(PageSteps, err)
	if err != nil {
		return nil, fmt.Errorf("extract categories: %w", err)
	}
	return out, nil
}

// Problems lists the problems of step.
func (c *Client) Problems(ctx context.Context, step int) ([]extract.ProblemPreview, error) {
	body, err := c.page(ctx, Request{Kind: PageStep, URL: c.routes.Step(step)})
	if err != nil {
		return nil, fmt.Errorf("fetch step %d: %w", step, err)
	}
	out, err := extract.Previews(body)
	c.observeExtraction(PageStep, err)
	if err != nil {
		return nil, fmt.Errorf("extract step %d: %w", step, err)
	}
	return out, nil
}

// Problem reads one problem page.
func (c *Client) Problem(ctx context.Context, id int) (extract.ProblemDetail, error) {
	body, err := c.page(ctx, Request{Kind: PageProblem, URL: c.routes.Problem(id)})
	if err != nil {
		return extract.ProblemDetail{}, fmt.Errorf("fetch problem %d: %w", id, err)
	}
	out, err := extract.Detail(body)
	c.observeExtraction(PageProblem, err)
	if err != nil {
		return extract.ProblemDetail{}, fmt.Errorf("extract problem %d: %w", id, err)
	}
	return out, nil
}

// Username returns the logged-in user or ErrNotLoggedIn.
func (c *Client) Username(ctx context.Context) (string, error) {
	body, err := c.page(ctx, Request{Kind: PageSteps, URL: c.routes.Steps()})
	if err != nil {
		return "", fmt.Errorf("fetch session page: %w", err)
	}
	name, ok := extract.Username(body)
	if !ok {
		return "", ErrNotLoggedIn
	}
	return name, nil
}

// SubmitToken reads the csrf key from the submit page of problem id.
func (c *Client) SubmitToken(ctx context.Context, id int) (string, error) {
	body, err := c.page(ctx, Request{Kind: PageSubmit, URL: c.routes.Submit(id)})
	if err != nil {
		return "", fmt.Errorf("fetch submit page %d: %w", id, err)
	}
	token, ok := extract.CSRFToken(body)
	if !ok {
		return "", ErrNoCSRFToken
	}
	return token, nil
}

// Submit posts form and returns the newest entry of the status page the
// site redirects to, which is the submission just made.
func (c *Client) Submit(ctx context.Context, form SubmitForm) (extract.SubmitRecord, error) {
	if err := form.Validate(); err != nil {
		return extract.SubmitRecord{}, err
	}
	body, err := c.page(ctx, Request{Kind: PageSubmit, URL: c.routes.Submit(form.ProblemID), Form: form.Values()})
	if err != nil {
		return extract.SubmitRecord{}, fmt.Errorf("post submission: %w", err)
	}
	records, err := extract.SubmitList(body)
	c.observeExtraction(PageStatus, err)
	if err != nil {
		return extract.SubmitRecord{}, fmt.Errorf("read status page: %w", err)
	}
	if len(records) == 0 {
		return extract.SubmitRecord{}, ErrNoSubmission
	}
	c.logger.Info("submission accepted",
		zap.Int("problem_id", form.ProblemID),
		zap.Int("solution_id", records[0].SolutionID),
		zap.Stringer("language", form.Language),
	)
	return records[0], nil
}

// Submissions lists submissions on the status page, newest first.
func (c *Client) Submissions(ctx context.Context, user string, problemID int) ([]extract.SubmitRecord, error) {
	body, err := c.page(ctx, Request{Kind: PageStatus, URL: c.routes.Status(user, problemID)})
	if err != nil {
		return nil, fmt.Errorf("fetch status page: %w", err)
	}
	out, err := extract.SubmitList(body)
	c.observeExtraction(PageStatus, err)
	if err != nil {
		return nil, fmt.Errorf("read status page: %w", err)
	}
	return out, nil
}

func (c *Client) page(ctx context.Context, req Request) (string, error) {
	resp, err := c.fetch(ctx, req)
	if err != nil {
		return "", err
	}
	c.snapshot(ctx, req, resp)
	return string(resp.Body), nil
}

func (c *Client) fetch(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "boj.fetch", trace.WithAttributes(
		attribute.String("boj.page_kind", string(req.Kind)),
		attribute.String("http.method", req.Method()),
		attribute.String("url.full", req.URL),
	))
	defer span.End()

	req.Headers = c.headers(req.Headers)
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx, req.URL); err != nil {
			span.RecordError(err)
			return Response{}, err
		}
	}
	resp, err := c.fetcher.Fetch(ctx, req)
	metrics.ObservePage(string(req.Kind), fetchStatus(resp, err), len(resp.Body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("page fetched",
		zap.String("kind", string(req.Kind)),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
	)

	if c.headless == nil || c.detector == nil || req.Form != nil || !c.detector.ShouldPromote(req, resp) {
		return resp, nil
	}
	c.logger.Info("promoting page to headless fetch", zap.String("url", req.URL))
	span.AddEvent("headless promotion")
	metrics.ObserveHeadlessPromotion(string(req.Kind))
	rendered, err := c.headless.Fetch(ctx, req)
	if err != nil {
		c.logger.Warn("headless fetch failed, keeping plain response", zap.String("url", req.URL), zap.Error(err))
		return resp, nil
	}
	return rendered, nil
}

func (c *Client) headers(extra http.Header) http.Header {
	h := http.Header{}
	for k, v := range extra {
		h[k] = append([]string(nil), v...)
	}
	if c.cfg.Cookie != "" {
		h.Set("Cookie", c.cfg.Cookie)
	}
	if c.cfg.UserAgent != "" {
		h.Set("User-Agent", c.cfg.UserAgent)
	}
	return h
}

func (c *Client) snapshot(ctx context.Context, req Request, resp Response) {
	if c.snapshots == nil {
		return
	}
	path := fmt.Sprintf("%s/%s.html", req.Kind, c.now().UTC().Format("20060102T150405.000000000"))
	uri, err := c.snapshots.PutObject(ctx, path, "text/html; charset=utf-8", bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Warn("page snapshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	c.logger.Debug("page snapshot stored", zap.String("uri", uri))
}

func (c *Client) observeExtraction(kind PageKind, err error) {
	metrics.ObserveExtraction(string(kind), extract.Class(err))
	if err != nil {
		c.logger.Warn("extraction failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func fetchStatus(resp Response, err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case err != nil:
		return "error"
	case resp.StatusCode >= 400:
		return "http_error"
	default:
		return "ok"
	}
}
