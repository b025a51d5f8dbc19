// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/config"
	"github.com/Nergy-TCGeneric/Zipline/internal/extract"
	collyfetcher "github.com/Nergy-TCGeneric/Zipline/internal/fetcher/colly"
	headlessfetcher "github.com/Nergy-TCGeneric/Zipline/internal/fetcher/headless"
	"github.com/Nergy-TCGeneric/Zipline/internal/headless/detector"
	"github.com/Nergy-TCGeneric/Zipline/internal/id/uuid"
	"github.com/Nergy-TCGeneric/Zipline/internal/metrics"
	"github.com/Nergy-TCGeneric/Zipline/internal/policy/ratelimit"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress/sinks"
	"github.com/Nergy-TCGeneric/Zipline/internal/publisher/pubsub"
	"github.com/Nergy-TCGeneric/Zipline/internal/pusher"
	"github.com/Nergy-TCGeneric/Zipline/internal/storage"
	"github.com/Nergy-TCGeneric/Zipline/internal/storage/postgres"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
	"github.com/Nergy-TCGeneric/Zipline/internal/telemetry"
)

// Version is reported in traces and the user agent.
var Version = "0.1.0"

// Site is the part of the BOJ client the commands use.
type Site interface {
	Categories(ctx context.Context) ([]extract.ProblemCategory, error)
	Problems(ctx context.Context, step int) ([]extract.ProblemPreview, error)
	Problem(ctx context.Context, id int) (extract.ProblemDetail, error)
	Username(ctx context.Context) (string, error)
	SubmitToken(ctx context.Context, id int) (string, error)
	Submit(ctx context.Context, form boj.SubmitForm) (extract.SubmitRecord, error)
	Submissions(ctx context.Context, user string, problemID int) ([]extract.SubmitRecord, error)
}

var (
	_ Site    = (*boj.Client)(nil)
	_ Channel = (*pusher.Client)(nil)
)

// App holds the shared services built from one configuration.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	site      Site
	outcomes  store.OutcomeRepository
	publisher sinks.Publisher
	promSink  *sinks.PrometheusSink
	closers   []closer
}

type closer struct {
	name string
	fn   func() error
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the watch collectors on reg instead of the
// default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// NewApp builds every service the configuration enables. It fails fast and
// releases whatever was already opened.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx, o); err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("application services initialized")
	return a, nil
}

func (a *App) init(ctx context.Context, o options) error {
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{ServiceName: "zipline", Version: Version})
	if err != nil {
		return err
	}
	a.addCloser("tracer provider", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})

	client, err := a.buildClient(ctx)
	if err != nil {
		return err
	}
	a.site = client

	if a.cfg.DB.DSN != "" {
		outcomes, err := postgres.NewOutcomeStore(ctx, postgres.Config{DSN: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
		if err != nil {
			return fmt.Errorf("init outcome store: %w", err)
		}
		a.addCloser("outcome store", func() error { outcomes.Close(); return nil })
		if err := outcomes.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("init outcome store: %w", err)
		}
		a.outcomes = outcomes
	}

	if a.cfg.PubSub.ProjectID != "" {
		pub, err := pubsub.New(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		a.addCloser("publisher", pub.Close)
		a.publisher = pub
	}

	promSink, err := sinks.NewPrometheusSink(o.registerer)
	if err != nil {
		return fmt.Errorf("init watch metrics: %w", err)
	}
	a.promSink = promSink

	if a.cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(a.cfg.Metrics.Addr, a.logger.Named("metrics"))
		if _, err := srv.Start(); err != nil {
			return err
		}
		a.addCloser("metrics server", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		})
	}
	return nil
}

func (a *App) buildClient(ctx context.Context) (*boj.Client, error) {
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.BOJ.UserAgent,
		Timeout:   a.cfg.BOJ.Timeout(),
	})
	opts := []boj.Option{
		boj.WithLogger(a.logger.Named("boj")),
		boj.WithPacer(ratelimit.New(ratelimit.Config{
			DefaultRPS:   a.cfg.BOJ.RatePerSecond,
			DefaultBurst: a.cfg.BOJ.Burst,
		})),
	}

	if a.cfg.Headless.Enabled {
		browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         a.cfg.BOJ.UserAgent,
			NavigationTimeout: a.cfg.Headless.NavTimeout(),
		})
		if err != nil {
			a.logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			a.addCloser("headless fetcher", func() error { browser.Close(); return nil })
			opts = append(opts, boj.WithHeadless(browser, detector.NewHeuristic(a.cfg.Headless.MinHTMLBytes, nil, nil)))
		}
	}

	snapshots, closeSnapshots, err := storage.Open(ctx, a.cfg.Snapshots.Storage(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("init snapshots: %w", err)
	}
	a.addCloser("snapshot store", closeSnapshots)
	if snapshots != nil {
		opts = append(opts, boj.WithSnapshots(snapshots))
	}

	client, err := boj.New(boj.Config{
		BaseURL:   a.cfg.BOJ.BaseURL,
		Cookie:    a.cfg.BOJ.Cookie,
		UserAgent: a.cfg.BOJ.UserAgent,
	}, fetcher, opts...)
	if err != nil {
		return nil, fmt.Errorf("init boj client: %w", err)
	}
	return client, nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Site returns the BOJ client.
func (a *App) Site() Site { return a.site }

// Outcomes returns the outcome repository, or nil when db.dsn is unset.
func (a *App) Outcomes() store.OutcomeRepository { return a.outcomes }

// NewHub builds a progress hub feeding every enabled sink.
func (a *App) NewHub() *progress.Hub {
	hubSinks := []progress.Sink{sinks.NewLogSink(a.logger.Named("watch"))}
	if a.promSink != nil {
		hubSinks = append(hubSinks, a.promSink)
	}
	if a.outcomes != nil {
		hubSinks = append(hubSinks, sinks.NewStoreSink(a.outcomes, a.logger))
	}
	if a.publisher != nil {
		hubSinks = append(hubSinks, sinks.NewPublishSink(a.publisher, a.cfg.PubSub.TopicName, a.logger))
	}
	return progress.NewHub(progress.Config{Logger: a.logger.Named("hub")}, hubSinks...)
}

// NewSubmitter builds the submission workflow on top of the app services.
func (a *App) NewSubmitter(emitter progress.Emitter) *Submitter {
	pusherCfg := pusher.Config{URL: a.cfg.Pusher.URL, IdleTimeout: a.cfg.Pusher.IdleTimeout()}
	dial := func(ctx context.Context) (Channel, error) {
		client, err := pusher.Dial(ctx, pusherCfg, a.logger.Named("pusher"))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return NewSubmitter(a.site, dial, SubmitterConfig{
		Emitter:   emitter,
		IDs:       uuid.NewUUIDGenerator(),
		Preferred: boj.Language(a.cfg.BOJ.Language),
		CodeOpen:  boj.CodeOpen(a.cfg.BOJ.CodeOpen),
		Logger:    a.logger.Named("submit"),
	})
}

// Close releases services in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
