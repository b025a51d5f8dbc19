// Package cmd defines and implements the CLI commands for the zipline executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/app"
	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/config"
	"github.com/Nergy-TCGeneric/Zipline/internal/logging"
	"github.com/Nergy-TCGeneric/Zipline/internal/progress"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Site() app.Site
	Outcomes() store.OutcomeRepository
	NewHub() *progress.Hub
	NewSubmitter(emitter progress.Emitter) *app.Submitter
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// installLogger is replaced in tests to keep the global logger untouched.
var installLogger = logging.Install

// session owns what PersistentPreRunE opened so it can be released even when
// the command fails.
type session struct {
	app     App
	restore func()
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd(s *session) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "zipline",
		Short: "A terminal client for the Baekjoon Online Judge.",
		Long: `zipline browses problem categories and problems of the Baekjoon Online
Judge, submits source files with the session cookie from configuration, and
follows the judge live until a verdict arrives.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flags are parsed but before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, restore, err := installLogger(cfg.Logging.Development)
			if err != nil {
				return err
			}
			s.restore = restore

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .env and ZIPLINE_* variables only)")

	cmd.AddCommand(
		newCategoryCmd(),
		newListCmd(),
		newProblemCmd(),
		newSubmitCmd(),
		newSubmissionsCmd(),
		newHistoryCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// run executes the command line and releases every service afterwards.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s := &session{}
	defer s.close()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// describe turns well-known failures into a hint for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, boj.ErrNotLoggedIn):
		return "not logged in: set boj.cookie (ZIPLINE_BOJ_COOKIE) to a valid session cookie"
	case errors.Is(err, boj.ErrUnknownLanguage):
		return err.Error() + ": pass --language with a language code"
	default:
		return err.Error()
	}
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "zipline:", describe(err))
		os.Exit(1)
	}
}
