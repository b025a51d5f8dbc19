package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/app"
	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
)

func newSubmitCmd() *cobra.Command {
	var (
		language int
		codeOpen string
	)
	cmd := &cobra.Command{
		Use:   "submit <id> <file>",
		Short: "Submits a source file and follows the judge",
		Long: `Submits a source file to a problem and shows the judge's progress until a
verdict arrives. The language is inferred from the file extension unless
--language is given; boj.language in the configuration breaks ties.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("problem", args[0])
			if err != nil {
				return err
			}
			req := app.SubmitRequest{ProblemID: id, Path: args[1], Language: boj.NoLanguage}
			if cmd.Flags().Changed("language") {
				if req.Language, err = boj.ParseLanguage(language); err != nil {
					return err
				}
			}
			if codeOpen != "" {
				if req.CodeOpen, err = boj.ParseCodeOpen(codeOpen); err != nil {
					return err
				}
			}
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runSubmit(cmd, a, req)
		},
	}
	cmd.Flags().IntVar(&language, "language", int(boj.NoLanguage), "language code to submit as")
	cmd.Flags().StringVar(&codeOpen, "code-open", "", "source visibility: open, close or onlyaccepted")
	return cmd
}

func runSubmit(cmd *cobra.Command, a App, req app.SubmitRequest) error {
	hub := a.NewHub()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(ctx); err != nil {
			a.Logger().Warn("failed to flush progress sinks", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	pw := &progressWriter{w: out}
	sub, err := a.NewSubmitter(hub).Run(cmd.Context(), req, pw.render)
	pw.finish()
	if err != nil {
		if sub.SolutionID > 0 {
			return fmt.Errorf("watch solution %d: %w", sub.SolutionID, err)
		}
		return err
	}
	fmt.Fprintf(out, "solution %d (%s): %s  memory %d KB  time %d ms\n",
		sub.SolutionID, sub.Language, colorResult(sub.Final.Result), sub.Final.MemoryKB, sub.Final.TimeMS)
	return nil
}
