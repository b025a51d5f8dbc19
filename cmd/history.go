package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/store"
)

// errNoOutcomeStore is returned by history when db.dsn is unset.
var errNoOutcomeStore = errors.New("history needs db.dsn to be configured")

func newHistoryCmd() *cobra.Command {
	var (
		problemID  int
		solutionID int
		result     int
		limit      int
		offset     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recorded judge outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			repo := a.Outcomes()
			if repo == nil {
				return errNoOutcomeStore
			}
			if solutionID > 0 {
				o, err := repo.GetOutcome(cmd.Context(), solutionID)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no such solution with given id %d: %w", solutionID, err)
				}
				if err != nil {
					return fmt.Errorf("read outcome: %w", err)
				}
				renderOutcomes(cmd, []store.Outcome{o})
				return nil
			}
			filter := store.OutcomeFilter{ProblemID: problemID, Limit: limit, Offset: offset}
			if cmd.Flags().Changed("result") {
				r, err := judge.ParseResult(result)
				if err != nil {
					return err
				}
				filter.Result = &r
			}
			outcomes, err := repo.ListOutcomes(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list outcomes: %w", err)
			}
			renderOutcomes(cmd, outcomes)
			return nil
		},
	}
	cmd.Flags().IntVar(&problemID, "problem", 0, "only outcomes of this problem")
	cmd.Flags().IntVar(&solutionID, "solution", 0, "show only this solution")
	cmd.Flags().IntVar(&result, "result", 0, "only outcomes with this result code")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func renderOutcomes(cmd *cobra.Command, outcomes []store.Outcome) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Solution", "Problem", "Language", "Result", "Memory", "Time", "Finished"})
	for _, o := range outcomes {
		t.AppendRow(table.Row{
			o.SolutionID,
			o.ProblemID,
			boj.Language(o.Language),
			colorResult(o.Result),
			fmt.Sprintf("%d KB", o.MemoryKB),
			fmt.Sprintf("%d ms", o.TimeMS),
			o.FinishedAt.Local().Format(time.DateTime),
		})
	}
	t.Render()
}
