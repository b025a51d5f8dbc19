package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/extract"
)

func newCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "category",
		Aliases: []string{"steps"},
		Short:   "Lists the problem categories",
		Long:    "Lists the step-by-step problem categories. Fully solved categories are shown in green.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			categories, err := a.Site().Categories(cmd.Context())
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Step", "Title", "Description", "Solved"})
			for _, c := range categories {
				title := c.Title
				if c.Completed() {
					title = accepted.Sprint(title)
				}
				t.AppendRow(table.Row{c.ID, title, c.Description, fmt.Sprintf("%d/%s", c.SolvedCount, formatCount(c.TotalCount))})
			}
			t.Render()
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <step>",
		Short: "Lists the problems of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := parseID("step", args[0])
			if err != nil {
				return err
			}
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			previews, err := a.Site().Problems(cmd.Context(), step)
			if errors.Is(err, boj.ErrNotFound) {
				return fmt.Errorf("no such step with given id %d: %w", step, err)
			}
			if err != nil {
				return fmt.Errorf("list step %d: %w", step, err)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Title", "Label", "Accepted", "Submits", "Ratio"})
			for _, p := range previews {
				t.AppendRow(previewRow(p))
			}
			t.Render()
			return nil
		},
	}
}

func previewRow(p extract.ProblemPreview) table.Row {
	title := p.Title
	if p.Accepted {
		title = accepted.Sprint(title)
	}
	return table.Row{p.ID, title, p.Label, p.AcceptedSubmits, p.Submits, ratio(p.AcceptedSubmits, p.Submits)}
}

func newProblemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "problem <id>",
		Short: "Shows a problem statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("problem", args[0])
			if err != nil {
				return err
			}
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := a.Site().Problem(cmd.Context(), id)
			if errors.Is(err, boj.ErrNotFound) {
				return fmt.Errorf("no such problem with given id %d: %w", id, err)
			}
			if err != nil {
				return fmt.Errorf("read problem %d: %w", id, err)
			}
			printProblem(cmd, detail)
			return nil
		},
	}
}

func printProblem(cmd *cobra.Command, d extract.ProblemDetail) {
	out := cmd.OutOrStdout()
	title := fmt.Sprintf("%d. %s", d.Preview.ID, d.Preview.Title)
	if d.Preview.Accepted {
		title = accepted.Sprint(title)
	}
	fmt.Fprintln(out, text.Bold.Sprint(title))

	t := newTable(out)
	t.AppendHeader(table.Row{"Time limit", "Memory limit", "Submits", "Accepted", "Ratio"})
	t.AppendRow(table.Row{d.TimeLimit, d.MemoryLimit, d.Preview.Submits, d.Preview.AcceptedSubmits,
		ratio(d.Preview.AcceptedSubmits, d.Preview.Submits)})
	t.Render()

	for _, section := range []struct{ name, body string }{
		{"Description", d.Description},
		{"Input", d.Input},
		{"Output", d.Output},
		{"Limit", d.Limit},
		{"Hint", d.Hint},
	} {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		fmt.Fprintf(out, "\n%s\n%s\n", text.Bold.Sprint(section.name), section.body)
	}
	for _, s := range d.Samples {
		fmt.Fprintf(out, "\n%s\n%s\n", text.Bold.Sprintf("Sample input %d", s.Index), s.Input)
		fmt.Fprintf(out, "\n%s\n%s\n", text.Bold.Sprintf("Sample output %d", s.Index), s.Output)
	}
}

func newSubmissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submissions <id>",
		Short: "Lists your submissions for a problem, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("problem", args[0])
			if err != nil {
				return err
			}
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			user, err := a.Site().Username(cmd.Context())
			if err != nil {
				return err
			}
			records, err := a.Site().Submissions(cmd.Context(), user, id)
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Solution", "Result"})
			for _, r := range records {
				t.AppendRow(table.Row{r.SolutionID, colorResult(r.StatusCode)})
			}
			t.Render()
			return nil
		},
	}
}

func parseID(what, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
