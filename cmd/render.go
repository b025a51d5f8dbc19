package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
)

const barWidth = 30

var accepted = text.Colors{text.FgGreen}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// resultColors maps a verdict's severity onto go-pretty colors.
func resultColors(r judge.Result) text.Colors {
	return text.Colors{text.Color(r.Color())}
}

func colorResult(r judge.Result) string {
	return resultColors(r).Sprint(r.Message())
}

// progressLine draws one frame of the live judge bar.
func progressLine(p judge.Progress) string {
	pct := min(max(p.Percentage, 0), 100)
	filled := pct * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %3d%%  %s", resultColors(p.Result).Sprint(bar), pct, colorResult(p.Result))
}

// progressWriter redraws the bar in place.
type progressWriter struct {
	w    io.Writer
	last int
}

func (pw *progressWriter) render(p judge.Progress) {
	line := progressLine(p)
	pad := ""
	if n := text.RuneWidthWithoutEscSequences(line); n < pw.last {
		pad = strings.Repeat(" ", pw.last-n)
	} else {
		pw.last = n
	}
	fmt.Fprint(pw.w, "\r"+line+pad)
}

func (pw *progressWriter) finish() {
	if pw.last > 0 {
		fmt.Fprintln(pw.w)
	}
}

func formatCount(n int) string {
	if n < 0 {
		return "?"
	}
	return fmt.Sprint(n)
}

func ratio(acceptedSubmits, submits int) string {
	if submits <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(acceptedSubmits)*100/float64(submits))
}
