package extract

import (
	"strings"

	"github.com/Nergy-TCGeneric/Zipline/internal/markup"
)

// categoryRow is a category under construction. Text cells collect raw
// fragments and are trimmed when the row is flushed.
type categoryRow struct {
	rec         ProblemCategory
	title, desc strings.Builder
	hasID       bool
	hasTotal    bool
	hasSolved   bool
	touched     bool
}

// categoryColumns: id, title, description, (unused), total, solved.
var categoryColumns = markup.Columns[categoryRow]{
	func(r *categoryRow, s string) error { return setCount(&r.rec.ID, &r.hasID, "category id", s) },
	func(r *categoryRow, s string) error { r.title.WriteString(s); return nil },
	func(r *categoryRow, s string) error { r.desc.WriteString(s); return nil },
	nil,
	func(r *categoryRow, s string) error {
		return setCount(&r.rec.TotalCount, &r.hasTotal, "total count", s)
	},
	func(r *categoryRow, s string) error {
		return setCount(&r.rec.SolvedCount, &r.hasSolved, "solved count", s)
	},
}

type categoryScanner struct {
	cursor markup.TableCursor
	row    *categoryRow
	rows   int
	out    []ProblemCategory
}

// Categories extracts every row of the step table. The page omits row end
// tags, so a row is complete when the next row starts or the table body ends.
// A row that saw no cell text at all is skipped.
func Categories(doc string) ([]ProblemCategory, error) {
	s := &categoryScanner{}
	if err := markup.Walk(doc, s.observe); err != nil {
		return nil, err
	}
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s.out, nil
}

func (s *categoryScanner) observe(evt markup.Event) error {
	switch s.cursor.Observe(evt) {
	case markup.SignalRowStart:
		if err := s.flush(); err != nil {
			return err
		}
		s.rows++
		s.row = &categoryRow{rec: ProblemCategory{TotalCount: UnknownCount}}
		return nil
	case markup.SignalBodyEnd:
		return s.flush()
	case markup.SignalNone, markup.SignalBodyStart, markup.SignalRowEnd, markup.SignalCellEnd:
	}
	text, ok := evt.(markup.Text)
	if !ok || !s.cursor.InBody || s.row == nil || text.IsBlank() {
		return nil
	}
	s.row.touched = true
	return applyCell(categoryColumns, s.row, s.rows, s.cursor.Cell, text.Data)
}

func (s *categoryScanner) flush() error {
	row := s.row
	s.row = nil
	if row == nil || !row.touched {
		return nil
	}
	if !row.hasID {
		return missing("category", s.rows, "id")
	}
	row.rec.Title = strings.TrimSpace(row.title.String())
	row.rec.Description = strings.TrimSpace(row.desc.String())
	s.out = append(s.out, row.rec)
	return nil
}
