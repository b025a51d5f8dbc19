package extract

import (
	"strings"

	"github.com/Nergy-TCGeneric/Zipline/internal/markup"
)

// AcceptedBadge is the class token the site puts on the label of a problem
// the logged-in user has solved.
const AcceptedBadge = "problem-label-ac"

type previewRow struct {
	rec                   ProblemPreview
	title, label          strings.Builder
	hasID, hasAC, hasSubs bool
}

// previewColumns: (unused), id, title, label, accepted, submits, (ratio).
var previewColumns = markup.Columns[previewRow]{
	nil,
	func(r *previewRow, s string) error { return setCount(&r.rec.ID, &r.hasID, "problem id", s) },
	func(r *previewRow, s string) error { r.title.WriteString(s); return nil },
	func(r *previewRow, s string) error { r.label.WriteString(s); return nil },
	func(r *previewRow, s string) error {
		return setCount(&r.rec.AcceptedSubmits, &r.hasAC, "accepted submits", s)
	},
	func(r *previewRow, s string) error { return setCount(&r.rec.Submits, &r.hasSubs, "submits", s) },
	nil,
}

// listingScanner reads the problem grid, where each problem spans a data row
// followed by a description row. Unlike the step table every row is closed.
type listingScanner struct {
	cursor      markup.TableCursor
	row         *previewRow
	description bool
	rows        int
	out         []ProblemPreview
}

// Previews extracts one preview per data row of a problem listing.
func Previews(doc string) ([]ProblemPreview, error) {
	s := &listingScanner{}
	if err := markup.Walk(doc, s.observe); err != nil {
		return nil, err
	}
	return s.out, nil
}

func (s *listingScanner) observe(evt markup.Event) error {
	switch s.cursor.Observe(evt) {
	case markup.SignalRowStart:
		if !s.description {
			s.rows++
			s.row = &previewRow{}
		}
		return nil
	case markup.SignalRowEnd:
		closedData := !s.description
		s.description = !s.description
		if closedData {
			return s.flush()
		}
		return nil
	case markup.SignalNone, markup.SignalBodyStart, markup.SignalBodyEnd, markup.SignalCellEnd:
	}
	if !s.cursor.InBody || s.description || s.row == nil {
		return nil
	}
	switch e := evt.(type) {
	case markup.StartTag:
		if e.Name == "span" && e.HasClass(AcceptedBadge) {
			s.row.rec.Accepted = true
		}
	case markup.Text:
		if e.IsBlank() {
			return nil
		}
		return applyCell(previewColumns, s.row, s.rows, s.cursor.Cell, e.Data)
	case markup.EndTag:
	}
	return nil
}

func (s *listingScanner) flush() error {
	row := s.row
	s.row = nil
	if row == nil {
		return nil
	}
	var lacks []string
	if !row.hasID {
		lacks = append(lacks, "id")
	}
	if !row.hasAC {
		lacks = append(lacks, "accepted submits")
	}
	if !row.hasSubs {
		lacks = append(lacks, "submits")
	}
	if len(lacks) > 0 {
		return missing("problem", s.rows, lacks...)
	}
	row.rec.Title = strings.TrimSpace(row.title.String())
	row.rec.Label = strings.TrimSpace(row.label.String())
	s.out = append(s.out, row.rec)
	return nil
}
