package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Nergy-TCGeneric/Zipline/internal/markup"
)

// Section ids on the problem page.
const (
	SectionTitle       = "problem_title"
	SectionDescription = "problem_description"
	SectionInput       = "problem_input"
	SectionOutput      = "problem_output"
	SectionLimit       = "problem_limit"
	SectionHint        = "problem_hint"

	sampleInputPrefix  = "sample-input-"
	sampleOutputPrefix = "sample-output-"

	problemIDMeta = "problem-id"
)

// detailRow collects the limits grid.
type detailRow struct {
	time, memory      strings.Builder
	submits, accepted int
	hasSubs, hasAC    bool
}

// detailColumns: time limit, memory limit, submits, accepted, (unused), (unused).
var detailColumns = markup.Columns[detailRow]{
	func(r *detailRow, s string) error { r.time.WriteString(s); return nil },
	func(r *detailRow, s string) error { r.memory.WriteString(s); return nil },
	func(r *detailRow, s string) error { return setCount(&r.submits, &r.hasSubs, "submits", s) },
	func(r *detailRow, s string) error { return setCount(&r.accepted, &r.hasAC, "accepted submits", s) },
	nil,
	nil,
}

// section is the named container text is currently routed to.
type section struct {
	id    string
	tag   string
	depth int
}

type detailScanner struct {
	cursor  markup.TableCursor
	grid    detailRow
	current *section

	id       int
	hasID    bool
	accepted bool
	title    strings.Builder
	prose    map[string]*strings.Builder
	samples  map[int]*Sample
}

// Detail extracts a problem page. Prose sections accumulate every text
// fragment with its leading whitespace stripped; samples keep their text
// verbatim. The problem id comes from the page metadata, not the body.
func Detail(doc string) (ProblemDetail, error) {
	s := &detailScanner{
		prose:   make(map[string]*strings.Builder),
		samples: make(map[int]*Sample),
	}
	if err := markup.Walk(doc, s.observe); err != nil {
		return ProblemDetail{}, err
	}
	return s.build()
}

func (s *detailScanner) observe(evt markup.Event) error {
	s.cursor.Observe(evt)
	switch e := evt.(type) {
	case markup.StartTag:
		return s.start(e)
	case markup.EndTag:
		s.end(e)
	case markup.Text:
		return s.text(e)
	}
	return nil
}

func (s *detailScanner) start(tag markup.StartTag) error {
	if tag.Name == "span" && tag.HasClass(AcceptedBadge) {
		s.accepted = true
	}
	if tag.Name == "meta" {
		if name, _ := tag.Attr("name"); name == problemIDMeta {
			content, _ := tag.Attr("content")
			n, err := parseCount("problem id", content)
			if err != nil {
				return err
			}
			s.id, s.hasID = n, true
		}
	}
	if s.current != nil {
		if tag.Name == s.current.tag {
			s.current.depth++
		}
		return nil
	}
	if id, ok := tag.Attr("id"); ok && knownSection(id) {
		s.current = &section{id: id, tag: tag.Name, depth: 1}
	}
	return nil
}

func (s *detailScanner) end(tag markup.EndTag) {
	if s.current == nil || tag.Name != s.current.tag {
		return
	}
	s.current.depth--
	if s.current.depth == 0 {
		s.current = nil
	}
}

func (s *detailScanner) text(t markup.Text) error {
	if s.cursor.InBody && !t.IsBlank() {
		if err := applyCell(detailColumns, &s.grid, 0, s.cursor.Cell, t.Data); err != nil {
			return err
		}
	}
	if s.current == nil {
		return nil
	}
	id := s.current.id
	switch {
	case id == SectionTitle:
		s.title.WriteString(t.Data)
	case strings.HasPrefix(id, sampleInputPrefix):
		s.sample(id, sampleInputPrefix).Input += t.Data
	case strings.HasPrefix(id, sampleOutputPrefix):
		s.sample(id, sampleOutputPrefix).Output += t.Data
	default:
		b, ok := s.prose[id]
		if !ok {
			b = &strings.Builder{}
			s.prose[id] = b
		}
		b.WriteString(strings.TrimLeft(t.Data, " \t\r\n\f\v"))
	}
	return nil
}

func (s *detailScanner) sample(id, prefix string) *Sample {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, prefix))
	smp, ok := s.samples[n]
	if !ok {
		smp = &Sample{Index: n}
		s.samples[n] = smp
	}
	return smp
}

func (s *detailScanner) build() (ProblemDetail, error) {
	var lacks []string
	if !s.hasID {
		lacks = append(lacks, "id")
	}
	if !s.grid.hasSubs {
		lacks = append(lacks, "submits")
	}
	if !s.grid.hasAC {
		lacks = append(lacks, "accepted submits")
	}
	if len(lacks) > 0 {
		return ProblemDetail{}, missing("problem detail", 0, lacks...)
	}

	d := ProblemDetail{
		Preview: ProblemPreview{
			ID:              s.id,
			Title:           strings.TrimSpace(s.title.String()),
			AcceptedSubmits: s.grid.accepted,
			Submits:         s.grid.submits,
			Accepted:        s.accepted,
		},
		TimeLimit:   strings.TrimSpace(s.grid.time.String()),
		MemoryLimit: strings.TrimSpace(s.grid.memory.String()),
		Description: s.proseText(SectionDescription),
		Input:       s.proseText(SectionInput),
		Output:      s.proseText(SectionOutput),
		Limit:       s.proseText(SectionLimit),
		Hint:        s.proseText(SectionHint),
	}
	for _, smp := range s.samples {
		d.Samples = append(d.Samples, *smp)
	}
	sort.Slice(d.Samples, func(i, j int) bool { return d.Samples[i].Index < d.Samples[j].Index })
	return d, nil
}

func (s *detailScanner) proseText(id string) string {
	if b, ok := s.prose[id]; ok {
		return b.String()
	}
	return ""
}

func knownSection(id string) bool {
	switch id {
	case SectionTitle, SectionDescription, SectionInput, SectionOutput, SectionLimit, SectionHint:
		return true
	}
	for _, prefix := range []string{sampleInputPrefix, sampleOutputPrefix} {
		if rest, ok := strings.CutPrefix(id, prefix); ok {
			n, err := strconv.Atoi(rest)
			return err == nil && n > 0
		}
	}
	return false
}

// String renders a one-line summary used in logs.
func (d ProblemDetail) String() string {
	return fmt.Sprintf("%d %q (%s, %s)", d.Preview.ID, d.Preview.Title, d.TimeLimit, d.MemoryLimit)
}
