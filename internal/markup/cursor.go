package markup

import (
	"errors"
	"fmt"
)

// Grid element names. The body tag delimits the repeating region; rows reset
// the cell index and cell ends advance it.
const (
	BodyTag = "tbody"
	RowTag  = "tr"
	CellTag = "td"
)

// ErrCellOutOfRange is returned by Columns.Apply when the cursor points past
// the last declared column.
var ErrCellOutOfRange = errors.New("cell index out of range")

// CursorSignal reports what an event did to the cursor.
type CursorSignal int

// Signals returned by TableCursor.Observe.
const (
	SignalNone CursorSignal = iota
	SignalBodyStart
	SignalBodyEnd
	SignalRowStart
	SignalRowEnd
	SignalCellEnd
)

// TableCursor tracks whether the scan is inside the grid body and which cell
// of the current row is being read. The zero value is ready to use.
type TableCursor struct {
	InBody bool
	Cell   int
}

// Observe updates the cursor from one event. Rows and cells outside the body
// are ignored, except that a row start always resets the cell index.
func (c *TableCursor) Observe(evt Event) CursorSignal {
	switch e := evt.(type) {
	case StartTag:
		switch e.Name {
		case BodyTag:
			c.InBody = true
			return SignalBodyStart
		case RowTag:
			c.Cell = 0
			if c.InBody {
				return SignalRowStart
			}
		}
	case EndTag:
		switch e.Name {
		case BodyTag:
			c.InBody = false
			return SignalBodyEnd
		case RowTag:
			if c.InBody {
				return SignalRowEnd
			}
		case CellTag:
			if c.InBody {
				c.Cell++
				return SignalCellEnd
			}
		}
	case Text:
	}
	return SignalNone
}

// CellSetter stores the text of one cell into a record under construction.
type CellSetter[R any] func(rec *R, text string) error

// Columns maps a cell index to its setter. A nil entry marks a column whose
// content is ignored.
type Columns[R any] []CellSetter[R]

// Apply routes text to the setter for cell. Cells past the end of the table
// yield ErrCellOutOfRange.
func (cols Columns[R]) Apply(rec *R, cell int, text string) error {
	if cell < 0 || cell >= len(cols) {
		return fmt.Errorf("%w: cell %d of %d", ErrCellOutOfRange, cell, len(cols))
	}
	set := cols[cell]
	if set == nil {
		return nil
	}
	return set(rec, text)
}
