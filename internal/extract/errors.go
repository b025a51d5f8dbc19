package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Nergy-TCGeneric/Zipline/internal/markup"
)

var (
	// ErrSchemaViolation means a row had more cells than the page layout defines.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrMalformedRecord means a cell or literal did not hold the expected value.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrIncompleteRecord means a required field was never observed. It is a
	// malformed-record error.
	ErrIncompleteRecord = fmt.Errorf("%w: incomplete", ErrMalformedRecord)
	// ErrNoSubmitList means the status page carried no submission literal.
	ErrNoSubmitList = errors.New("submission list not found")
)

// Class names the error class of err for logs and metrics.
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrNoSubmitList):
		return "missing_token"
	default:
		return "other"
	}
}

func schemaError(row, cell int, err error) error {
	return fmt.Errorf("%w: row %d cell %d: %w", ErrSchemaViolation, row, cell, err)
}

func parseCount(field, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedRecord, field, text)
	}
	return n, nil
}

// setCount parses a numeric cell into dst. A numeric cell holds one text
// fragment; a second one means the cell was split by markup and is rejected.
func setCount(dst *int, seen *bool, field, text string) error {
	if *seen {
		return fmt.Errorf("%w: %s split across fragments", ErrMalformedRecord, field)
	}
	n, err := parseCount(field, text)
	if err != nil {
		return err
	}
	*dst, *seen = n, true
	return nil
}

func missing(record string, row int, fields ...string) error {
	return fmt.Errorf("%w: %s row %d lacks %s", ErrIncompleteRecord, record, row, strings.Join(fields, ", "))
}

// applyCell routes text through cols and tags overflow as a schema violation.
func applyCell[R any](cols markup.Columns[R], rec *R, row, cell int, text string) error {
	err := cols.Apply(rec, cell, text)
	if errors.Is(err, markup.ErrCellOutOfRange) {
		return schemaError(row, cell, err)
	}
	if err != nil {
		return fmt.Errorf("row %d cell %d: %w", row, cell, err)
	}
	return nil
}
