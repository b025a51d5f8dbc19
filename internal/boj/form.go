package boj

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CodeOpen controls who may read a submitted source.
type CodeOpen string

// Visibility choices offered by the submit form.
const (
	CodeOpenPublic       CodeOpen = "open"
	CodeOpenPrivate      CodeOpen = "close"
	CodeOpenOnlyAccepted CodeOpen = "onlyaccepted"
)

// ErrInvalidForm is returned by SubmitForm.Validate.
var ErrInvalidForm = errors.New("invalid submit form")

// ParseCodeOpen accepts the form values, case-insensitively.
func ParseCodeOpen(s string) (CodeOpen, error) {
	switch c := CodeOpen(strings.ToLower(strings.TrimSpace(s))); c {
	case CodeOpenPublic, CodeOpenPrivate, CodeOpenOnlyAccepted:
		return c, nil
	default:
		return "", fmt.Errorf("%w: code_open %q", ErrInvalidForm, s)
	}
}

// SubmitForm is the payload posted to the submit page.
type SubmitForm struct {
	ProblemID int
	Language  Language
	CodeOpen  CodeOpen
	Source    string
	CSRFKey   string
}

// Validate checks the fields the site rejects silently.
func (f SubmitForm) Validate() error {
	switch {
	case f.ProblemID <= 0:
		return fmt.Errorf("%w: problem id %d", ErrInvalidForm, f.ProblemID)
	case f.CSRFKey == "":
		return fmt.Errorf("%w: missing csrf key", ErrInvalidForm)
	case strings.TrimSpace(f.Source) == "":
		return fmt.Errorf("%w: empty source", ErrInvalidForm)
	}
	if _, err := ParseLanguage(int(f.Language)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	if _, err := ParseCodeOpen(string(f.CodeOpen)); err != nil {
		return err
	}
	return nil
}

// Values encodes the form fields.
func (f SubmitForm) Values() url.Values {
	return url.Values{
		"problem_id": {strconv.Itoa(f.ProblemID)},
		"language":   {strconv.Itoa(int(f.Language))},
		"code_open":  {string(f.CodeOpen)},
		"source":     {f.Source},
		"csrf_key":   {f.CSRFKey},
	}
}
