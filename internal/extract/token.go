package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
	"github.com/Nergy-TCGeneric/Zipline/internal/markup"
)

const (
	submitListMarker = "solution_ids"
	csrfField        = "csrf_key"
	usernameMeta     = "username"
)

// errFound stops a walk once the wanted tag is seen.
var errFound = errors.New("found")

// SubmitList finds the solution id literal embedded in a status page script
// and parses it. The page lists submissions newest first.
func SubmitList(doc string) ([]SubmitRecord, error) {
	literal, ok := submitListLiteral(doc)
	if !ok {
		return nil, ErrNoSubmitList
	}
	return ParseSubmitList(literal)
}

func submitListLiteral(doc string) (string, bool) {
	_, rest, ok := strings.Cut(doc, submitListMarker)
	if !ok {
		return "", false
	}
	literal, _, ok := strings.Cut(rest, ";")
	if !ok {
		return "", false
	}
	literal = strings.TrimSpace(literal)
	literal = strings.TrimSpace(strings.TrimPrefix(literal, "="))
	return literal, true
}

// ParseSubmitList reads a flat array literal of alternating solution id and
// status code values. A trailing empty element is discarded.
func ParseSubmitList(literal string) ([]SubmitRecord, error) {
	literal = strings.NewReplacer("[", "", "]", "").Replace(literal)
	parts := strings.Split(literal, ",")
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("%w: submission list has %d values, want pairs", ErrMalformedRecord, len(parts))
	}

	out := make([]SubmitRecord, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		id, err := parseCount("solution id", parts[i])
		if err != nil {
			return nil, err
		}
		code, err := parseCount("status code", parts[i+1])
		if err != nil {
			return nil, err
		}
		status, err := judge.ParseResult(code)
		if err != nil {
			return nil, fmt.Errorf("%w: solution %d: %w", ErrMalformedRecord, id, err)
		}
		out = append(out, SubmitRecord{SolutionID: id, StatusCode: status})
	}
	return out, nil
}

// CSRFToken returns the value of the csrf input of the submit form.
func CSRFToken(doc string) (string, bool) {
	return firstAttr(doc, "input", "name", csrfField, "value")
}

// Username returns the logged-in user named by the page metadata. An absent
// tag, an absent content attribute and an empty content value all mean
// nobody is logged in.
func Username(doc string) (string, bool) {
	return firstAttr(doc, "meta", "name", usernameMeta, "content")
}

// firstAttr returns attribute want of the first tag named tagName whose key
// attribute equals val. Empty values count as missing.
func firstAttr(doc, tagName, key, val, want string) (string, bool) {
	var out string
	err := markup.Walk(doc, func(evt markup.Event) error {
		tag, ok := evt.(markup.StartTag)
		if !ok || tag.Name != tagName {
			return nil
		}
		if v, _ := tag.Attr(key); v != val {
			return nil
		}
		out, _ = tag.Attr(want)
		return errFound
	})
	if !errors.Is(err, errFound) {
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" || out == `""` {
		return "", false
	}
	return out, true
}
