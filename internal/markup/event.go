// Package markup turns raw page markup into a flat stream of tag events and
// provides the table cursor shared by the row-oriented extractors.
package markup

import (
	"strings"
)

// Event is one of StartTag, Text or EndTag. The set is closed; consumers
// dispatch with a type switch.
type Event interface {
	isEvent()
}

// Attr is a single attribute in source order.
type Attr struct {
	Key string
	Val string
}

// StartTag opens an element. Attributes keep their document order.
type StartTag struct {
	Name  string
	Attrs []Attr
}

// Text is character data between tags, with entities already decoded.
type Text struct {
	Data string
}

// EndTag closes an element. It may have no matching StartTag.
type EndTag struct {
	Name string
}

func (StartTag) isEvent() {}
func (Text) isEvent()     {}
func (EndTag) isEvent()   {}

// Attr returns the value of the first attribute named key.
func (t StartTag) Attr(key string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether the class attribute holds more than one token and
// one of them equals token.
func (t StartTag) HasClass(token string) bool {
	class, ok := t.Attr("class")
	if !ok {
		return false
	}
	fields := strings.Fields(class)
	if len(fields) < 2 {
		return false
	}
	for _, f := range fields {
		if f == token {
			return true
		}
	}
	return false
}

// IsBlank reports whether the text holds only whitespace.
func (t Text) IsBlank() bool {
	return strings.TrimSpace(t.Data) == ""
}
