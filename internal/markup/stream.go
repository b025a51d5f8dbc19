package markup

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Stream yields tag events in document order. It never balances tags and never
// fails on malformed input: bytes the tokenizer cannot make sense of come back
// as Text.
type Stream struct {
	z       *html.Tokenizer
	pending []Event
	err     error
}

// NewStream tokenizes r lazily.
func NewStream(r io.Reader) *Stream {
	return &Stream{z: html.NewTokenizer(r)}
}

// NewStreamString tokenizes an in-memory document.
func NewStreamString(doc string) *Stream {
	return NewStream(strings.NewReader(doc))
}

// Next returns the next event. It returns io.EOF once the input is exhausted;
// read errors from the underlying reader are returned as-is.
func (s *Stream) Next() (Event, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		s.advance()
	}
	evt := s.pending[0]
	s.pending = s.pending[1:]
	return evt, nil
}

func (s *Stream) advance() {
	tt := s.z.Next()
	switch tt {
	case html.ErrorToken:
		err := s.z.Err()
		if errors.Is(err, io.EOF) {
			s.err = io.EOF
			return
		}
		s.err = err
	case html.TextToken:
		s.pending = append(s.pending, Text{Data: string(s.z.Text())})
	case html.StartTagToken:
		s.pending = append(s.pending, s.startTag())
	case html.SelfClosingTagToken:
		tag := s.startTag()
		s.pending = append(s.pending, tag, EndTag{Name: tag.Name})
	case html.EndTagToken:
		name, _ := s.z.TagName()
		s.pending = append(s.pending, EndTag{Name: string(name)})
	case html.CommentToken, html.DoctypeToken:
	}
}

func (s *Stream) startTag() StartTag {
	name, hasAttr := s.z.TagName()
	tag := StartTag{Name: string(name)}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = s.z.TagAttr()
		tag.Attrs = append(tag.Attrs, Attr{Key: string(key), Val: string(val)})
	}
	return tag
}

// Events drains a document into a slice. Only reader errors are returned.
func Events(doc string) ([]Event, error) {
	s := NewStreamString(doc)
	var out []Event
	for {
		evt, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, evt)
	}
}

// Walk feeds every event of doc to fn, stopping at the first error fn returns.
func Walk(doc string, fn func(Event) error) error {
	s := NewStreamString(doc)
	for {
		evt, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
