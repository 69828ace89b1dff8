package jsonfmt

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/goshape"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// parser turns go-json decoder tokens into goshape tokens. The decoder does
// not distinguish keys from string values, so a frame stack tracks whether
// the next string inside an object is a key.
type parser struct {
	dec        *j.Decoder
	stack      []frame
	lastOffset int64
}

// NewParser wraps an io.Reader into a goshape.Parser for JSON.
func NewParser(r io.Reader) goshape.Parser {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &parser{dec: dec, lastOffset: -1}
}

// NewBytes wraps a byte slice into a goshape.Parser for JSON.
func NewBytes(b []byte) goshape.Parser { return NewParser(bytes.NewReader(b)) }

func (s *parser) NextToken() (goshape.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		if err == io.EOF && len(s.stack) > 0 {
			return goshape.Token{}, io.ErrUnexpectedEOF
		}
		return goshape.Token{}, err
	}
	s.lastOffset = s.dec.InputOffset()

	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return s.token(goshape.TokenBeginObject), nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return s.token(goshape.TokenBeginArray), nil
		case '}':
			s.pop()
			return s.token(goshape.TokenEndObject), nil
		case ']':
			s.pop()
			return s.token(goshape.TokenEndArray), nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				t := s.token(goshape.TokenKey)
				t.String = v
				return t, nil
			}
		}
		s.valueDone()
		t := s.token(goshape.TokenString)
		t.String = v
		return t, nil
	case bool:
		s.valueDone()
		t := s.token(goshape.TokenBool)
		t.Bool = v
		return t, nil
	case j.Number:
		s.valueDone()
		t := s.token(goshape.TokenNumber)
		t.Number = string(v)
		return t, nil
	case float64:
		s.valueDone()
		t := s.token(goshape.TokenNumber)
		t.Number = strconv.FormatFloat(v, 'g', -1, 64)
		return t, nil
	}
	s.valueDone()
	return s.token(goshape.TokenNull), nil
}

func (s *parser) token(k goshape.TokenKind) goshape.Token {
	return goshape.Token{Kind: k, Offset: s.lastOffset}
}

// pop closes the current container; the container itself completes a value
// in its parent.
func (s *parser) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *parser) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *parser) Location() int64 { return s.lastOffset }
