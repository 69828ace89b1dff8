package goshape

import (
	"errors"
	"io"
)

// Tape is an in-memory token sequence. It implements Printer by recording
// every event as a token and Parser by replaying them in order, which makes
// it a convenient format-free target for serialization and tests.
type Tape struct {
	Tokens []Token
	pos    int
	open   []TokenKind
}

// NewTape returns a tape ready to replay toks.
func NewTape(toks ...Token) *Tape { return &Tape{Tokens: toks} }

var errTapeUnbalanced = errors.New("goshape: unbalanced close on tape")

func (t *Tape) OpenMap(int) error {
	t.open = append(t.open, TokenBeginObject)
	t.Tokens = append(t.Tokens, Token{Kind: TokenBeginObject, Offset: -1})
	return nil
}

func (t *Tape) CloseMap() error { return t.close(TokenBeginObject, TokenEndObject) }

func (t *Tape) OpenArray(int) error {
	t.open = append(t.open, TokenBeginArray)
	t.Tokens = append(t.Tokens, Token{Kind: TokenBeginArray, Offset: -1})
	return nil
}

func (t *Tape) CloseArray() error { return t.close(TokenBeginArray, TokenEndArray) }

func (t *Tape) close(begin, end TokenKind) error {
	n := len(t.open)
	if n == 0 || t.open[n-1] != begin {
		return errTapeUnbalanced
	}
	t.open = t.open[:n-1]
	t.Tokens = append(t.Tokens, Token{Kind: end, Offset: -1})
	return nil
}

func (t *Tape) AddKey(key string) error {
	t.Tokens = append(t.Tokens, Token{Kind: TokenKey, String: key, Offset: -1})
	return nil
}

func (t *Tape) AddValue(tok Token) error {
	t.Tokens = append(t.Tokens, tok)
	return nil
}

func (t *Tape) Flush() error { return nil }

func (t *Tape) NextToken() (Token, error) {
	if t.pos >= len(t.Tokens) {
		return Token{}, io.EOF
	}
	tok := t.Tokens[t.pos]
	t.pos++
	return tok, nil
}

// Location reports the index of the next token to be replayed.
func (t *Tape) Location() int64 { return int64(t.pos) }

// Rewind restarts replay from the first token.
func (t *Tape) Rewind() { t.pos = 0 }

// Kinds lists the kinds of the recorded tokens.
func (t *Tape) Kinds() []TokenKind {
	out := make([]TokenKind, len(t.Tokens))
	for i, tok := range t.Tokens {
		out[i] = tok.Kind
	}
	return out
}
