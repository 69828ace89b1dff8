package goshape

import (
	eng "github.com/reoring/goshape/internal/engine"
)

// TokenKind enumerates the structural and leaf tokens exchanged with
// printers and parsers.
type TokenKind = eng.Kind

const (
	TokenBeginObject TokenKind = eng.KindBeginObject
	TokenEndObject   TokenKind = eng.KindEndObject
	TokenBeginArray  TokenKind = eng.KindBeginArray
	TokenEndArray    TokenKind = eng.KindEndArray
	TokenKey         TokenKind = eng.KindKey
	TokenString      TokenKind = eng.KindString
	TokenNumber      TokenKind = eng.KindNumber
	TokenBool        TokenKind = eng.KindBool
	TokenNull        TokenKind = eng.KindNull
)

// Token describes a token in the input or output stream. Offset records the
// byte position when known (-1 otherwise).
//
// Number is stored as text; the scalar shape of the destination decides how
// it is interpreted.
type Token = eng.Token

// Printer is the output side of a format. The serializer drives it with
// structural calls; leaves are passed as tokens of kind String, Number, Bool
// or Null.
//
// OpenMap and OpenArray receive the element count when it is known and -1
// otherwise.
type Printer interface {
	OpenMap(n int) error
	CloseMap() error
	OpenArray(n int) error
	CloseArray() error
	AddKey(key string) error
	AddValue(tok Token) error
	Flush() error
}

// Parser is the input side of a format. It yields one token per call and
// io.EOF once the input is exhausted.
type Parser interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// StringToken returns a String leaf token.
func StringToken(s string) Token { return Token{Kind: TokenString, String: s, Offset: -1} }

// NumberToken returns a Number leaf token carrying the textual form.
func NumberToken(text string) Token { return Token{Kind: TokenNumber, Number: text, Offset: -1} }

// BoolToken returns a Bool leaf token.
func BoolToken(b bool) Token { return Token{Kind: TokenBool, Bool: b, Offset: -1} }

// NullToken returns the Null leaf token.
func NullToken() Token { return Token{Kind: TokenNull, Offset: -1} }

// Transcode copies one complete value from p to pr without binding it to a
// Go type. Container sizes are reported as unknown.
func Transcode(p Parser, pr Printer) error {
	tok, err := p.NextToken()
	if err != nil {
		return parserIssue(err, "")
	}
	if err := transcodeValue(p, pr, tok); err != nil {
		return err
	}
	return pr.Flush()
}

func transcodeValue(p Parser, pr Printer, tok Token) error {
	switch tok.Kind {
	case TokenBeginObject:
		if err := pr.OpenMap(-1); err != nil {
			return err
		}
		for {
			t, err := p.NextToken()
			if err != nil {
				return parserIssue(err, "")
			}
			if t.Kind == TokenEndObject {
				return pr.CloseMap()
			}
			if t.Kind != TokenKey {
				return Issues{{Code: CodeParseError, Path: "/", Message: "expected a key but found " + t.Kind.String(), Offset: p.Location()}}
			}
			if err := pr.AddKey(t.String); err != nil {
				return err
			}
			vt, err := p.NextToken()
			if err != nil {
				return parserIssue(err, "")
			}
			if err := transcodeValue(p, pr, vt); err != nil {
				return err
			}
		}
	case TokenBeginArray:
		if err := pr.OpenArray(-1); err != nil {
			return err
		}
		for {
			t, err := p.NextToken()
			if err != nil {
				return parserIssue(err, "")
			}
			if t.Kind == TokenEndArray {
				return pr.CloseArray()
			}
			if err := transcodeValue(p, pr, t); err != nil {
				return err
			}
		}
	case TokenString, TokenNumber, TokenBool, TokenNull:
		return pr.AddValue(tok)
	default:
		return Issues{{Code: CodeParseError, Path: "/", Message: "unexpected " + tok.Kind.String(), Offset: p.Location()}}
	}
}
