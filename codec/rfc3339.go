// Package codec provides Value shapes for common standard and ecosystem
// types that travel as strings.
package codec

import (
	"time"

	"github.com/reoring/goshape"
)

// Time registers time.Time as an RFC 3339 string. Encoding normalizes to UTC
// with trailing zeros of the fraction trimmed.
func Time(reg *goshape.Registry) error {
	return goshape.Scalar(reg, "time.rfc3339",
		func(t time.Time) (goshape.Token, error) {
			return goshape.StringToken(formatRFC3339Canonical(t)), nil
		},
		func(tok goshape.Token) (time.Time, error) {
			if tok.Kind != goshape.TokenString {
				return time.Time{}, expected("RFC3339 string", tok)
			}
			t, err := parseRFC3339(tok.String)
			if err != nil {
				return time.Time{}, goshape.Issues{{Path: "/", Code: goshape.CodeInvalidType, Message: "invalid RFC3339 time", Cause: err, Offset: tok.Offset}}
			}
			return t, nil
		})
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}

func expected(what string, tok goshape.Token) goshape.Issues {
	return goshape.Issues{{Path: "/", Code: goshape.CodeInvalidType, Message: "expected " + what + " but found " + tok.Kind.String(), Offset: tok.Offset}}
}
