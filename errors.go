package goshape

import (
	"errors"
	"fmt"
	"io"
	"strings"

	eng "github.com/reoring/goshape/internal/engine"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType    = "invalid_type"
	CodeUnknownKey     = "unknown_key"
	CodeDuplicateKey   = "duplicate_key"
	CodeParseError     = "parse_error"
	CodeOverflow       = "overflow"
	CodeTruncated      = "truncated"
	CodeArity          = "arity"
	CodeAllocation     = "allocation"
	CodeNotRegistered  = "not_registered"
	CodeDuplicateField = "duplicate_field"
)

// Sentinel errors matching the issue codes above. An Issue satisfies
// errors.Is against the sentinel of its code.
var (
	ErrShapeMismatch  = errors.New("goshape: shape mismatch")
	ErrUnknownField   = errors.New("goshape: unknown field")
	ErrDuplicateKey   = errors.New("goshape: duplicate key")
	ErrParse          = errors.New("goshape: parse error")
	ErrOverflow       = errors.New("goshape: numeric overflow")
	ErrTruncated      = errors.New("goshape: truncated input")
	ErrArity          = errors.New("goshape: arity mismatch")
	ErrAllocation     = errors.New("goshape: allocation failed")
	ErrNotRegistered  = errors.New("goshape: type not registered")
	ErrDuplicateField = errors.New("goshape: duplicate field")
	ErrSealed         = errors.New("goshape: registry is sealed")
	ErrInUse          = errors.New("goshape: type already in use")
)

var sentinelByCode = map[string]error{
	CodeInvalidType:    ErrShapeMismatch,
	CodeUnknownKey:     ErrUnknownField,
	CodeDuplicateKey:   ErrDuplicateKey,
	CodeParseError:     ErrParse,
	CodeOverflow:       ErrOverflow,
	CodeTruncated:      ErrTruncated,
	CodeArity:          ErrArity,
	CodeAllocation:     ErrAllocation,
	CodeNotRegistered:  ErrNotRegistered,
	CodeDuplicateField: ErrDuplicateField,
}

// Issue represents a single failure with its location.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	Offset  int64 // Position reported by the parser (-1 when unknown).
}

func (it Issue) Error() string {
	if it.Message == "" {
		return fmt.Sprintf("%s at %s", it.Code, it.Path)
	}
	return fmt.Sprintf("%s at %s: %s", it.Code, it.Path, it.Message)
}

// Unwrap exposes the sentinel for the issue code and the cause, if any.
func (it Issue) Unwrap() []error {
	var out []error
	if s, ok := sentinelByCode[it.Code]; ok {
		out = append(out, s)
	}
	if it.Cause != nil {
		out = append(out, it.Cause)
	}
	return out
}

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap lets errors.Is and errors.As see every contained issue.
func (iss Issues) Unwrap() []error {
	out := make([]error, len(iss))
	for i, it := range iss {
		out[i] = it
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// CodeOf returns the code of the first issue carried by err, or "".
func CodeOf(err error) string {
	if iss, ok := AsIssues(err); ok && len(iss) > 0 {
		return iss[0].Code
	}
	var it Issue
	if errors.As(err, &it) {
		return it.Code
	}
	return ""
}

func issue(code, path, msg string) Issues {
	return Issues{{Code: code, Path: normalizePath(path), Message: msg, Offset: -1}}
}

// parserIssue converts an error returned by a Parser into Issues.
func parserIssue(err error, path string) error {
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return Issues{{Code: ie.Code, Path: normalizePath(ie.Path), Message: ie.Message, Cause: err, Offset: -1}}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Issues{{Code: CodeTruncated, Path: normalizePath(path), Message: "input ended before the value was complete", Cause: err, Offset: -1}}
	}
	return Issues{{Code: CodeParseError, Path: normalizePath(path), Message: err.Error(), Cause: err, Offset: -1}}
}

// rebase prefixes the path of every issue in err with seg. Errors that are
// not Issues (printer failures, for example) pass through unchanged, and so
// do issues raised by the enforcement layer, which already carry an absolute
// path.
func rebase(err error, seg string) error {
	iss, ok := err.(Issues)
	if !ok {
		return err
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		var ie eng.IssueError
		if it.Cause != nil && errors.As(it.Cause, &ie) {
			out[i] = it
			continue
		}
		if it.Path == "" || it.Path == "/" {
			it.Path = eng.JoinPointer("", seg)
		} else {
			it.Path = eng.JoinPointer("", seg) + it.Path
		}
		out[i] = it
	}
	return out
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
