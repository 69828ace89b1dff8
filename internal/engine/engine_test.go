package engine

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	toks []Token
	pos  int
}

func (s *sliceSource) NextToken() (Token, error) {
	if s.pos >= len(s.toks) {
		return Token{}, io.EOF
	}
	t := s.toks[s.pos]
	s.pos++
	return t, nil
}

func (s *sliceSource) Location() int64 { return int64(s.pos) }

func src(toks ...Token) *sliceSource { return &sliceSource{toks: toks} }

var (
	bo = Token{Kind: KindBeginObject}
	eo = Token{Kind: KindEndObject}
	ba = Token{Kind: KindBeginArray}
	ea = Token{Kind: KindEndArray}
)

func key(v string) Token { return Token{Kind: KindKey, String: v} }
func str(v string) Token { return Token{Kind: KindString, String: v} }
func num(v string) Token { return Token{Kind: KindNumber, Number: v} }

func drain(ts TokenSource) error {
	for {
		if _, err := ts.NextToken(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func TestDecodeAny(t *testing.T) {
	v, err := DecodeAny(src(bo, key("a"), ba, num("1"), str("x"), Token{Kind: KindBool, Bool: true}, Token{Kind: KindNull}, ea, eo))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{json.Number("1"), "x", true, nil}}, v)

	_, err = DecodeAny(src(ba, num("1")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = DecodeAny(src())
	assert.ErrorIs(t, err, io.EOF)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "begin-map", KindBeginObject.String())
	assert.Equal(t, "null", KindNull.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.True(t, KindNull.IsScalar())
	assert.False(t, KindKey.IsScalar())
}

func TestEnforce_DuplicateKeys(t *testing.T) {
	toks := []Token{bo, key("a"), num("1"), key("b"), bo, key("c"), num("2"), key("c"), num("3"), eo, eo}

	t.Run("error", func(t *testing.T) {
		err := drain(WrapWithEnforcement(src(toks...), EnforceOptions{OnDuplicate: DupError}))
		var ie IssueError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "duplicate_key", ie.Code)
		assert.Equal(t, "/b/c", ie.Path)
	})
	t.Run("warn", func(t *testing.T) {
		var got []SimpleIssue
		err := drain(WrapWithEnforcement(src(toks...), EnforceOptions{
			OnDuplicate: DupWarn,
			IssueSink:   func(si SimpleIssue) { got = append(got, si) },
		}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "/b/c", got[0].Path)
	})
	t.Run("same key in sibling objects", func(t *testing.T) {
		err := drain(WrapWithEnforcement(src(ba, bo, key("a"), num("1"), eo, bo, key("a"), num("2"), eo, ea), EnforceOptions{OnDuplicate: DupError}))
		assert.NoError(t, err)
	})
}

func TestEnforce_MaxDepth(t *testing.T) {
	toks := []Token{ba, ba, ba, ea, ea, ea}
	assert.NoError(t, drain(WrapWithEnforcement(src(toks...), EnforceOptions{MaxDepth: 3})))

	err := drain(WrapWithEnforcement(src(toks...), EnforceOptions{MaxDepth: 2}))
	var ie IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "parse_error", ie.Code)
	assert.Equal(t, "/0/0", ie.Path)
}

func TestEnforce_MaxBytes(t *testing.T) {
	err := drain(WrapWithEnforcement(src(ba, num("1"), num("2"), num("3"), ea), EnforceOptions{MaxBytes: 2}))
	var ie IssueError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "truncated", ie.Code)
	assert.Equal(t, "/1", ie.Path)
}

func TestEnforceOptions_Enabled(t *testing.T) {
	assert.False(t, EnforceOptions{}.Enabled())
	assert.True(t, EnforceOptions{OnDuplicate: DupWarn}.Enabled())
	assert.True(t, EnforceOptions{MaxDepth: 1}.Enabled())
}

func TestJoinPointer(t *testing.T) {
	assert.Equal(t, "/a", JoinPointer("", "a"))
	assert.Equal(t, "/a", JoinPointer("/", "a"))
	assert.Equal(t, "/a/b~1c~0d", JoinPointer("/a", "b/c~d"))
}
