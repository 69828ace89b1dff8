package goshape_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
)

type Base struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Derived struct {
	Base
	Extra bool `json:"extra"`
}

type node struct {
	Val  int
	Next *node
}

func registerBase(t testing.TB, reg *goshape.Registry) {
	t.Helper()
	require.NoError(t, goshape.Struct(reg,
		goshape.FieldOf(func(b *Base) *int64 { return &b.ID }),
		goshape.FieldOf(func(b *Base) *string { return &b.Name }),
	))
}

func registerDerived(t testing.TB, reg *goshape.Registry) {
	t.Helper()
	registerBase(t, reg)
	require.NoError(t, goshape.Extend(reg, func(d *Derived) *Base { return &d.Base },
		goshape.FieldOf(func(d *Derived) *bool { return &d.Extra }),
	))
}

func registerNode(t testing.TB, reg *goshape.Registry) {
	t.Helper()
	require.NoError(t, goshape.Struct(reg,
		goshape.F("val", func(n *node) *int { return &n.Val }),
		goshape.F("next", func(n *node) **node { return &n.Next }),
	))
}

func fieldNames(sh *goshape.Shape) []string {
	var out []string
	for _, f := range sh.Fields() {
		out = append(out, f.Name())
	}
	return out
}

func record[T any](t testing.TB, reg *goshape.Registry, v T) *goshape.Tape {
	t.Helper()
	tape := &goshape.Tape{}
	require.NoError(t, goshape.Serialize(reg, tape, v))
	return tape
}

func tok(k goshape.TokenKind) goshape.Token { return goshape.Token{Kind: k, Offset: -1} }

func key(s string) goshape.Token {
	return goshape.Token{Kind: goshape.TokenKey, String: s, Offset: -1}
}

func str(s string) goshape.Token { return goshape.StringToken(s) }
func num(s string) goshape.Token { return goshape.NumberToken(s) }
func boolean(b bool) goshape.Token { return goshape.BoolToken(b) }

var (
	beginMap = tok(goshape.TokenBeginObject)
	endMap   = tok(goshape.TokenEndObject)
	beginArr = tok(goshape.TokenBeginArray)
	endArr   = tok(goshape.TokenEndArray)
	null     = goshape.NullToken()
)
