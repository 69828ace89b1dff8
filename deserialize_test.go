package goshape_test

import (
	"errors"
	"io"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
)

func TestRoundTrip_Kinds(t *testing.T) {
	reg := goshape.NewRegistry()
	registerDerived(t, reg)
	registerNode(t, reg)
	require.NoError(t, goshape.PairOf[string, []int](reg))

	type bundle struct {
		Items  []Derived
		Fixed  [2]int8
		Set    map[uint16]struct{}
		Index  map[string]*Base
		Keyed  map[int64]string
		Pair   goshape.Pair[string, []int]
		List   *node
		Blob   []byte
		Nested [][]float64
	}
	require.NoError(t, goshape.Struct(reg,
		goshape.F("items", func(b *bundle) *[]Derived { return &b.Items }),
		goshape.F("fixed", func(b *bundle) *[2]int8 { return &b.Fixed }),
		goshape.F("set", func(b *bundle) *map[uint16]struct{} { return &b.Set }),
		goshape.F("index", func(b *bundle) *map[string]*Base { return &b.Index }),
		goshape.F("keyed", func(b *bundle) *map[int64]string { return &b.Keyed }),
		goshape.F("pair", func(b *bundle) *goshape.Pair[string, []int] { return &b.Pair }),
		goshape.F("list", func(b *bundle) **node { return &b.List }),
		goshape.F("blob", func(b *bundle) *[]byte { return &b.Blob }),
		goshape.F("nested", func(b *bundle) *[][]float64 { return &b.Nested }),
	))

	in := bundle{
		Items:  []Derived{{Base: Base{ID: 1, Name: "a"}, Extra: true}, {Base: Base{ID: 2}}},
		Fixed:  [2]int8{-1, 1},
		Set:    map[uint16]struct{}{7: {}, 9: {}},
		Index:  map[string]*Base{"x": {ID: 3, Name: "c"}, "nil": nil},
		Keyed:  map[int64]string{-5: "neg", 5: "pos"},
		Pair:   goshape.Pair[string, []int]{First: "p", Second: []int{1, 2}},
		List:   &node{Val: 1, Next: &node{Val: 2}},
		Blob:   []byte{0, 1, 2, 255},
		Nested: [][]float64{{1.5}, {-2, 3e10}},
	}
	tape := record(t, reg, in)
	out, err := goshape.Deserialize[bundle](reg, tape)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeserialize_KeysInAnyOrder(t *testing.T) {
	reg := goshape.NewRegistry()
	registerDerived(t, reg)

	src := goshape.NewTape(beginMap, key("extra"), boolean(true), key("name"), str("b"), key("id"), num("2"), endMap)
	got, err := goshape.Deserialize[Derived](reg, src)
	require.NoError(t, err)
	assert.Equal(t, Derived{Base: Base{ID: 2, Name: "b"}, Extra: true}, got)
}

func TestDeserialize_EmplaceTruncates(t *testing.T) {
	reg := goshape.NewRegistry()
	dst := []int{1, 2, 3, 4, 5, 6, 7, 8}

	src := goshape.NewTape(beginArr, num("10"), num("20"), num("30"), num("40"), num("50"), endArr)
	require.NoError(t, goshape.DeserializeInto(reg, src, &dst))
	assert.Equal(t, []int{10, 20, 30, 40, 50}, dst)

	require.NoError(t, goshape.DeserializeInto(reg, goshape.NewTape(beginArr, endArr), &dst))
	assert.Empty(t, dst)
}

func TestDeserialize_FixedArray(t *testing.T) {
	reg := goshape.NewRegistry()
	dst := [3]int{1, 2, 3}

	require.NoError(t, goshape.DeserializeInto(reg, goshape.NewTape(beginArr, num("7"), endArr), &dst))
	assert.Equal(t, [3]int{7, 0, 0}, dst)

	err := goshape.DeserializeInto(reg, goshape.NewTape(beginArr, num("1"), num("2"), num("3"), num("4"), endArr), &dst)
	assert.ErrorIs(t, err, goshape.ErrArity)
}

func TestDeserialize_TupleArity(t *testing.T) {
	reg := goshape.NewRegistry()
	require.NoError(t, goshape.TripleOf[string, int, bool](reg))
	type triple = goshape.Triple[string, int, bool]

	t.Run("exact", func(t *testing.T) {
		got, err := goshape.Deserialize[triple](reg, goshape.NewTape(beginArr, str("s"), num("4"), boolean(true), endArr))
		require.NoError(t, err)
		assert.Equal(t, triple{First: "s", Second: 4, Third: true}, got)
	})
	t.Run("too many", func(t *testing.T) {
		_, err := goshape.Deserialize[triple](reg, goshape.NewTape(beginArr, str("s"), num("4"), boolean(true), boolean(false), endArr))
		assert.ErrorIs(t, err, goshape.ErrArity)
		assert.Equal(t, goshape.CodeArity, goshape.CodeOf(err))
	})
	t.Run("too few", func(t *testing.T) {
		_, err := goshape.Deserialize[triple](reg, goshape.NewTape(beginArr, str("s"), endArr))
		assert.ErrorIs(t, err, goshape.ErrArity)
	})
	t.Run("wrong element", func(t *testing.T) {
		_, err := goshape.Deserialize[triple](reg, goshape.NewTape(beginArr, str("s"), str("x"), boolean(true), endArr))
		assert.ErrorIs(t, err, goshape.ErrShapeMismatch)
		iss, _ := goshape.AsIssues(err)
		assert.Equal(t, "/1", iss[0].Path)
	})
}

func TestDeserialize_NullNeverReachesScalarDecoder(t *testing.T) {
	type level int
	reg := goshape.NewRegistry()
	called := false
	require.NoError(t, goshape.Scalar(reg, "level",
		func(l level) (goshape.Token, error) { return goshape.NumberToken("0"), nil },
		func(goshape.Token) (level, error) {
			called = true
			return 0, nil
		},
	))
	_, err := goshape.Deserialize[level](reg, goshape.NewTape(null))
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)
	assert.False(t, called)
}

func TestDeserialize_Pointer(t *testing.T) {
	reg := goshape.NewRegistry()
	registerNode(t, reg)

	shared := &node{Val: 9, Next: &node{Val: 3}}
	dst := node{Next: shared}
	src := goshape.NewTape(beginMap, key("val"), num("1"), key("next"), beginMap, key("val"), num("5"), endMap, endMap)
	require.NoError(t, goshape.DeserializeInto(reg, src, &dst))
	assert.NotSame(t, shared, dst.Next, "a non-null value is read into a fresh pointee")
	assert.Equal(t, &node{Val: 5}, dst.Next)
	assert.Equal(t, node{Val: 9, Next: &node{Val: 3}}, *shared)

	src = goshape.NewTape(beginMap, key("next"), null, endMap)
	require.NoError(t, goshape.DeserializeInto(reg, src, &dst))
	assert.Nil(t, dst.Next)
	assert.Equal(t, 1, dst.Val, "members absent from the input keep their value")
}

type cart struct {
	Owner string
	Items []item
}

type item struct {
	Name string
	Qty  uint8
}

func registerCart(t *testing.T, reg *goshape.Registry) {
	t.Helper()
	require.NoError(t, goshape.Struct(reg,
		goshape.F("name", func(i *item) *string { return &i.Name }),
		goshape.F("qty", func(i *item) *uint8 { return &i.Qty }),
	))
	require.NoError(t, goshape.Struct(reg,
		goshape.F("owner", func(c *cart) *string { return &c.Owner }),
		goshape.F("items", func(c *cart) *[]item { return &c.Items }),
	))
}

func TestDeserialize_ErrorPaths(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCart(t, reg)

	src := goshape.NewTape(beginMap,
		key("items"), beginArr,
		beginMap, key("name"), str("a"), endMap,
		beginMap, key("name"), str("b"), endMap,
		beginMap, key("name"), num("3"), endMap,
		endArr,
		endMap)
	_, err := goshape.Deserialize[cart](reg, src)
	require.Error(t, err)
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)
	iss, ok := goshape.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, "/items/2/name", iss[0].Path)
	assert.Equal(t, goshape.CodeInvalidType, iss[0].Code)
}

func TestDeserialize_ScalarMismatch(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCart(t, reg)

	_, err := goshape.Deserialize[cart](reg, goshape.NewTape(beginMap, key("owner"), beginMap, endMap, endMap))
	iss, ok := goshape.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, "/owner", iss[0].Path)
	assert.Equal(t, "expected a scalar value but found a compound start", iss[0].Message)

	_, err = goshape.Deserialize[cart](reg, goshape.NewTape(beginMap, key("owner"), null, endMap))
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)

	_, err = goshape.Deserialize[cart](reg, goshape.NewTape(beginArr, endArr))
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)
}

func TestDeserialize_UnknownKeys(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCart(t, reg)
	input := func() *goshape.Tape {
		return goshape.NewTape(beginMap,
			key("owner"), str("o"),
			key("coupon"), beginMap, key("deep"), beginArr, num("1"), beginArr, endArr, endArr, endMap,
			key("items"), beginArr, endArr,
			endMap)
	}

	_, err := goshape.Deserialize[cart](reg, input())
	assert.ErrorIs(t, err, goshape.ErrUnknownField)
	iss, _ := goshape.AsIssues(err)
	require.NotEmpty(t, iss)
	assert.Equal(t, "/coupon", iss[0].Path)

	got, err := goshape.Deserialize[cart](reg, input(), goshape.ReadOpt{Unknown: goshape.UnknownStrip})
	require.NoError(t, err)
	assert.Equal(t, "o", got.Owner)
	assert.Empty(t, got.Items)
}

func TestDeserialize_Truncated(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCart(t, reg)

	cases := map[string]*goshape.Tape{
		"empty":             goshape.NewTape(),
		"missing value":     goshape.NewTape(beginMap, key("owner")),
		"missing map end":   goshape.NewTape(beginMap, key("owner"), str("o")),
		"missing array end": goshape.NewTape(beginMap, key("items"), beginArr, beginMap, endMap),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := goshape.Deserialize[cart](reg, src)
			assert.ErrorIs(t, err, goshape.ErrTruncated)
			assert.True(t, errors.Is(err, io.EOF))
		})
	}
}

func TestDeserialize_Numbers(t *testing.T) {
	reg := goshape.NewRegistry()

	_, err := goshape.Deserialize[int8](reg, goshape.NewTape(num("300")))
	assert.ErrorIs(t, err, goshape.ErrOverflow)

	_, err = goshape.Deserialize[uint](reg, goshape.NewTape(num("-1")))
	assert.ErrorIs(t, err, goshape.ErrOverflow)

	_, err = goshape.Deserialize[int](reg, goshape.NewTape(num("1.5")))
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)

	n, err := goshape.Deserialize[int](reg, goshape.NewTape(num("2.0")))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := goshape.Deserialize[float32](reg, goshape.NewTape(num("0.25")))
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), f)

	_, err = goshape.Deserialize[float32](reg, goshape.NewTape(num("1e100")))
	assert.ErrorIs(t, err, goshape.ErrOverflow)

	_, err = goshape.Deserialize[bool](reg, goshape.NewTape(str("true")))
	assert.ErrorIs(t, err, goshape.ErrShapeMismatch)
}

func TestDeserialize_KeyedContainersAreCleared(t *testing.T) {
	reg := goshape.NewRegistry()

	set := map[string]struct{}{"old": {}}
	require.NoError(t, goshape.DeserializeInto(reg, goshape.NewTape(beginArr, str("b"), str("a"), endArr), &set))
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set)

	m := map[string]int{"old": 1}
	require.NoError(t, goshape.DeserializeInto(reg, goshape.NewTape(beginMap, key("n"), num("2"), endMap), &m))
	assert.Equal(t, map[string]int{"n": 2}, m)

	var keyed map[int]bool
	src := goshape.NewTape(beginArr, beginMap, key("second"), boolean(true), key("first"), num("4"), endMap, endArr)
	require.NoError(t, goshape.DeserializeInto(reg, src, &keyed))
	assert.Equal(t, map[int]bool{4: true}, keyed)
}

func TestDeserialize_DuplicateKeys(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCart(t, reg)
	input := func() *goshape.Tape {
		return goshape.NewTape(beginMap, key("owner"), str("a"), key("owner"), str("b"), endMap)
	}

	got, err := goshape.Deserialize[cart](reg, input())
	require.NoError(t, err)
	assert.Equal(t, "b", got.Owner, "last value wins when duplicates are ignored")

	_, err = goshape.Deserialize[cart](reg, input(), goshape.ReadOpt{OnDuplicateKey: goshape.Error})
	assert.ErrorIs(t, err, goshape.ErrDuplicateKey)
	iss, _ := goshape.AsIssues(err)
	require.NotEmpty(t, iss)
	assert.Equal(t, "/owner", iss[0].Path)
}

func TestDeserialize_MaxDepth(t *testing.T) {
	reg := goshape.NewRegistry()
	src := goshape.NewTape(beginArr, beginArr, beginArr, endArr, endArr, endArr)
	_, err := goshape.Deserialize[[][][]int](reg, src, goshape.ReadOpt{MaxDepth: 2})
	assert.ErrorIs(t, err, goshape.ErrParse)
}

// ring is a positional container registered by hand.
type ring struct{ items []string }

// bag is a multiset registered by hand.
type bag struct{ counts map[string]int }

// optional is a nullable holder registered by hand.
type optional struct {
	v  int
	ok bool
}

func registerCustom(t *testing.T, reg *goshape.Registry) {
	t.Helper()
	require.NoError(t, goshape.Emplacer(reg, goshape.EmplaceOps[ring, string]{
		Len: func(r *ring) int { return len(r.items) },
		At:  func(r *ring, i int) *string { return &r.items[i] },
		Resize: func(r *ring, n int) {
			if n <= len(r.items) {
				r.items = r.items[:n]
				return
			}
			r.items = append(r.items, make([]string, n-len(r.items))...)
		},
	}))
	require.NoError(t, goshape.Inserter(reg, goshape.InsertOps[bag, string]{
		Len: func(b *bag) int {
			n := 0
			for _, c := range b.counts {
				n += c
			}
			return n
		},
		Each: func(b *bag, fn func(*string) error) error {
			keys := make([]string, 0, len(b.counts))
			for k := range b.counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				for i := 0; i < b.counts[k]; i++ {
					if err := fn(&k); err != nil {
						return err
					}
				}
			}
			return nil
		},
		Insert: func(b *bag, e string) {
			if b.counts == nil {
				b.counts = map[string]int{}
			}
			b.counts[e]++
		},
		Clear: func(b *bag) { b.counts = nil },
	}))
	require.NoError(t, goshape.Nullable(reg, goshape.NullableOps[optional, int]{
		Get: func(o *optional) *int {
			if !o.ok {
				return nil
			}
			return &o.v
		},
		Alloc: func(o *optional) (*int, error) {
			*o = optional{ok: true}
			return &o.v, nil
		},
		Release: func(o *optional) { *o = optional{} },
	}))
}

func TestCustomAdapters(t *testing.T) {
	reg := goshape.NewRegistry()
	registerCustom(t, reg)

	t.Run("emplace", func(t *testing.T) {
		tape := record(t, reg, ring{items: []string{"a", "b", "c"}})
		assert.Equal(t, []goshape.Token{beginArr, str("a"), str("b"), str("c"), endArr}, tape.Tokens)

		dst := ring{items: []string{"x", "y", "z", "w"}}
		require.NoError(t, goshape.DeserializeInto(reg, tape, &dst))
		assert.Equal(t, []string{"a", "b", "c"}, dst.items)
	})
	t.Run("insert", func(t *testing.T) {
		tape := record(t, reg, bag{counts: map[string]int{"b": 1, "a": 2}})
		assert.Equal(t, []goshape.Token{beginArr, str("a"), str("a"), str("b"), endArr}, tape.Tokens)

		dst := bag{counts: map[string]int{"z": 9}}
		require.NoError(t, goshape.DeserializeInto(reg, tape, &dst))
		assert.Equal(t, map[string]int{"a": 2, "b": 1}, dst.counts)
	})
	t.Run("nullable", func(t *testing.T) {
		tape := record(t, reg, optional{v: 4, ok: true})
		assert.Equal(t, []goshape.Token{num("4")}, tape.Tokens)
		got, err := goshape.Deserialize[optional](reg, tape)
		require.NoError(t, err)
		assert.Equal(t, optional{v: 4, ok: true}, got)

		tape = record(t, reg, optional{})
		assert.Equal(t, []goshape.Token{null}, tape.Tokens)
		got = optional{v: 1, ok: true}
		require.NoError(t, goshape.DeserializeInto(reg, tape, &got))
		assert.Equal(t, optional{}, got)
	})
}

func TestNullable_AllocationFailure(t *testing.T) {
	type handle struct{ p *int }
	reg := goshape.NewRegistry()
	require.NoError(t, goshape.Nullable(reg, goshape.NullableOps[handle, int]{
		Get:     func(h *handle) *int { return h.p },
		Alloc:   func(*handle) (*int, error) { return nil, nil },
		Release: func(h *handle) { h.p = nil },
	}))
	_, err := goshape.Deserialize[handle](reg, goshape.NewTape(num("1")))
	assert.ErrorIs(t, err, goshape.ErrAllocation)
}

func TestDeserializer_ReadsSequentialValues(t *testing.T) {
	reg := goshape.NewRegistry()
	d := goshape.NewDeserializer(reg, goshape.NewTape(num("1"), str("two"), beginArr, num("3"), endArr))

	var a int
	var b string
	var c []int
	require.NoError(t, d.Read(&a))
	require.NoError(t, d.Read(&b))
	require.NoError(t, d.Read(&c))
	assert.Equal(t, 1, a)
	assert.Equal(t, "two", b)
	assert.True(t, slices.Equal([]int{3}, c))
	assert.ErrorIs(t, d.Read(&a), goshape.ErrTruncated)
}
