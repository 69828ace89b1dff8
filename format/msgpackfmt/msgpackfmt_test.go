package msgpackfmt_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/reoring/goshape"
	"github.com/reoring/goshape/format/msgpackfmt"
)

type item struct {
	Name  string
	Count int64
	Size  uint64
	Ratio float64
	Tags  []string
	Next  *item
}

func newRegistry(t *testing.T) *goshape.Registry {
	t.Helper()
	reg := goshape.NewRegistry()
	require.NoError(t, goshape.Struct(reg,
		goshape.F("name", func(i *item) *string { return &i.Name }),
		goshape.F("count", func(i *item) *int64 { return &i.Count }),
		goshape.F("size", func(i *item) *uint64 { return &i.Size }),
		goshape.F("ratio", func(i *item) *float64 { return &i.Ratio }),
		goshape.F("tags", func(i *item) *[]string { return &i.Tags }),
		goshape.F("next", func(i *item) **item { return &i.Next }),
	))
	return reg
}

func TestRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	in := item{
		Name:  "a",
		Count: -1 << 40,
		Size:  1<<64 - 1,
		Ratio: 0.25,
		Tags:  []string{"x", "y"},
		Next:  &item{Name: "b", Tags: []string{"z"}},
	}

	out, err := goshape.Marshal(reg, msgpackfmt.Format{}, in)
	require.NoError(t, err)

	var got item
	require.NoError(t, goshape.Unmarshal(reg, msgpackfmt.Format{}, out, &got))
	assert.Equal(t, in, got)
}

func TestPrinter_CountsLengths(t *testing.T) {
	out, err := goshape.Marshal(goshape.NewRegistry(), msgpackfmt.Format{}, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x92, 0x01, 0x02}, out)

	out, err = goshape.Marshal(goshape.NewRegistry(), msgpackfmt.Format{}, map[string]bool{"a": true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0xa1, 'a', 0xc3}, out)
}

func TestParser_ForeignEncoder(t *testing.T) {
	reg := newRegistry(t)
	data, err := msgpack.Marshal(map[string]any{
		"name":  "ext",
		"count": 300,
		"size":  uint64(70000),
		"ratio": float32(0.5),
		"tags":  []string{"p"},
		"next":  nil,
	})
	require.NoError(t, err)

	var got item
	require.NoError(t, goshape.Unmarshal(reg, msgpackfmt.Format{}, data, &got))
	assert.Equal(t, item{Name: "ext", Count: 300, Size: 70000, Ratio: 0.5, Tags: []string{"p"}}, got)
}

func TestParser_Truncated(t *testing.T) {
	reg := newRegistry(t)
	out, err := goshape.Marshal(reg, msgpackfmt.Format{}, item{Name: "a", Tags: []string{"x"}})
	require.NoError(t, err)

	var got item
	err = goshape.Unmarshal(reg, msgpackfmt.Format{}, out[:len(out)-3], &got)
	assert.Error(t, err)

	p := msgpackfmt.NewParser(bytes.NewReader([]byte{0x92, 0x01}))
	_, err = p.NextToken()
	require.NoError(t, err)
	_, err = p.NextToken()
	require.NoError(t, err)
	_, err = p.NextToken()
	assert.Error(t, err)
}
