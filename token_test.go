package goshape_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
	"github.com/reoring/goshape/format/jsonfmt"
)

func TestTranscode_JSONToTape(t *testing.T) {
	tape := &goshape.Tape{}
	require.NoError(t, goshape.Transcode(jsonfmt.NewBytes([]byte(`{"a":[1,"x",true,null],"b":{}}`)), tape))
	assert.Equal(t, []goshape.TokenKind{
		goshape.TokenBeginObject,
		goshape.TokenKey, goshape.TokenBeginArray,
		goshape.TokenNumber, goshape.TokenString, goshape.TokenBool, goshape.TokenNull,
		goshape.TokenEndArray,
		goshape.TokenKey, goshape.TokenBeginObject, goshape.TokenEndObject,
		goshape.TokenEndObject,
	}, tape.Kinds())
	assert.Equal(t, "1", tape.Tokens[3].Number)
	assert.Equal(t, "x", tape.Tokens[4].String)
}

func TestTranscode_JSONToJSON(t *testing.T) {
	var buf bytes.Buffer
	p := jsonfmt.NewPrinter(&buf, goshape.PrinterConfig{})
	require.NoError(t, goshape.Transcode(jsonfmt.NewBytes([]byte(` { "a" : [ 1 , 2.50 ] , "b" : "s" } `)), p))
	assert.Equal(t, `{"a":[1,2.50],"b":"s"}`, buf.String())
}

func TestTranscode_Truncated(t *testing.T) {
	err := goshape.Transcode(goshape.NewTape(beginArr, num("1")), &goshape.Tape{})
	assert.ErrorIs(t, err, goshape.ErrTruncated)
}

func TestTape_ReplayAndBalance(t *testing.T) {
	tape := &goshape.Tape{}
	require.NoError(t, tape.OpenArray(1))
	require.NoError(t, tape.AddValue(num("1")))
	assert.Error(t, tape.CloseMap())
	require.NoError(t, tape.CloseArray())
	assert.Error(t, tape.CloseArray())

	for range 2 {
		var got []int
		require.NoError(t, goshape.NewDeserializer(goshape.NewRegistry(), tape).Read(&got))
		assert.Equal(t, []int{1}, got)
		assert.Equal(t, int64(3), tape.Location())
		tape.Rewind()
	}
}
