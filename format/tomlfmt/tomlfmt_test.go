package tomlfmt_test

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
	"github.com/reoring/goshape/format/tomlfmt"
)

type server struct {
	Host string
	Port int
}

type config struct {
	Name    string
	Ratio   float64
	Debug   bool
	Tags    []string
	Server  server
	Backups []server
}

func newRegistry(t *testing.T) *goshape.Registry {
	t.Helper()
	reg := goshape.NewRegistry()
	require.NoError(t, goshape.Struct(reg,
		goshape.F("host", func(s *server) *string { return &s.Host }),
		goshape.F("port", func(s *server) *int { return &s.Port }),
	))
	require.NoError(t, goshape.Struct(reg,
		goshape.F("name", func(c *config) *string { return &c.Name }),
		goshape.F("ratio", func(c *config) *float64 { return &c.Ratio }),
		goshape.F("debug", func(c *config) *bool { return &c.Debug }),
		goshape.F("tags", func(c *config) *[]string { return &c.Tags }),
		goshape.F("server", func(c *config) *server { return &c.Server }),
		goshape.F("backups", func(c *config) *[]server { return &c.Backups }),
	))
	return reg
}

func TestRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	in := config{
		Name:    "svc",
		Ratio:   0.75,
		Debug:   true,
		Tags:    []string{"a", "b"},
		Server:  server{Host: "localhost", Port: 8080},
		Backups: []server{{Host: "b1", Port: 1}, {Host: "b2", Port: 2}},
	}

	out, err := goshape.Marshal(reg, tomlfmt.Format{}, in)
	require.NoError(t, err)

	var raw map[string]any
	_, err = toml.Decode(string(out), &raw)
	require.NoError(t, err)
	assert.Equal(t, "svc", raw["name"])

	var got config
	require.NoError(t, goshape.Unmarshal(reg, tomlfmt.Format{}, out, &got))
	assert.Equal(t, in, got)
}

func TestParser_Document(t *testing.T) {
	reg := newRegistry(t)
	doc := `
name = "svc"
ratio = 1
debug = false
tags = ["x"]

[server]
host = "h"
port = 9

[[backups]]
host = "b"
port = 10
`
	var got config
	require.NoError(t, goshape.Unmarshal(reg, tomlfmt.Format{}, []byte(doc), &got))
	assert.Equal(t, config{
		Name:    "svc",
		Ratio:   1,
		Tags:    []string{"x"},
		Server:  server{Host: "h", Port: 9},
		Backups: []server{{Host: "b", Port: 10}},
	}, got)
}

func TestPrinter_Limits(t *testing.T) {
	reg := goshape.NewRegistry()

	_, err := goshape.Marshal(reg, tomlfmt.Format{}, []int{1})
	assert.Error(t, err)

	_, err = goshape.Marshal(reg, tomlfmt.Format{}, map[string]*int{"k": nil})
	assert.Error(t, err)
}

func TestParser_Errors(t *testing.T) {
	var got config
	err := goshape.Unmarshal(newRegistry(t), tomlfmt.Format{}, []byte("name = "), &got)
	assert.ErrorIs(t, err, goshape.ErrParse)
}
