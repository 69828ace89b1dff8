package main

import (
	"fmt"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/hengadev/errsx"

	"github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/compress"
)

// Config holds the settings of a conversion. Values come from, in rising
// precedence: built-in defaults, a TOML profile, GOSHAPE_* environment
// variables (a .env file in the working directory is loaded first) and
// command-line flags.
type Config struct {
	From        string `toml:"from"`
	To          string `toml:"to"`
	Pretty      bool   `toml:"pretty"`
	Indent      string `toml:"indent"`
	CompressIn  string `toml:"compress_in"`
	CompressOut string `toml:"compress_out"`
	MaxDepth    int    `toml:"max_depth"`
	Verbose     bool   `toml:"verbose"`
}

func defaultConfig() Config {
	return Config{From: "json", To: "json", Indent: "  ", MaxDepth: 512}
}

// loadConfig reads the profile at path (when set), overlays the environment
// seen through lookup and fills the remaining zero values from defaults.
func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading profile %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withDefaults fills unset fields; it runs after flags are applied so that
// only values nobody chose are defaulted.
func withDefaults(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, defaultConfig()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	str := map[string]*string{
		"GOSHAPE_FROM":         &cfg.From,
		"GOSHAPE_TO":           &cfg.To,
		"GOSHAPE_INDENT":       &cfg.Indent,
		"GOSHAPE_COMPRESS_IN":  &cfg.CompressIn,
		"GOSHAPE_COMPRESS_OUT": &cfg.CompressOut,
	}
	for k, dst := range str {
		if v, ok := lookup(k); ok {
			*dst = v
		}
	}
	var errs errsx.Map
	if v, ok := lookup("GOSHAPE_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.Set("GOSHAPE_PRETTY", err)
		}
		cfg.Pretty = b
	}
	if v, ok := lookup("GOSHAPE_VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.Set("GOSHAPE_VERBOSE", err)
		}
		cfg.Verbose = b
	}
	if v, ok := lookup("GOSHAPE_MAX_DEPTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs.Set("GOSHAPE_MAX_DEPTH", err)
		}
		cfg.MaxDepth = n
	}
	if !errs.IsEmpty() {
		return errs.AsError()
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs errsx.Map
	if _, ok := goshape.LookupFormat(c.From); !ok {
		errs.Set("from", fmt.Sprintf("unknown format %q (have %s)", c.From, strings.Join(goshape.Formats(), ", ")))
	}
	if _, ok := goshape.LookupFormat(c.To); !ok {
		errs.Set("to", fmt.Sprintf("unknown format %q (have %s)", c.To, strings.Join(goshape.Formats(), ", ")))
	}
	if !compress.Known(c.CompressIn) {
		errs.Set("compress_in", fmt.Sprintf("unknown compression %q", c.CompressIn))
	}
	if !compress.Known(c.CompressOut) {
		errs.Set("compress_out", fmt.Sprintf("unknown compression %q", c.CompressOut))
	}
	if c.MaxDepth < 0 {
		errs.Set("max_depth", "must not be negative")
	}
	if !errs.IsEmpty() {
		return errs.AsError()
	}
	return nil
}
