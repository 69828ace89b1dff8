package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"

	"github.com/reoring/goshape"
	_ "github.com/reoring/goshape/format/jsonfmt"
	_ "github.com/reoring/goshape/format/msgpackfmt"
	_ "github.com/reoring/goshape/format/protofmt"
	_ "github.com/reoring/goshape/format/tomlfmt"
	_ "github.com/reoring/goshape/format/yamlfmt"
	"github.com/reoring/goshape/internal/compress"
	eng "github.com/reoring/goshape/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()
	sub := os.Args[1]
	switch sub {
	case "convert":
		convertCmd(os.Args[2:])
	case "dump":
		dumpCmd(os.Args[2:])
	case "formats":
		for _, name := range goshape.Formats() {
			fmt.Println(name)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "goshape CLI\n\nUsage:\n  goshape convert [-config profile.toml] -from json -to yaml [-in file] [-out file] [-pretty]\n  goshape dump [-from json] [-in file]\n  goshape formats\n\nEnvironment:\n  GOSHAPE_FROM, GOSHAPE_TO, GOSHAPE_PRETTY, GOSHAPE_INDENT, GOSHAPE_COMPRESS_IN,\n  GOSHAPE_COMPRESS_OUT, GOSHAPE_MAX_DEPTH, GOSHAPE_VERBOSE (also read from .env)")
}

// commonFlags registers the flags shared by every subcommand and returns a
// function resolving the final configuration after parsing.
func commonFlags(fs *flag.FlagSet) func() Config {
	var (
		profile = fs.String("config", "", "TOML profile with default settings")
		flags   Config
	)
	fs.StringVar(&flags.From, "from", "", "input format")
	fs.StringVar(&flags.To, "to", "", "output format")
	fs.BoolVar(&flags.Pretty, "pretty", false, "indent the output where the format allows")
	fs.StringVar(&flags.Indent, "indent", "", "indent unit used with -pretty")
	fs.StringVar(&flags.CompressIn, "compress-in", "", "input compression: gzip, zstd or br")
	fs.StringVar(&flags.CompressOut, "compress-out", "", "output compression: gzip, zstd or br")
	fs.IntVar(&flags.MaxDepth, "max-depth", 0, "maximum nesting depth of the input")
	fs.BoolVar(&flags.Verbose, "v", false, "enable debug logs")

	return func() Config {
		cfg, err := loadConfig(*profile, os.LookupEnv)
		if err != nil {
			fatalf("config: %v", err)
		}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "from":
				cfg.From = flags.From
			case "to":
				cfg.To = flags.To
			case "pretty":
				cfg.Pretty = flags.Pretty
			case "indent":
				cfg.Indent = flags.Indent
			case "compress-in":
				cfg.CompressIn = flags.CompressIn
			case "compress-out":
				cfg.CompressOut = flags.CompressOut
			case "max-depth":
				cfg.MaxDepth = flags.MaxDepth
			case "v":
				cfg.Verbose = flags.Verbose
			}
		})
		cfg, err = withDefaults(cfg)
		if err != nil {
			fatalf("config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			fatalf("config: %v", err)
		}
		return cfg
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "input file (default stdin)")
	out := fs.String("out", "", "output file (default stdout)")
	resolve := commonFlags(fs)
	_ = fs.Parse(args)
	cfg := resolve()
	log := newLogger(cfg.Verbose)
	log.Debug("convert", "from", cfg.From, "to", cfg.To, "compress_in", cfg.CompressIn, "compress_out", cfg.CompressOut)

	r, closeIn := openInput(*in, cfg.CompressIn)
	defer closeIn()
	w, closeOut := openOutput(*out, cfg.CompressOut)

	from, _ := goshape.LookupFormat(cfg.From)
	to, _ := goshape.LookupFormat(cfg.To)
	var src goshape.Parser = from.NewParser(r)
	if cfg.MaxDepth > 0 {
		src = eng.WrapWithEnforcement(src, eng.EnforceOptions{MaxDepth: cfg.MaxDepth})
	}
	err := goshape.Transcode(src, to.NewPrinter(w, goshape.PrinterConfig{Pretty: cfg.Pretty, Indent: cfg.Indent}))
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("convert failed", "error", err)
		os.Exit(1)
	}
}

func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	in := fs.String("in", "", "input file (default stdin)")
	resolve := commonFlags(fs)
	_ = fs.Parse(args)
	cfg := resolve()

	r, closeIn := openInput(*in, cfg.CompressIn)
	defer closeIn()
	from, _ := goshape.LookupFormat(cfg.From)
	v, err := eng.DecodeAny(from.NewParser(r))
	if err != nil {
		fatalf("dump: %v", err)
	}
	spew.Fdump(os.Stdout, v)
}

func openInput(path, compression string) (io.Reader, func()) {
	var f *os.File = os.Stdin
	if path != "" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			fatalf("open input: %v", err)
		}
	}
	zr, err := compress.NewReader(bufio.NewReader(f), compression)
	if err != nil {
		fatalf("input: %v", err)
	}
	return zr, func() {
		_ = zr.Close()
		if f != os.Stdin {
			_ = f.Close()
		}
	}
}

func openOutput(path, compression string) (io.Writer, func() error) {
	var f *os.File = os.Stdout
	if path != "" {
		var err error
		f, err = os.Create(path)
		if err != nil {
			fatalf("create output: %v", err)
		}
	}
	zw, err := compress.NewWriter(f, compression)
	if err != nil {
		fatalf("output: %v", err)
	}
	return zw, func() error {
		err := zw.Close()
		if f != os.Stdout {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}
