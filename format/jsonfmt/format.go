// Package jsonfmt implements the JSON format on top of goccy/go-json.
// Importing it registers the format under the name "json".
package jsonfmt

import (
	"io"

	"github.com/reoring/goshape"
)

// Name is the registered format name.
const Name = "json"

// Format is the JSON goshape.Format.
type Format struct{}

func (Format) Name() string { return Name }

func (Format) NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	return NewPrinter(w, cfg)
}

func (Format) NewParser(r io.Reader) goshape.Parser { return NewParser(r) }

func init() { goshape.RegisterFormat(Format{}) }
