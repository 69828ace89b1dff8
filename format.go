package goshape

import (
	"io"
	"sort"
	"sync"
)

// PrinterConfig carries presentation options for a printer.
type PrinterConfig struct {
	Pretty bool
	Indent string // used when Pretty is set; formats pick a default when empty
}

// Format pairs a printer and a parser for one wire representation. Backends
// live under format/ and register themselves on import.
type Format interface {
	Name() string
	NewPrinter(w io.Writer, cfg PrinterConfig) Printer
	NewParser(r io.Reader) Parser
}

var (
	formatsMu sync.RWMutex
	formats   = map[string]Format{}
)

// RegisterFormat makes f available through LookupFormat under f.Name().
// A later registration under the same name replaces the earlier one; nil
// values are ignored.
func RegisterFormat(f Format) {
	if f == nil {
		return
	}
	formatsMu.Lock()
	formats[f.Name()] = f
	formatsMu.Unlock()
}

// LookupFormat returns the format registered under name.
func LookupFormat(name string) (Format, bool) {
	formatsMu.RLock()
	f, ok := formats[name]
	formatsMu.RUnlock()
	return f, ok
}

// Formats lists registered format names in sorted order.
func Formats() []string {
	formatsMu.RLock()
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	formatsMu.RUnlock()
	sort.Strings(names)
	return names
}
