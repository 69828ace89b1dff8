package goshape

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/reoring/goshape/internal/compress"
)

// FailureMarker is implemented by destinations that carry a failure status,
// such as StatusWriter and StatusReader. Exporters and importers mark them
// whenever serialization fails.
type FailureMarker interface {
	SetFailed(err error)
}

// StatusWriter is an io.Writer that remembers the first failure reported
// against it. Writes after a failure are rejected.
type StatusWriter struct {
	W   io.Writer
	err error
}

func (s *StatusWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.W.Write(p)
}

func (s *StatusWriter) SetFailed(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Failed reports whether a failure was recorded.
func (s *StatusWriter) Failed() bool { return s.err != nil }

// Err returns the recorded failure.
func (s *StatusWriter) Err() error { return s.err }

// StatusReader is the reading counterpart of StatusWriter.
type StatusReader struct {
	R   io.Reader
	err error
}

func (s *StatusReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.R.Read(p)
}

func (s *StatusReader) SetFailed(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Failed reports whether a failure was recorded.
func (s *StatusReader) Failed() bool { return s.err != nil }

// Err returns the recorded failure.
func (s *StatusReader) Err() error { return s.err }

// Exporter writes one value in a format. It implements io.WriterTo so it can
// be handed to anything that copies into a writer.
type Exporter[T any] struct {
	reg    *Registry
	format Format
	value  T
	opt    ExportOpt
	err    error
}

// Export prepares v for writing in format f.
func Export[T any](reg *Registry, f Format, v T, opts ...ExportOpt) *Exporter[T] {
	var opt ExportOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	return &Exporter[T]{reg: reg, format: f, value: v, opt: opt}
}

// WriteTo serializes the value into w and flushes the printer. On failure w
// is marked when it is a FailureMarker; with CatchErrors set the failure is
// then only logged and WriteTo returns a nil error.
func (e *Exporter[T]) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := e.write(cw)
	if err == nil {
		e.err = nil
		return cw.n, nil
	}
	e.err = err
	if fm, ok := w.(FailureMarker); ok {
		fm.SetFailed(err)
	}
	if e.opt.CatchErrors {
		e.reg.log.Warn("goshape: export failed", "format", e.format.Name(), "error", err)
		return cw.n, nil
	}
	return cw.n, err
}

func (e *Exporter[T]) write(w io.Writer) error {
	if e.format == nil {
		return errors.New("goshape: no format")
	}
	zw, err := compress.NewWriter(w, string(e.opt.Compress))
	if err != nil {
		return err
	}
	p := e.format.NewPrinter(zw, PrinterConfig{Pretty: e.opt.Pretty, Indent: e.opt.Indent})
	err = Serialize(e.reg, p, e.value)
	if err == nil {
		err = p.Flush()
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	return err
}

// Failed reports whether the last WriteTo failed.
func (e *Exporter[T]) Failed() bool { return e.err != nil }

// Err returns the failure of the last WriteTo, caught or not.
func (e *Exporter[T]) Err() error { return e.err }

// Importer reads one value in a format into a destination. It implements
// io.ReaderFrom.
type Importer[T any] struct {
	reg    *Registry
	format Format
	dst    *T
	opt    ImportOpt
	err    error
}

// Import prepares dst to be filled from input in format f.
func Import[T any](reg *Registry, f Format, dst *T, opts ...ImportOpt) *Importer[T] {
	var opt ImportOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	return &Importer[T]{reg: reg, format: f, dst: dst, opt: opt}
}

// ReadFrom deserializes one value from r. Failure handling mirrors
// Exporter.WriteTo.
func (im *Importer[T]) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	err := im.read(cr)
	if err == nil {
		im.err = nil
		return cr.n, nil
	}
	im.err = err
	if fm, ok := r.(FailureMarker); ok {
		fm.SetFailed(err)
	}
	if im.opt.CatchErrors {
		im.reg.log.Warn("goshape: import failed", "format", im.format.Name(), "error", err)
		return cr.n, nil
	}
	return cr.n, err
}

func (im *Importer[T]) read(r io.Reader) error {
	if im.format == nil {
		return errors.New("goshape: no format")
	}
	if im.dst == nil {
		return issue(CodeInvalidType, "", "Import needs a non-nil destination")
	}
	zr, err := compress.NewReader(r, string(im.opt.Compress))
	if err != nil {
		return parserIssue(err, "")
	}
	defer zr.Close()
	return DeserializeInto(im.reg, im.format.NewParser(zr), im.dst, im.opt.ReadOpt)
}

// Failed reports whether the last ReadFrom failed.
func (im *Importer[T]) Failed() bool { return im.err != nil }

// Err returns the failure of the last ReadFrom, caught or not.
func (im *Importer[T]) Err() error { return im.err }

// Marshal returns v encoded in format f.
func Marshal[T any](reg *Registry, f Format, v T, opts ...ExportOpt) ([]byte, error) {
	var buf bytes.Buffer
	ex := Export(reg, f, v, opts...)
	ex.opt.CatchErrors = false
	if _, err := ex.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data in format f into dst.
func Unmarshal[T any](reg *Registry, f Format, data []byte, dst *T, opts ...ImportOpt) error {
	im := Import(reg, f, dst, opts...)
	im.opt.CatchErrors = false
	_, err := im.ReadFrom(bytes.NewReader(data))
	return err
}

// MarshalNamed is Marshal with the format looked up by name.
func MarshalNamed[T any](reg *Registry, format string, v T, opts ...ExportOpt) ([]byte, error) {
	f, ok := LookupFormat(format)
	if !ok {
		return nil, fmt.Errorf("goshape: format %q is not registered", format)
	}
	return Marshal(reg, f, v, opts...)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
