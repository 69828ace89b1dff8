// Package compress wraps stream compressors behind a name so formats can be
// layered over gzip, zstd or brotli transparently.
package compress

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	None   = ""
	Gzip   = "gzip"
	Zstd   = "zstd"
	Brotli = "br"
)

// Known reports whether name is a supported compression.
func Known(name string) bool {
	switch name {
	case None, Gzip, Zstd, Brotli:
		return true
	}
	return false
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into w. Close must be called to
// finish the stream; it does not close w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch name {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	case Brotli:
		return brotli.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

type zstdReadCloser struct{ *zstd.Decoder }

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// NewReader returns a reader decompressing r.
func NewReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch name {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{d}, nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}
