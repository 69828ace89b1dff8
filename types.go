package goshape

// UnknownPolicy controls how keys without a matching field are handled.
type UnknownPolicy int

const (
	UnknownStrict UnknownPolicy = iota // Reject unknown keys with an error.
	UnknownStrip                       // Skip the value of unknown keys.
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Compression names a stream compression applied around a format.
type Compression string

const (
	CompressNone   Compression = ""
	CompressGzip   Compression = "gzip"
	CompressZstd   Compression = "zstd"
	CompressBrotli Compression = "br"
)

// ReadOpt bundles options for the deserializer.
type ReadOpt struct {
	Unknown        UnknownPolicy
	OnDuplicateKey Severity
	MaxDepth       int
	MaxBytes       int64
}

// ExportOpt configures an Exporter.
type ExportOpt struct {
	Pretty      bool
	Indent      string
	Compress    Compression
	CatchErrors bool // report failures through the destination status instead of the return value
}

// ImportOpt configures an Importer.
type ImportOpt struct {
	ReadOpt
	Compress    Compression
	CatchErrors bool
}
