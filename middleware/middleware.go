// Package middleware connects goshape to net/http: request bodies are read
// and responses written in the format named by the Content-Type and Accept
// headers.
package middleware

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/reoring/goshape"
)

// ctxKeyDecoded is a typed context key for storing a decoded T.
// Using a generic struct type ensures uniqueness per T.
type ctxKeyDecoded[T any] struct{}

// ContextWithDecoded attaches a decoded value to the context.
func ContextWithDecoded[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, ctxKeyDecoded[T]{}, v)
}

// DecodedFromContext retrieves a value stored by ContextWithDecoded.
func DecodedFromContext[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(ctxKeyDecoded[T]{}).(T)
	return v, ok
}

// DefaultImportOpt returns a recommended default for HTTP boundaries.
// - Unknown keys are errors
// - Duplicate keys are errors
// - Nesting is bounded
func DefaultImportOpt() goshape.ImportOpt {
	return goshape.ImportOpt{ReadOpt: goshape.ReadOpt{
		Unknown:        goshape.UnknownStrict,
		OnDuplicateKey: goshape.Error,
		MaxDepth:       64,
	}}
}

var mediaTypes = map[string]string{
	"application/json":       "json",
	"application/yaml":       "yaml",
	"application/x-yaml":     "yaml",
	"text/yaml":              "yaml",
	"application/msgpack":    "msgpack",
	"application/x-msgpack":  "msgpack",
	"application/x-protobuf": "proto",
	"application/toml":       "toml",
}

// FormatFor maps a media type to a registered format. Parameters such as
// charset are ignored.
func FormatFor(mediaType string) (goshape.Format, bool) {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return nil, false
	}
	name, ok := mediaTypes[mt]
	if !ok {
		return nil, false
	}
	return goshape.LookupFormat(name)
}

var contentTypes = map[string]string{
	"json":    "application/json",
	"yaml":    "application/yaml",
	"msgpack": "application/msgpack",
	"proto":   "application/x-protobuf",
	"toml":    "application/toml",
}

// ContentTypeOf returns the media type served for a format name.
func ContentTypeOf(format string) string {
	if mt, ok := contentTypes[format]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Decode reads the request body into a T using the Content-Type format;
// requests without one are read as JSON.
func Decode[T any](reg *goshape.Registry, r *http.Request, opt goshape.ImportOpt) (T, error) {
	var v T
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	f, ok := FormatFor(ct)
	if !ok {
		return v, &UnsupportedMediaTypeError{MediaType: ct}
	}
	opt.CatchErrors = false
	_, err := goshape.Import(reg, f, &v, opt).ReadFrom(r.Body)
	return v, err
}

// Bind decodes the body into T and stores it in the request context for
// next. Decoding failures are answered with 400 and the issue list, unknown
// media types with 415. The ErrorBody shapes are registered on reg unless it
// is already sealed.
func Bind[T any](reg *goshape.Registry, opt goshape.ImportOpt, next http.Handler) http.Handler {
	_ = RegisterErrorBody(reg)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := Decode[T](reg, r, opt)
		if err != nil {
			_ = Reject(reg, w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithDecoded(r.Context(), v)))
	})
}

// Reject answers a failed Decode: 415 for an unknown media type, otherwise
// 400 with the issue list in the negotiated format. reg must have the
// ErrorBody shapes registered.
func Reject(reg *goshape.Registry, w http.ResponseWriter, r *http.Request, err error) error {
	if _, ok := err.(*UnsupportedMediaTypeError); ok {
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return nil
	}
	iss, ok := goshape.AsIssues(err)
	if !ok {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	return Respond(reg, w, r, http.StatusBadRequest, ErrorPayload(iss))
}

// Respond writes v with status in the first Accept format that is
// registered, falling back to JSON.
func Respond[T any](reg *goshape.Registry, w http.ResponseWriter, r *http.Request, status int, v T) error {
	name := "json"
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if f, ok := FormatFor(strings.TrimSpace(part)); ok {
			name = f.Name()
			break
		}
	}
	b, err := goshape.MarshalNamed(reg, name, v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", ContentTypeOf(name))
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

// ErrorBody is the response payload for rejected requests.
type ErrorBody struct {
	Issues []IssueBody `json:"issues"`
}

// IssueBody is one issue of an ErrorBody.
type IssueBody struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorPayload shapes Issues for responses.
func ErrorPayload(issues goshape.Issues) ErrorBody {
	out := ErrorBody{Issues: make([]IssueBody, len(issues))}
	for i, it := range issues {
		out.Issues[i] = IssueBody{Path: it.Path, Code: it.Code, Message: it.Message}
	}
	return out
}

// RegisterErrorBody binds the shapes of ErrorBody so Respond can write it.
func RegisterErrorBody(reg *goshape.Registry) error {
	if err := goshape.Struct(reg,
		goshape.FieldOf(func(i *IssueBody) *string { return &i.Path }),
		goshape.FieldOf(func(i *IssueBody) *string { return &i.Code }),
		goshape.FieldOf(func(i *IssueBody) *string { return &i.Message }),
	); err != nil {
		return err
	}
	return goshape.Struct(reg, goshape.FieldOf(func(b *ErrorBody) *[]IssueBody { return &b.Issues }))
}

// UnsupportedMediaTypeError reports a Content-Type with no registered format.
type UnsupportedMediaTypeError struct{ MediaType string }

func (e *UnsupportedMediaTypeError) Error() string {
	return "unsupported media type " + e.MediaType
}
