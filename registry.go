package goshape

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Registry maps Go types to their shapes. It is safe for concurrent use;
// registration is expected to happen during program start-up, after which
// lookups only read.
type Registry struct {
	mu     sync.RWMutex
	shapes map[reflect.Type]*Shape
	sealed bool
	log    *slog.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger routes registry diagnostics (and those of streams built on the
// registry) to l. The default logger discards everything.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry returns a registry with the built-in scalar shapes bound.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		shapes: make(map[reflect.Type]*Shape),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	registerBuiltins(r)
	return r
}

var defaultRegistry struct {
	once sync.Once
	r    *Registry
}

// Default returns the process-wide registry, created on first use.
func Default() *Registry {
	defaultRegistry.once.Do(func() { defaultRegistry.r = NewRegistry() })
	return defaultRegistry.r
}

// Logger returns the logger configured for the registry.
func (r *Registry) Logger() *slog.Logger { return r.log }

// Seal rejects further registrations with ErrSealed. Lookups and on-demand
// derivation of composite types keep working.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// ShapeOf returns the shape registered for t. Pointers, slices, arrays and
// maps whose element types are known are derived on first lookup; other
// unknown types report CodeNotRegistered.
func (r *Registry) ShapeOf(t reflect.Type) (*Shape, error) {
	if t == nil {
		return nil, issue(CodeNotRegistered, "", "nil type")
	}
	r.mu.RLock()
	s := r.shapes[t]
	r.mu.RUnlock()
	if s != nil {
		return s, nil
	}
	s, err := r.derive(t)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if existing := r.shapes[t]; existing != nil {
		s = existing
	} else {
		r.shapes[t] = s
	}
	r.mu.Unlock()
	return s, nil
}

// ShapeFor returns the shape registered for T.
func ShapeFor[T any](r *Registry) (*Shape, error) {
	return r.ShapeOf(reflect.TypeFor[T]())
}

// Registered reports whether t has a shape bound, derived ones included.
func (r *Registry) Registered(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shapes[t]
	return ok
}

// bind stores s. The first explicit registration for a type wins; later ones
// are ignored and logged at debug level. A type whose shape was already
// derived by a lookup cannot be registered any more: owners resolved before
// the registration would keep the derived shape.
func (r *Registry) bind(s *Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, s.typ)
	}
	if existing, ok := r.shapes[s.typ]; ok {
		if existing.derived {
			return fmt.Errorf("%w: %s was derived on first use; register it before any lookup", ErrInUse, s.typ)
		}
		r.log.Debug("shape already registered; keeping the first", "type", s.typ.String(), "kind", existing.kind.String())
		return nil
	}
	r.shapes[s.typ] = s
	return nil
}

func (r *Registry) ref(t reflect.Type) *shapeRef {
	return &shapeRef{reg: r, typ: t}
}
