package metadata

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Registry caches entity metadata per type. It is safe for concurrent use;
// metadata is built at most once per type that wins the store, and its
// diagnostics are reported once.
type Registry struct {
	entities sync.Map // reflect.Type -> *Entity

	// OnDiagnostic receives build diagnostics. Nil logs them at warn level.
	OnDiagnostic func(Diagnostic)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores a prebuilt entity, replacing any cached one.
func (r *Registry) Register(e *Entity) {
	r.entities.Store(e.Type, e)
}

// For returns the metadata of the dynamic type of v.
func (r *Registry) For(v any) (*Entity, error) {
	if v == nil {
		return nil, fmt.Errorf("metadata: nil entity")
	}
	return r.Get(reflect.TypeOf(v))
}

// Get returns the metadata of t, building it on first use.
func (r *Registry) Get(t reflect.Type) (*Entity, error) {
	t = deref(t)
	if e, ok := r.entities.Load(t); ok {
		return e.(*Entity), nil
	}
	e, diags, err := FromStruct(t)
	if err != nil {
		return nil, err
	}
	actual, loaded := r.entities.LoadOrStore(t, e)
	if !loaded {
		for _, d := range diags {
			r.report(d)
		}
	}
	return actual.(*Entity), nil
}

func (r *Registry) report(d Diagnostic) {
	if r.OnDiagnostic != nil {
		r.OnDiagnostic(d)
		return
	}
	slog.Warn("entity metadata diagnostic", "type", d.Type.String(), "message", d.Message)
}
