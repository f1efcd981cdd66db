// Package operations executes queries and writes against an engine. A
// Template compiles each call, performs it through a backend executor, maps
// the response and translates failures into the apierror taxonomy.
package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/backend"
	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// DefaultScrollKeepAlive is used by scrolls that do not set their own.
const DefaultScrollKeepAlive = time.Minute

// Template is safe for concurrent use.
type Template struct {
	exec      backend.Executor
	compiler  *compiler.Compiler
	registry  *metadata.Registry
	keepAlive time.Duration
}

type Option func(*Template)

// WithCompiler replaces the default compiler.
func WithCompiler(c *compiler.Compiler) Option {
	return func(t *Template) { t.compiler = c }
}

// WithRegistry shares an entity metadata registry.
func WithRegistry(r *metadata.Registry) Option {
	return func(t *Template) { t.registry = r }
}

// WithScrollKeepAlive sets the keep-alive of scrolls opened by the template.
func WithScrollKeepAlive(d time.Duration) Option {
	return func(t *Template) {
		if d > 0 {
			t.keepAlive = d
		}
	}
}

// New returns a template performing requests through exec.
func New(exec backend.Executor, opts ...Option) *Template {
	t := &Template{
		exec:      exec,
		compiler:  compiler.New(),
		registry:  metadata.NewRegistry(),
		keepAlive: DefaultScrollKeepAlive,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Registry returns the entity metadata registry of the template.
func (t *Template) Registry() *metadata.Registry { return t.registry }

// Executor returns the backend the template performs requests with.
func (t *Template) Executor() backend.Executor { return t.exec }

// Info returns the cluster name and version.
func (t *Template) Info(ctx context.Context) (*wire.InfoResponse, error) {
	info, err := t.exec.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("info: %w", apierror.TranslateOrSelf(err))
	}
	return info, nil
}

// execute encodes req for the backend dialect, performs it and decodes a
// successful body into out. Engine failures come back translated; the raw
// response is returned with them so callers can inspect expected statuses.
func (t *Template) execute(ctx context.Context, op string, req wire.Request, out any) (*backend.Response, error) {
	hr, err := req.Encode(t.exec.Dialect())
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}
	resp, err := t.exec.Perform(ctx, op, hr)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", op, apierror.TranslateOrSelf(err))
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("decoding %s response: %w", op, err)
		}
	}
	return resp, nil
}

// resolverFor picks the metadata of entity. Documents, maps and raw JSON use
// metadata.Raw; any other struct value is resolved through the registry.
func (t *Template) resolverFor(entity any) (metadata.Resolver, *metadata.Entity, error) {
	switch entity.(type) {
	case nil, *document.Document, map[string]any, json.RawMessage, []byte:
		return metadata.Raw, nil, nil
	}
	rt := reflect.TypeOf(entity)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return metadata.Raw, nil, nil
	}
	e, err := t.registry.Get(rt)
	if err != nil {
		return nil, nil, err
	}
	return e, e, nil
}

// entityFor returns the metadata of T.
func entityFor[T any](t *Template) (*metadata.Entity, error) {
	return t.registry.Get(reflect.TypeOf((*T)(nil)).Elem())
}

// Coordinates returns the index coordinates of an entity type.
func Coordinates(e *metadata.Entity) query.IndexCoordinates {
	return query.IndexCoordinatesOf(e.IndexName)
}

// notFoundDocument reports whether a failed response is the engine's
// "document does not exist" answer rather than an error.
func notFoundDocument(resp *backend.Response, err error) bool {
	if err == nil || resp == nil || resp.Status != 404 || errors.Is(err, apierror.ErrIndexNotFound) {
		return false
	}
	var body struct {
		Found  *bool           `json:"found"`
		Result string          `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(resp.Body, &body) != nil || len(body.Error) > 0 {
		return false
	}
	return (body.Found != nil && !*body.Found) || body.Result == "not_found"
}
