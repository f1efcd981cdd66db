package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/wire"
)

// Response is the raw result of one engine round trip.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Executor performs encoded requests against one engine cluster.
type Executor interface {
	// Perform sends req and returns the response. Non-2xx responses are
	// returned together with an *apierror.StatusError, except a 404 answer
	// to a HEAD request which is a valid "does not exist" reply.
	Perform(ctx context.Context, op string, req *wire.HTTPRequest) (*Response, error)

	// Info returns the cluster name and version from the root endpoint.
	Info(ctx context.Context) (*wire.InfoResponse, error)

	// Dialect returns the wire protocol variant the executor speaks.
	Dialect() wire.Dialect

	// Name returns the backend name for logging purposes.
	Name() string
}

// Config configures an engine executor.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	Transport  http.RoundTripper // Optional; nil keeps the client default.
	MaxRetries int               // Zero disables retries.
	Metrics    *metrics.Metrics
}

// New returns the executor for dialect d.
func New(d wire.Dialect, cfg Config) (Executor, error) {
	switch d {
	case wire.Elasticsearch:
		return NewElasticsearch(cfg)
	case wire.OpenSearch:
		return NewOpenSearch(cfg)
	default:
		return nil, fmt.Errorf("unsupported dialect %v", d)
	}
}
