package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/wire"
)

// performer is the transport surface shared by the Elasticsearch and
// OpenSearch clients.
type performer interface {
	Perform(req *http.Request) (*http.Response, error)
}

type client struct {
	dialect   wire.Dialect
	transport performer
	metrics   *metrics.Metrics
}

func (c *client) Dialect() wire.Dialect { return c.dialect }

func (c *client) Name() string { return c.dialect.String() }

func (c *client) Perform(ctx context.Context, op string, r *wire.HTTPRequest) (*Response, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	start := time.Now()
	resp, err := c.transport.Perform(req)
	if err != nil {
		c.metrics.ObserveRequest(c.Name(), op, 0, time.Since(start))
		return nil, fmt.Errorf("executing %s request: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(c.Name(), op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}
	if r.Method == http.MethodHead && resp.StatusCode == http.StatusNotFound {
		return out, nil
	}
	if resp.StatusCode >= 300 {
		slog.Debug("engine request failed", "backend", c.Name(), "op", op, "status", resp.StatusCode, "path", r.Path)
		return out, apierror.NewStatusError(resp.StatusCode, data)
	}
	return out, nil
}

// info reads the root endpoint response shared by both clients.
func (c *client) info(status int, body io.ReadCloser) (*wire.InfoResponse, error) {
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading info response: %w", err)
	}
	if status >= 300 {
		return nil, apierror.NewStatusError(status, data)
	}
	var info wire.InfoResponse
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding info response: %w", err)
	}
	return &info, nil
}
