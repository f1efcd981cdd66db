package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/leonunix/docsearch/internal/wire"
)

// Elasticsearch executes requests through the official Elasticsearch 8
// client, which provides connection pooling and retries.
type Elasticsearch struct {
	client
	es *elasticsearch.Client
}

// NewElasticsearch creates an Elasticsearch executor.
func NewElasticsearch(cfg Config) (*Elasticsearch, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.MaxRetries <= 0,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &Elasticsearch{
		client: client{dialect: wire.Elasticsearch, transport: es, metrics: cfg.Metrics},
		es:     es,
	}, nil
}

func (e *Elasticsearch) Info(ctx context.Context) (*wire.InfoResponse, error) {
	start := time.Now()
	res, err := esapi.InfoRequest{}.Do(ctx, e.es)
	if err != nil {
		e.metrics.ObserveRequest(e.Name(), "info", 0, time.Since(start))
		return nil, fmt.Errorf("executing info request: %w", err)
	}
	e.metrics.ObserveRequest(e.Name(), "info", res.StatusCode, time.Since(start))
	return e.info(res.StatusCode, res.Body)
}
