package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/leonunix/docsearch/internal/wire"
)

// OpenSearch executes requests through the OpenSearch 2 client.
type OpenSearch struct {
	client
	os *opensearch.Client
}

// NewOpenSearch creates an OpenSearch executor.
func NewOpenSearch(cfg Config) (*OpenSearch, error) {
	os, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.MaxRetries <= 0,
	})
	if err != nil {
		return nil, fmt.Errorf("creating opensearch client: %w", err)
	}
	return &OpenSearch{
		client: client{dialect: wire.OpenSearch, transport: os, metrics: cfg.Metrics},
		os:     os,
	}, nil
}

func (o *OpenSearch) Info(ctx context.Context) (*wire.InfoResponse, error) {
	start := time.Now()
	res, err := opensearchapi.InfoRequest{}.Do(ctx, o.os)
	if err != nil {
		o.metrics.ObserveRequest(o.Name(), "info", 0, time.Since(start))
		return nil, fmt.Errorf("executing info request: %w", err)
	}
	o.metrics.ObserveRequest(o.Name(), "info", res.StatusCode, time.Since(start))
	return o.info(res.StatusCode, res.Body)
}
