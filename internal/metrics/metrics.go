// Package metrics holds the Prometheus collectors of the engine client and
// the reindex scheduler.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docsearch"

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	EngineRequests *prometheus.CounterVec
	EngineDuration *prometheus.HistogramVec
	ReindexRuns    *prometheus.CounterVec
	ReindexDocs    *prometheus.CounterVec
	LockAcquire    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered are reused, so New may be called more than once
// with the same registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		EngineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Engine requests by dialect, operation and status code.",
		}, []string{"dialect", "operation", "status"}),
		EngineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "request_duration_seconds",
			Help:      "Engine request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"dialect", "operation"}),
		ReindexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "runs_total",
			Help:      "Reindex job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		ReindexDocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "documents_total",
			Help:      "Documents touched by reindex jobs.",
		}, []string{"job", "kind"}), // "created" / "updated" / "conflict" / "failed"
		LockAcquire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lock",
			Name:      "acquire_total",
			Help:      "Lock acquisition attempts by result.",
		}, []string{"result"}), // "acquired" / "held" / "error"
	}
	if reg == nil {
		return m, nil
	}
	if err := registerOrReuse(reg, &m.EngineRequests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.EngineDuration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.ReindexRuns); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.ReindexDocs); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.LockAcquire); err != nil {
		return nil, err
	}
	return m, nil
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: collector already registered with incompatible type %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: registering collector: %w", err)
	}
	return nil
}

// ObserveRequest records one engine round trip. status is 0 when no
// response was received.
func (m *Metrics) ObserveRequest(dialect, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.EngineRequests.WithLabelValues(dialect, operation, code).Inc()
	m.EngineDuration.WithLabelValues(dialect, operation).Observe(elapsed.Seconds())
}

// ObserveReindex records the outcome of one reindex job run.
func (m *Metrics) ObserveReindex(job, outcome string, created, updated, conflicts, failed int64) {
	if m == nil {
		return
	}
	m.ReindexRuns.WithLabelValues(job, outcome).Inc()
	m.ReindexDocs.WithLabelValues(job, "created").Add(float64(created))
	m.ReindexDocs.WithLabelValues(job, "updated").Add(float64(updated))
	m.ReindexDocs.WithLabelValues(job, "conflict").Add(float64(conflicts))
	m.ReindexDocs.WithLabelValues(job, "failed").Add(float64(failed))
}

// ObserveLock records a lock acquisition attempt.
func (m *Metrics) ObserveLock(result string) {
	if m == nil {
		return
	}
	m.LockAcquire.WithLabelValues(result).Inc()
}
