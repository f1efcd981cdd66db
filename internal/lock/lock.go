// Package lock implements a distributed lock on top of engine documents.
//
// A lock is a document keyed by the lock name, created with op_type=create so
// that exactly one owner wins. Expired locks are removed with a
// seq_no/primary_term conditional delete, so two instances racing to clean up
// the same lock cannot delete a freshly acquired one.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/operations"
	"github.com/leonunix/docsearch/internal/query"
)

// Locker coordinates work between instances.
type Locker interface {
	// Acquire returns true when the lock for key was taken, false when
	// another owner holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops the lock for key if this instance owns it.
	Release(ctx context.Context, key string) error
}

// Lock results reported to metrics.
const (
	ResultAcquired = "acquired"
	ResultHeld     = "held"
	ResultError    = "error"
)

var indexSettings = json.RawMessage(`{"number_of_shards":1,"number_of_replicas":1}`)

// DocumentLock is a Locker storing lock documents in one index.
type DocumentLock struct {
	tpl     *operations.Template
	index   query.IndexCoordinates
	owner   string
	metrics *metrics.Metrics
	now     func() time.Time
}

// New returns a lock keeping its documents in index. m may be nil.
func New(tpl *operations.Template, index string, m *metrics.Metrics) *DocumentLock {
	hostname, _ := os.Hostname()
	return &DocumentLock{
		tpl:     tpl,
		index:   query.IndexCoordinatesOf(index),
		owner:   fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Owner identifies this instance in lock documents.
func (l *DocumentLock) Owner() string { return l.owner }

type lockDoc struct {
	Owner      string    `json:"owner"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Acquire removes an expired lock for key, then tries to create it.
func (l *DocumentLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := l.cleanupExpired(ctx, key); err != nil {
		slog.Debug("lock cleanup failed (non-fatal)", "key", key, "error", err)
	}

	acquired, err := l.tryCreate(ctx, key, ttl)
	if errors.Is(err, apierror.ErrIndexNotFound) {
		// auto_create_index may be disabled on the cluster.
		if createErr := l.ensureIndex(ctx); createErr != nil {
			l.metrics.ObserveLock(ResultError)
			return false, fmt.Errorf("creating lock index: %w", createErr)
		}
		acquired, err = l.tryCreate(ctx, key, ttl)
	}
	switch {
	case err != nil:
		l.metrics.ObserveLock(ResultError)
	case acquired:
		l.metrics.ObserveLock(ResultAcquired)
	default:
		l.metrics.ObserveLock(ResultHeld)
	}
	return acquired, err
}

// Release deletes the lock for key when this instance owns it. A missing
// lock is not an error.
func (l *DocumentLock) Release(ctx context.Context, key string) error {
	doc, current, err := l.read(ctx, key)
	if err != nil {
		if errors.Is(err, apierror.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("reading lock %s: %w", key, err)
	}
	if doc == nil {
		return nil
	}
	if current.Owner != l.owner {
		slog.Warn("not releasing lock held by another owner", "key", key, "owner", current.Owner)
		return nil
	}
	if err := l.deleteExact(ctx, doc); err != nil {
		return fmt.Errorf("releasing lock %s: %w", key, err)
	}
	return nil
}

func (l *DocumentLock) tryCreate(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.now()
	body, err := json.Marshal(lockDoc{Owner: l.owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return false, fmt.Errorf("marshaling lock doc: %w", err)
	}
	_, err = l.tpl.Index(ctx, &query.IndexQuery{
		ID:     key,
		Source: body,
		OpType: query.OpTypeCreate,
	}, l.index, query.WriteOptions{Refresh: query.RefreshImmediate})
	if err == nil {
		return true, nil
	}
	// The document already exists: someone else holds the lock.
	var se *apierror.StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		return false, nil
	}
	return false, err
}

func (l *DocumentLock) read(ctx context.Context, key string) (*document.Document, lockDoc, error) {
	doc, err := l.tpl.Get(ctx, key, metadata.Raw, l.index, compiler.GetOptions{})
	if err != nil || doc == nil {
		return nil, lockDoc{}, err
	}
	var ld lockDoc
	if err := doc.Decode(&ld); err != nil {
		return nil, lockDoc{}, fmt.Errorf("decoding lock doc: %w", err)
	}
	return doc, ld, nil
}

// cleanupExpired deletes the lock for key when it has expired.
func (l *DocumentLock) cleanupExpired(ctx context.Context, key string) error {
	doc, current, err := l.read(ctx, key)
	if err != nil {
		if errors.Is(err, apierror.ErrIndexNotFound) {
			return nil
		}
		return err
	}
	if doc == nil || !l.now().After(current.ExpiresAt) {
		return nil
	}
	slog.Info("cleaning up expired lock",
		"key", key,
		"owner", current.Owner,
		"expired_at", current.ExpiresAt,
	)
	err = l.deleteExact(ctx, doc)
	if errors.Is(err, apierror.ErrOptimisticLockingFailure) {
		// Another instance cleaned it up or re-acquired it first.
		return nil
	}
	return err
}

// deleteExact deletes doc only if it was not modified since it was read.
func (l *DocumentLock) deleteExact(ctx context.Context, doc *document.Document) error {
	_, err := l.tpl.Delete(ctx, &query.DeleteQuery{
		ID:          doc.ID,
		SeqNo:       doc.SeqNo,
		PrimaryTerm: doc.PrimaryTerm,
		Options:     query.WriteOptions{Refresh: query.RefreshImmediate},
	}, metadata.Raw, l.index)
	return err
}

func (l *DocumentLock) ensureIndex(ctx context.Context) error {
	_, err := l.tpl.CreateIndex(ctx, l.index, query.IndexSpec{Settings: indexSettings}, nil)
	var se *apierror.StatusError
	if errors.As(err, &se) && se.Type == "resource_already_exists_exception" {
		// Created concurrently by another instance.
		return nil
	}
	return err
}
