package mapper

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/wire"
)

// Bulk maps a bulk response of want items. When any item failed the whole
// batch is reported as a *apierror.BulkFailureError keyed by the failed ids
// and no item information is returned. Otherwise the result is in request
// order.
func Bulk(resp *wire.BulkResponse, want int) ([]document.IndexedObjectInformation, error) {
	if resp == nil || len(resp.Items) != want {
		got := 0
		if resp != nil {
			got = len(resp.Items)
		}
		return nil, fmt.Errorf("%w: %d bulk items, %d results", ErrResponseMismatch, want, got)
	}
	failures := map[string]string{}
	for i, item := range resp.Items {
		_, r := item.Result()
		if r.Error == nil {
			continue
		}
		id := r.ID
		if id == "" {
			id = "[" + strconv.Itoa(i) + "]"
		}
		failures[id] = r.Error.Message()
	}
	if len(failures) > 0 {
		return nil, &apierror.BulkFailureError{Failures: failures}
	}
	out := make([]document.IndexedObjectInformation, 0, len(resp.Items))
	for _, item := range resp.Items {
		_, r := item.Result()
		out = append(out, document.IndexedObjectInformation{
			ID:          r.ID,
			Index:       r.Index,
			SeqNo:       r.SeqNo,
			PrimaryTerm: r.PrimaryTerm,
			Version:     r.Version,
		})
	}
	return out, nil
}

// IndexedObject maps the acknowledgement of an index, update or delete.
func IndexedObject(resp *wire.WriteResponse) document.IndexedObjectInformation {
	return document.IndexedObjectInformation{
		ID:          resp.ID,
		Index:       resp.Index,
		SeqNo:       resp.SeqNo,
		PrimaryTerm: resp.PrimaryTerm,
		Version:     resp.Version,
	}
}

// Update maps an update acknowledgement. Document is set when the source
// was fetched.
func Update(resp *wire.WriteResponse) (*document.UpdateResponse, error) {
	out := &document.UpdateResponse{
		Result: document.ParseResult(resp.Result),
		Info:   IndexedObject(resp),
	}
	if resp.Get != nil && len(resp.Get.Source) > 0 {
		doc, err := sourceDocument(resp.Get.Source)
		if err != nil {
			return nil, fmt.Errorf("mapping updated document: %w", err)
		}
		doc.ID, doc.Index = resp.ID, resp.Index
		doc.Version, doc.SeqNo, doc.PrimaryTerm = resp.Version, resp.SeqNo, resp.PrimaryTerm
		out.Document = doc
	}
	return out, nil
}

// Get maps a get response. A missing document maps to nil.
func Get(resp *wire.GetResponse) (*document.Document, error) {
	if resp == nil || !resp.Found {
		return nil, nil
	}
	doc, err := sourceDocument(resp.Source)
	if err != nil {
		return nil, fmt.Errorf("mapping document %q: %w", resp.ID, err)
	}
	doc.ID = resp.ID
	doc.Index = resp.Index
	doc.Routing = resp.Routing
	doc.Version = resp.Version
	doc.SeqNo = resp.SeqNo
	doc.PrimaryTerm = resp.PrimaryTerm
	return doc, nil
}

// MultiGet maps a multi-get response of want ids in request order. Missing
// documents have neither Document nor Failure.
func MultiGet(resp *wire.MultiGetResponse, want int) ([]document.MultiGetItem, error) {
	if resp == nil || len(resp.Docs) != want {
		got := 0
		if resp != nil {
			got = len(resp.Docs)
		}
		return nil, fmt.Errorf("%w: %d ids, %d documents", ErrResponseMismatch, want, got)
	}
	out := make([]document.MultiGetItem, 0, want)
	for i := range resp.Docs {
		d := &resp.Docs[i]
		if d.Error != nil {
			out = append(out, document.MultiGetItem{Failure: &document.MultiGetFailure{
				Index:  d.Index,
				ID:     d.ID,
				Type:   d.Error.Type,
				Reason: d.Error.Message(),
			}})
			continue
		}
		doc, err := Get(d)
		if err != nil {
			return nil, err
		}
		out = append(out, document.MultiGetItem{Document: doc})
	}
	return out, nil
}

func sourceDocument(src []byte) (*document.Document, error) {
	if len(src) == 0 || bytes.Equal(src, []byte("null")) {
		return document.New(), nil
	}
	return document.Parse(src)
}

// ByQuery maps an update-by-query, delete-by-query or reindex response.
func ByQuery(resp *wire.ByQueryResponse) *document.ByQueryResponse {
	out := &document.ByQueryResponse{
		Took:              time.Duration(resp.Took) * time.Millisecond,
		TimedOut:          resp.TimedOut,
		Total:             resp.Total,
		Created:           resp.Created,
		Updated:           resp.Updated,
		Deleted:           resp.Deleted,
		Batches:           resp.Batches,
		VersionConflicts:  resp.VersionConflicts,
		Noops:             resp.Noops,
		BulkRetries:       resp.Retries.Bulk,
		SearchRetries:     resp.Retries.Search,
		Throttled:         time.Duration(resp.ThrottledMillis) * time.Millisecond,
		RequestsPerSecond: resp.RequestsPerSecond,
		ThrottledUntil:    time.Duration(resp.ThrottledUntilMillis) * time.Millisecond,
		Task:              resp.Task,
	}
	for _, f := range resp.Failures {
		// Bulk failures carry "cause", search failures "reason".
		if f.Cause != nil {
			out.Failures = append(out.Failures, document.ByQueryFailure{
				Index:   f.Index,
				ID:      f.ID,
				Status:  f.Status,
				Type:    f.Cause.Type,
				Reason:  f.Cause.Message(),
				Aborted: f.Aborted,
			})
			continue
		}
		sf := document.SearchFailure{Index: f.Index, Shard: f.Shard, Node: f.Node, Status: f.Status}
		if f.Reason != nil {
			sf.Reason = f.Reason.Message()
		}
		out.SearchFailures = append(out.SearchFailures, sf)
	}
	return out
}
