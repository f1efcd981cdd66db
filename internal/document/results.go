package document

import "time"

// Result is the outcome reported for a single-document write.
type Result int

const (
	ResultUnknown Result = iota
	ResultCreated
	ResultUpdated
	ResultDeleted
	ResultNotFound
	ResultNoop
)

// ParseResult maps the engine's result string.
func ParseResult(s string) Result {
	switch s {
	case "created":
		return ResultCreated
	case "updated":
		return ResultUpdated
	case "deleted":
		return ResultDeleted
	case "not_found":
		return ResultNotFound
	case "noop":
		return ResultNoop
	default:
		return ResultUnknown
	}
}

func (r Result) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultUpdated:
		return "updated"
	case ResultDeleted:
		return "deleted"
	case ResultNotFound:
		return "not_found"
	case ResultNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// UpdateResponse is the acknowledgement of update and delete calls.
type UpdateResponse struct {
	Result Result
	Info   IndexedObjectInformation
	// Document is set when the update asked for the source to be returned.
	Document *Document
}

// ByQueryFailure is one failed document of an update/delete-by-query run.
type ByQueryFailure struct {
	Index   string
	ID      string
	Status  int
	Type    string
	Reason  string
	Aborted bool
}

// SearchFailure is a failure of the search phase of a by-query run.
type SearchFailure struct {
	Index  string
	Shard  *int
	Node   string
	Status int
	Reason string
}

// ByQueryResponse summarizes update-by-query, delete-by-query and reindex.
type ByQueryResponse struct {
	Took              time.Duration
	TimedOut          bool
	Total             int64
	Created           int64
	Updated           int64
	Deleted           int64
	Batches           int
	VersionConflicts  int64
	Noops             int64
	BulkRetries       int64
	SearchRetries     int64
	Throttled         time.Duration
	RequestsPerSecond float64
	ThrottledUntil    time.Duration
	Failures          []ByQueryFailure
	SearchFailures    []SearchFailure
	// Task is set when the request ran asynchronously.
	Task string
}

// MultiGetFailure describes an item of a multi-get that could not be read.
type MultiGetFailure struct {
	Index  string
	ID     string
	Type   string
	Reason string
}

// MultiGetItem is one item of a multi-get response. Exactly one of Document
// and Failure is set for found or failed items; both are nil when the
// document does not exist.
type MultiGetItem struct {
	Document *Document
	Failure  *MultiGetFailure
}

// Found reports whether the item resolved to a document.
func (i MultiGetItem) Found() bool { return i.Document != nil }
