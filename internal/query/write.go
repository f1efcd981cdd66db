package query

import (
	"encoding/json"
	"time"

	"github.com/leonunix/docsearch/internal/document"
)

// VersionType tells the engine how to compare a supplied version.
type VersionType int

const (
	VersionTypeUnset VersionType = iota
	VersionInternal
	VersionExternal
	VersionExternalGTE
	VersionForce
)

func (v VersionType) String() string {
	switch v {
	case VersionInternal:
		return "internal"
	case VersionExternal:
		return "external"
	case VersionExternalGTE:
		return "external_gte"
	case VersionForce:
		return "force"
	default:
		return ""
	}
}

// OpType of an index request.
type OpType int

const (
	OpTypeDefault OpType = iota
	OpTypeIndex
	OpTypeCreate
)

func (o OpType) String() string {
	switch o {
	case OpTypeIndex:
		return "index"
	case OpTypeCreate:
		return "create"
	default:
		return ""
	}
}

// BulkItem is an entry of a bulk request: *IndexQuery or *UpdateQuery.
type BulkItem interface {
	bulkItem()
}

// IndexQuery stores one document. Object is an entity converted through the
// metadata resolver; Source is a raw JSON document used when Object is nil.
type IndexQuery struct {
	ID          string
	Object      any
	Source      json.RawMessage
	Version     *int64
	SeqNo       *int64
	PrimaryTerm *int64
	Routing     string
	Pipeline    string
	OpType      OpType
	// IndexName overrides the primary index of the coordinates.
	IndexName string
}

// UpdateQuery changes one document by partial document or script.
type UpdateQuery struct {
	ID              string
	Doc             *document.Document
	Script          *Script
	Upsert          *document.Document
	DocAsUpsert     *bool
	ScriptedUpsert  *bool
	DetectNoop      *bool
	FetchSource     *bool
	SourceFilter    *SourceFilter
	RetryOnConflict *int
	SeqNo           *int64
	PrimaryTerm     *int64
	Routing         string
	IndexName       string

	Refresh             RefreshPolicy
	Timeout             time.Duration
	WaitForActiveShards ActiveShards
	RequireAlias        *bool
}

func (*IndexQuery) bulkItem()  {}
func (*UpdateQuery) bulkItem() {}

// DeleteQuery removes one document.
type DeleteQuery struct {
	ID          string
	Routing     string
	Version     *int64
	VersionType VersionType
	SeqNo       *int64
	PrimaryTerm *int64
	Options     WriteOptions
}

// ByQueryOptions are shared by delete-by-query and update-by-query.
type ByQueryOptions struct {
	// AbortOnVersionConflict nil leaves the engine default, which aborts.
	AbortOnVersionConflict *bool
	Refresh                *bool
	WaitForCompletion      *bool
	Slices                 string
	RequestsPerSecond      *float64
	MaxDocs                *int64
	Timeout                time.Duration
	WaitForActiveShards    ActiveShards
}

// DeleteByQuery removes every document matching Query.
type DeleteByQuery struct {
	Query *Query
	ByQueryOptions
}

// UpdateByQuery rewrites every document matching Query, optionally through
// Script.
type UpdateByQuery struct {
	Query    *Query
	Script   *Script
	Pipeline string
	ByQueryOptions
}

// Conflicts is the reindex version conflict handling.
type Conflicts string

const (
	ConflictsAbort   Conflicts = "abort"
	ConflictsProceed Conflicts = "proceed"
)

// RemoteSource reads a reindex source from another cluster.
type RemoteSource struct {
	Host           string
	Username       string
	Password       string
	Headers        map[string]string
	SocketTimeout  time.Duration
	ConnectTimeout time.Duration
}

// Slice restricts a reindex source to one manual slice.
type Slice struct {
	ID  int
	Max int
}

// ReindexSource selects the documents to copy. Query is only read for its
// body; with Remote set the query is shipped to the remote cluster.
type ReindexSource struct {
	Indices      []string
	Query        *Query
	Remote       *RemoteSource
	Slice        *Slice
	Size         *int
	SourceFilter *SourceFilter
}

// ReindexDest is where reindexed documents are written.
type ReindexDest struct {
	Index       string
	Routing     string
	Pipeline    string
	VersionType VersionType
	OpType      OpType
}

// Reindex copies documents between indices.
type Reindex struct {
	Source              ReindexSource
	Dest                ReindexDest
	Script              *Script
	Conflicts           Conflicts
	MaxDocs             *int64
	RequestsPerSecond   *float64
	Slices              string
	WaitForActiveShards ActiveShards
	WaitForCompletion   *bool
	Refresh             *bool
	Timeout             time.Duration
}

// IndexSpec creates an index with optional settings, mappings and aliases.
type IndexSpec struct {
	Settings json.RawMessage
	Mappings json.RawMessage
}
