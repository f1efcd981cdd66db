// Package occ derives optimistic concurrency parameters for writes and
// recognizes conflict failures.
package occ

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
)

// WritePlan is the concurrency control of one write. At most one of the
// seq_no/primary_term pair and Version is set.
type WritePlan struct {
	SeqNo       *int64
	PrimaryTerm *int64
	Version     *int64
	VersionType query.VersionType
}

// Plan derives the plan of a write. The seq_no/primary_term pair is used
// only when both are present, and then replaces any version. A version is
// sent with vt, which defaults to external.
func Plan(version, seqNo, primaryTerm *int64, vt query.VersionType) WritePlan {
	if seqNo != nil && primaryTerm != nil {
		return WritePlan{SeqNo: seqNo, PrimaryTerm: primaryTerm}
	}
	if version == nil {
		return WritePlan{}
	}
	if vt == query.VersionTypeUnset {
		vt = query.VersionExternal
	}
	return WritePlan{Version: version, VersionType: vt}
}

// ForEntity reads the concurrency tokens held by entity.
func ForEntity(e *metadata.Entity, entity any) WritePlan {
	if tok := e.SeqNoPrimaryTermOf(entity); tok != nil {
		seqNo, term := tok.SeqNo, tok.PrimaryTerm
		return WritePlan{SeqNo: &seqNo, PrimaryTerm: &term}
	}
	return Plan(e.VersionOf(entity), nil, nil, e.VersionType())
}

// IsConditional reports whether the plan carries the token pair.
func (p WritePlan) IsConditional() bool { return p.SeqNo != nil && p.PrimaryTerm != nil }

// Apply sets the request parameters of the plan.
func (p WritePlan) Apply(params url.Values) {
	if p.IsConditional() {
		params.Set("if_seq_no", strconv.FormatInt(*p.SeqNo, 10))
		params.Set("if_primary_term", strconv.FormatInt(*p.PrimaryTerm, 10))
		return
	}
	if p.Version != nil {
		params.Set("version", strconv.FormatInt(*p.Version, 10))
		if vt := p.VersionType.String(); vt != "" {
			params.Set("version_type", vt)
		}
	}
}

// metadataFields are engine metadata keys that cannot appear in a source
// document.
var metadataFields = []string{"_id", "_index", "_version", "_seq_no", "_primary_term", "_routing"}

// Strip removes engine metadata keys from a source document in place.
func Strip(doc *document.Document) {
	for _, k := range metadataFields {
		doc.Remove(k)
	}
}

// IsConflict reports whether err is a failed conditional write.
func IsConflict(err error) bool {
	if errors.Is(err, apierror.ErrOptimisticLockingFailure) {
		return true
	}
	var se *apierror.StatusError
	return errors.As(err, &se) && errors.Is(apierror.Translate(se), apierror.ErrOptimisticLockingFailure)
}
