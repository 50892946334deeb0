// Package index resolves abstract query requests into execution plans
// against a table's declared indexes.
package index

import (
	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Plan is the resolved strategy for one request: which index to scan, which
// filters become the equality prefix and range bounds, and which remain as
// residual in-memory predicates.
type Plan struct {
	// Index is the matched declared index, nil when scanning creation order.
	Index *core.DeclaredIndex

	// IndexFields is the full ordered key list of the scan, including the
	// implicit trailing _creationTime key.
	IndexFields []string

	// EqualityFields/EqualityValues hold the exact-match prefix, in index
	// field order.
	EqualityFields []string
	EqualityValues []types.Value

	// BoundField is the single field carrying range bounds, "" when none.
	BoundField string
	Lower      *core.Bound
	Upper      *core.Bound

	// SortField is the explicit sort field, "" when ordering by creation
	// time.
	SortField string

	// Descending flips the scan direction.
	Descending bool

	// Residual holds every filter not expressed as prefix or bound; the scan
	// executor applies them in memory.
	Residual []core.Filter

	// Unindexed marks the fallback full scan: no index matched, every filter
	// is residual, and the executor logs a performance warning.
	Unindexed bool
}

// IndexName returns the store-facing index name for the scan.
func (p *Plan) IndexName() string {
	if p.Index == nil {
		return core.CreationTimeIndex
	}
	return p.Index.Name
}

// ScanRequest builds the store scan request for this plan.
func (p *Plan) ScanRequest(table string) core.ScanRequest {
	return core.ScanRequest{
		Table:      table,
		Index:      p.IndexName(),
		Prefix:     p.EqualityValues,
		Lower:      p.Lower,
		Upper:      p.Upper,
		Descending: p.Descending,
	}
}

// OrderingFields returns the fields that determine result order within this
// plan's scan: the index keys after the fixed equality prefix. Union merges
// compare documents by these.
func (p *Plan) OrderingFields() []string {
	if p.Unindexed || p.Index == nil {
		return []string{types.FieldCreationTime}
	}
	return p.IndexFields[len(p.EqualityFields):]
}
