// Package core defines the interfaces and shared types for authdb
package core

import (
	"context"

	"github.com/theory-cloud/authdb/pkg/types"
)

// DocumentStore is the consumed persistence boundary: a transactional
// document database whose only efficient access path is scanning a named
// ordered index by an exact ordered key-field prefix. Each mutation is
// atomic for a single document; nothing spans documents atomically.
type DocumentStore interface {
	// Get returns the document with the given id, or errors.ErrDocumentNotFound.
	Get(ctx context.Context, table, id string) (types.Document, error)

	// Insert stores a new document and returns its generated id. The store
	// stamps _id and _creationTime; the caller must read the document back to
	// observe them.
	Insert(ctx context.Context, table string, doc types.Document) (string, error)

	// Patch merges the given fields into an existing document.
	Patch(ctx context.Context, table, id string, patch types.Document) error

	// Delete removes a document. Deleting an absent id returns
	// errors.ErrDocumentNotFound.
	Delete(ctx context.Context, table, id string) error

	// Scan reads one page of an index-ordered range scan.
	Scan(ctx context.Context, req ScanRequest) (ScanPage, error)

	// ListTables returns the tables the store currently holds.
	ListTables(ctx context.Context) ([]string, error)
}

// SchemaRegistry is the consumed schema boundary: which composite indexes a
// table declares and which fields carry a uniqueness constraint.
type SchemaRegistry interface {
	// ListIndexes returns the declared indexes for a table, excluding the
	// implicit creation-time index.
	ListIndexes(table string) []DeclaredIndex

	// IsUniqueField reports whether a field is declared unique.
	IsUniqueField(table, field string) bool
}

// DeclaredIndex describes one composite index: a name and the ordered field
// list callers declared. The store implicitly appends _creationTime as the
// final tiebreaking key.
type DeclaredIndex struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// CreationTimeIndex is the implicit index every table has, ordered purely by
// _creationTime.
const CreationTimeIndex = "by_creation_time"

// Bound is one range constraint on the field immediately after the equality
// prefix in the index order.
type Bound struct {
	Value     types.Value
	Inclusive bool
}

// ScanRequest describes one page of an index range scan.
type ScanRequest struct {
	Table string

	// Index names the declared index to scan, or CreationTimeIndex (or "")
	// for natural creation order.
	Index string

	// Prefix holds exact values for the leading index fields, in index field
	// order.
	Prefix []types.Value

	// Lower and Upper optionally bound the field that follows the prefix.
	Lower *Bound
	Upper *Bound

	// Descending flips the scan direction.
	Descending bool

	// Cursor resumes a previous scan; empty starts from the beginning.
	Cursor string

	// PageSize is the number of documents to return per page.
	PageSize int

	// MaxRowsRead caps how many rows the store may examine before truncating
	// the page, bounding unindexed scans.
	MaxRowsRead int
}

// ScanPage is one page of scan results with a resumable cursor.
type ScanPage struct {
	Items []types.Document

	// Cursor resumes the scan after the last returned document. Only
	// meaningful while IsDone is false.
	Cursor string

	// IsDone reports that the scan reached the end of its range.
	IsDone bool
}
