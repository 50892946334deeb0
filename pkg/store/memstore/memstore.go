// Package memstore provides an in-memory DocumentStore with index-ordered
// scans. It is the reference store implementation and the default test
// backend; ordering semantics match the Badger-backed store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Store is an in-memory document store. Safe for concurrent use; each
// mutation is atomic per document, matching the store contract.
type Store struct {
	mu     sync.RWMutex
	schema core.SchemaRegistry
	tables map[string]*table
	now    func() time.Time
}

type table struct {
	docs         map[string]types.Document
	lastCreation float64
}

// Option configures the store.
type Option func(*Store)

// WithClock overrides the creation-time clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a store. The registry resolves index names to their declared
// field lists during scans.
func New(schema core.SchemaRegistry, opts ...Option) *Store {
	s := &Store{
		schema: schema,
		tables: make(map[string]*table),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) getTable(name string) *table {
	if t, ok := s.tables[name]; ok {
		return t
	}
	t := &table{docs: make(map[string]types.Document)}
	s.tables[name] = t
	return t
}

// Get returns the document with the given id.
func (s *Store) Get(_ context.Context, tableName, id string) (types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, errors.ErrDocumentNotFound
	}
	doc, ok := t.docs[id]
	if !ok {
		return nil, errors.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// Insert stores a new document, stamping _id and a strictly increasing
// _creationTime.
func (s *Store) Insert(_ context.Context, tableName string, doc types.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getTable(tableName)
	id := uuid.NewString()

	creation := float64(s.now().UnixMilli())
	if creation <= t.lastCreation {
		creation = t.lastCreation + 1
	}
	t.lastCreation = creation

	stored := doc.Clone()
	if stored == nil {
		stored = make(types.Document)
	}
	stored[types.FieldID] = types.String(id)
	stored[types.FieldCreationTime] = types.Number(creation)
	t.docs[id] = stored
	return id, nil
}

// Patch merges fields into an existing document. System fields are not
// patchable.
func (s *Store) Patch(_ context.Context, tableName, id string, patch types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableName]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc, ok := t.docs[id]
	if !ok {
		return errors.ErrDocumentNotFound
	}

	updated := doc.Clone()
	for field, value := range patch {
		if field == types.FieldID || field == types.FieldCreationTime {
			continue
		}
		if value.IsNull() {
			delete(updated, field)
			continue
		}
		updated[field] = value
	}
	t.docs[id] = updated
	return nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, tableName, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableName]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	if _, ok := t.docs[id]; !ok {
		return errors.ErrDocumentNotFound
	}
	delete(t.docs, id)
	return nil
}

// ListTables returns the known table names, sorted.
func (s *Store) ListTables(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Scan reads one page of an index-ordered range scan.
func (s *Store) Scan(_ context.Context, req core.ScanRequest) (core.ScanPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := s.indexFields(req.Table, req.Index)

	t, ok := s.tables[req.Table]
	if !ok {
		return core.ScanPage{IsDone: true}, nil
	}

	matched := make([]types.Document, 0, len(t.docs))
	for _, doc := range t.docs {
		if s.inRange(doc, fields, req) {
			matched = append(matched, doc)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		c := core.ComparePositions(
			core.PositionOf(matched[i], fields),
			core.PositionOf(matched[j], fields),
		)
		if req.Descending {
			return c > 0
		}
		return c < 0
	})

	matched = s.skipPast(matched, fields, req)

	pageSize := req.PageSize
	if req.MaxRowsRead > 0 && req.MaxRowsRead < pageSize {
		pageSize = req.MaxRowsRead
	}
	if pageSize <= 0 {
		pageSize = len(matched)
	}

	page := core.ScanPage{}
	if len(matched) <= pageSize {
		page.Items = cloneAll(matched)
		page.IsDone = true
		return page, nil
	}

	page.Items = cloneAll(matched[:pageSize])
	last := matched[pageSize-1]
	cursor, err := core.EncodeScanPosition(core.PositionOf(last, fields))
	if err != nil {
		return core.ScanPage{}, err
	}
	page.Cursor = cursor
	return page, nil
}

// indexFields resolves an index name to its full ordered key list, ending
// with the implicit creation-time key.
func (s *Store) indexFields(tableName, indexName string) []string {
	if indexName == "" || indexName == core.CreationTimeIndex {
		return []string{types.FieldCreationTime}
	}
	if s.schema != nil {
		for _, idx := range s.schema.ListIndexes(tableName) {
			if idx.Name == indexName {
				return append(append([]string(nil), idx.Fields...), types.FieldCreationTime)
			}
		}
	}
	return []string{types.FieldCreationTime}
}

// inRange checks the equality prefix and range bounds against a document.
func (s *Store) inRange(doc types.Document, fields []string, req core.ScanRequest) bool {
	if len(req.Prefix) > len(fields) {
		return false
	}
	for i, want := range req.Prefix {
		if !doc.Get(fields[i]).Equal(want) {
			return false
		}
	}

	if req.Lower == nil && req.Upper == nil {
		return true
	}
	if len(req.Prefix) >= len(fields) {
		return false
	}
	bound := doc.Get(fields[len(req.Prefix)])
	if req.Lower != nil {
		c := types.Compare(bound, req.Lower.Value)
		if c < 0 || (c == 0 && !req.Lower.Inclusive) {
			return false
		}
	}
	if req.Upper != nil {
		c := types.Compare(bound, req.Upper.Value)
		if c > 0 || (c == 0 && !req.Upper.Inclusive) {
			return false
		}
	}
	return true
}

// skipPast drops documents at or before the cursor position in scan order.
func (s *Store) skipPast(docs []types.Document, fields []string, req core.ScanRequest) []types.Document {
	if req.Cursor == "" {
		return docs
	}
	pos, err := core.DecodeScanPosition(req.Cursor)
	if err != nil || pos == nil {
		return docs
	}
	i := 0
	for ; i < len(docs); i++ {
		c := core.ComparePositions(core.PositionOf(docs[i], fields), *pos)
		if req.Descending {
			c = -c
		}
		if c > 0 {
			break
		}
	}
	return docs[i:]
}

func cloneAll(docs []types.Document) []types.Document {
	out := make([]types.Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out
}
