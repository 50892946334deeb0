package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Options configures the Badger-backed store.
type Options struct {
	// Dir is the data directory; ignored when InMemory is set.
	Dir string

	// InMemory runs Badger without disk persistence, mainly for tests.
	InMemory bool

	// SyncWrites forces fsync on every commit.
	SyncWrites bool

	// CacheSize bounds the read-through document cache; 0 selects 1024.
	CacheSize int

	// Logger receives store-level warnings; nil selects slog.Default.
	Logger *slog.Logger

	// Now overrides the creation-time clock, for deterministic tests.
	Now func() time.Time
}

// Store is a DocumentStore on Badger. Each document mutation commits in one
// Badger transaction covering the document row and its index entries;
// nothing spans documents.
type Store struct {
	db     *badger.DB
	schema core.SchemaRegistry
	logger *slog.Logger
	cache  *lru.Cache[string, types.Document]
	now    func() time.Time

	mu           sync.Mutex
	lastCreation map[string]float64
}

// Open opens or creates the store.
func Open(schema core.SchemaRegistry, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites).WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, types.Document](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		db:           db,
		schema:       schema,
		logger:       logger,
		cache:        cache,
		now:          now,
		lastCreation: make(map[string]float64),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func cacheKey(table, id string) string {
	return table + "\x00" + id
}

// Get returns the document with the given id, via the read-through cache.
func (s *Store) Get(_ context.Context, table, id string) (types.Document, error) {
	if doc, ok := s.cache.Get(cacheKey(table, id)); ok {
		return doc.Clone(), nil
	}

	var doc types.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDoc(txn, table, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Add(cacheKey(table, id), doc)
	return doc.Clone(), nil
}

func readDoc(txn *badger.Txn, table, id string) (types.Document, error) {
	item, err := txn.Get(docKey(table, id))
	if err == badger.ErrKeyNotFound {
		return nil, errors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc types.Document
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return doc, nil
}

// Insert stores a new document, stamping _id and a strictly increasing
// _creationTime, and writes its index entries in the same transaction.
func (s *Store) Insert(_ context.Context, table string, doc types.Document) (string, error) {
	id := uuid.NewString()

	stored := doc.Clone()
	if stored == nil {
		stored = make(types.Document)
	}
	stored[types.FieldID] = types.String(id)
	stored[types.FieldCreationTime] = types.Number(s.nextCreationTime(table))

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(docKey(table, id), data); err != nil {
			return err
		}
		for _, key := range s.indexEntries(table, stored) {
			if err := txn.Set(key, []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.cache.Add(cacheKey(table, id), stored)
	return id, nil
}

// Patch merges fields into an existing document and rewrites any index
// entries whose keys changed. System fields are not patchable.
func (s *Store) Patch(_ context.Context, table, id string, patch types.Document) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDoc(txn, table, id)
		if err != nil {
			return err
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

		oldEntries := s.indexEntries(table, doc)
		newEntries := s.indexEntries(table, updated)
		for _, key := range oldEntries {
			if !containsKey(newEntries, key) {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}
		for _, key := range newEntries {
			if err := txn.Set(key, []byte(id)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return txn.Set(docKey(table, id), data)
	})
	if err != nil {
		return err
	}
	s.cache.Remove(cacheKey(table, id))
	return nil
}

// Delete removes a document and its index entries.
func (s *Store) Delete(_ context.Context, table, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDoc(txn, table, id)
		if err != nil {
			return err
		}
		for _, key := range s.indexEntries(table, doc) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(docKey(table, id))
	})
	if err != nil {
		return err
	}
	s.cache.Remove(cacheKey(table, id))
	return nil
}

// ListTables walks the document keyspace and returns the distinct tables.
func (s *Store) ListTables(_ context.Context) ([]string, error) {
	var tables []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := docPrefix
		for it.Seek(seek); it.ValidForPrefix(docPrefix); {
			table, ok := parseDocKey(it.Item().Key())
			if !ok {
				it.Next()
				continue
			}
			tables = append(tables, table)
			// Jump past the rest of this table's documents.
			next := prefixSuccessor(docTablePrefix(table))
			if next == nil {
				break
			}
			it.Seek(next)
		}
		return nil
	})
	return tables, err
}

// Scan reads one page of an index-ordered range scan by iterating the index
// entry keyspace.
func (s *Store) Scan(_ context.Context, req core.ScanRequest) (core.ScanPage, error) {
	indexName := req.Index
	if indexName == "" {
		indexName = core.CreationTimeIndex
	}
	fields := s.indexFields(req.Table, indexName)

	base := indexKeyPrefix(req.Table, indexName)
	rangeBase := append([]byte{}, base...)
	for _, v := range req.Prefix {
		rangeBase = encodeValue(rangeBase, v)
	}

	low := rangeBase
	if req.Lower != nil {
		low = encodeValue(append([]byte{}, rangeBase...), req.Lower.Value)
		if !req.Lower.Inclusive {
			low = append(low, 0xFF)
		}
	}
	high := prefixSuccessor(rangeBase)
	if req.Upper != nil {
		high = encodeValue(append([]byte{}, rangeBase...), req.Upper.Value)
		if req.Upper.Inclusive {
			high = append(high, 0xFF)
		}
	}

	var cursorKey []byte
	if req.Cursor != "" {
		pos, err := core.DecodeScanPosition(req.Cursor)
		if err != nil {
			return core.ScanPage{}, err
		}
		if pos != nil {
			cursorKey = append([]byte{}, base...)
			for _, v := range pos.Key {
				cursorKey = encodeValue(cursorKey, v)
			}
			cursorKey = append(cursorKey, pos.ID...)
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxRows := req.MaxRowsRead
	if maxRows <= 0 {
		maxRows = pageSize
	}

	page := core.ScanPage{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = req.Descending
		it := txn.NewIterator(opts)
		defer it.Close()

		rows := 0
		var lastDoc types.Document
		for it.Seek(s.seekTarget(low, high, cursorKey, req.Descending)); it.Valid(); it.Next() {
			key := it.Item().Key()
			if !bytes.HasPrefix(key, base) {
				break
			}
			if outOfRange(key, low, high, req.Descending) {
				break
			}
			if skipBoundary(key, cursorKey, high, req.Descending) {
				continue
			}

			if len(page.Items) >= pageSize || rows >= maxRows {
				// One entry past the page: more data exists.
				cursor, err := core.EncodeScanPosition(core.PositionOf(lastDoc, fields))
				if err != nil {
					return err
				}
				page.Cursor = cursor
				return nil
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			doc, err := readDoc(txn, req.Table, id)
			if err != nil {
				return err
			}
			page.Items = append(page.Items, doc)
			lastDoc = doc
			rows++
		}
		page.IsDone = true
		return nil
	})
	if err != nil {
		return core.ScanPage{}, err
	}
	return page, nil
}

// seekTarget picks the iterator start: past the cursor when resuming, else
// the range edge for the scan direction.
func (s *Store) seekTarget(low, high, cursorKey []byte, descending bool) []byte {
	if descending {
		target := high
		if cursorKey != nil && (target == nil || bytes.Compare(cursorKey, target) < 0) {
			target = cursorKey
		}
		if target == nil {
			// Open-ended upper edge: start from the top of the keyspace.
			return bytes.Repeat([]byte{0xFF}, 24)
		}
		return target
	}
	target := low
	if cursorKey != nil && bytes.Compare(cursorKey, target) > 0 {
		target = cursorKey
	}
	return target
}

func outOfRange(key, low, high []byte, descending bool) bool {
	if descending {
		return bytes.Compare(key, low) < 0
	}
	return high != nil && bytes.Compare(key, high) >= 0
}

// skipBoundary drops the boundary entries a reverse or resumed seek can land
// on: at-or-before the cursor in scan order, or at-or-above the exclusive
// upper edge on descending scans.
func skipBoundary(key, cursorKey, high []byte, descending bool) bool {
	if descending {
		if high != nil && bytes.Compare(key, high) >= 0 {
			return true
		}
		return cursorKey != nil && bytes.Compare(key, cursorKey) >= 0
	}
	return cursorKey != nil && bytes.Compare(key, cursorKey) <= 0
}

// indexFields resolves an index name to its full key list, ending with the
// implicit creation-time key.
func (s *Store) indexFields(table, indexName string) []string {
	if indexName == core.CreationTimeIndex {
		return []string{types.FieldCreationTime}
	}
	if s.schema != nil {
		for _, idx := range s.schema.ListIndexes(table) {
			if idx.Name == indexName {
				return append(append([]string(nil), idx.Fields...), types.FieldCreationTime)
			}
		}
	}
	return []string{types.FieldCreationTime}
}

// indexEntries builds every index entry key a document owns: the implicit
// creation-time index plus each declared index.
func (s *Store) indexEntries(table string, doc types.Document) [][]byte {
	entries := [][]byte{
		indexEntryKey(table, core.CreationTimeIndex, []string{types.FieldCreationTime}, doc),
	}
	if s.schema == nil {
		return entries
	}
	for _, idx := range s.schema.ListIndexes(table) {
		fields := append(append([]string(nil), idx.Fields...), types.FieldCreationTime)
		entries = append(entries, indexEntryKey(table, idx.Name, fields, doc))
	}
	return entries
}

func (s *Store) nextCreationTime(table string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	creation := float64(s.now().UnixMilli())
	if last, ok := s.lastCreation[table]; ok && creation <= last {
		creation = last + 1
	}
	s.lastCreation[table] = creation
	return creation
}

func containsKey(keys [][]byte, key []byte) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
