package badgerstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/schema"
	"github.com/theory-cloud/authdb/pkg/store/badgerstore"
	"github.com/theory-cloud/authdb/pkg/types"
)

func newStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	reg := schema.NewRegistry(map[string]schema.TableDefinition{
		"session": {
			Indexes: []core.DeclaredIndex{
				{Name: "by_user_id", Fields: []string{"userId"}},
				{Name: "by_user_id_expires_at", Fields: []string{"userId", "expiresAt"}},
			},
		},
	})
	store, err := badgerstore.Open(reg, badgerstore.Options{
		InMemory: true,
		Now:      func() time.Time { return time.UnixMilli(1000) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insert(t *testing.T, store *badgerstore.Store, userID string, expiresAt float64) string {
	t.Helper()
	id, err := store.Insert(context.Background(), "session", types.Document{
		"userId":    types.String(userID),
		"expiresAt": types.Number(expiresAt),
	})
	require.NoError(t, err)
	return id
}

func TestInsertGetRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := insert(t, store, "u1", 500)
	doc, err := store.Get(ctx, "session", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, types.String("u1"), doc.Get("userId"))
	assert.Equal(t, float64(1000), doc.CreationTime())

	// Second read comes from the cache and must be equally correct.
	again, err := store.Get(ctx, "session", id)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestGetMissing(t *testing.T) {
	store := newStore(t)
	_, err := store.Get(context.Background(), "session", "nope")
	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)
}

func TestCreationTimeMonotonicUnderFixedClock(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var last float64 = -1
	for i := 0; i < 4; i++ {
		id, err := store.Insert(ctx, "session", types.Document{})
		require.NoError(t, err)
		doc, err := store.Get(ctx, "session", id)
		require.NoError(t, err)
		assert.Greater(t, doc.CreationTime(), last)
		last = doc.CreationTime()
	}
}

func TestPatchRewritesIndexEntries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := insert(t, store, "u1", 100)
	require.NoError(t, store.Patch(ctx, "session", id, types.Document{
		"userId": types.String("u2"),
	}))

	// The old index entry must be gone.
	page, err := store.Scan(ctx, core.ScanRequest{
		Table:  "session",
		Index:  "by_user_id",
		Prefix: []types.Value{types.String("u1")},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = store.Scan(ctx, core.ScanRequest{
		Table:  "session",
		Index:  "by_user_id",
		Prefix: []types.Value{types.String("u2")},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, id, page.Items[0].ID())
}

func TestPatchNullDeletesField(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := insert(t, store, "u1", 100)
	require.NoError(t, store.Patch(ctx, "session", id, types.Document{
		"expiresAt": types.Null(),
	}))

	doc, err := store.Get(ctx, "session", id)
	require.NoError(t, err)
	assert.True(t, doc.Get("expiresAt").IsNull())
}

func TestDeleteRemovesIndexEntries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id := insert(t, store, "u1", 100)
	require.NoError(t, store.Delete(ctx, "session", id))

	_, err := store.Get(ctx, "session", id)
	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)

	page, err := store.Scan(ctx, core.ScanRequest{
		Table:  "session",
		Index:  "by_user_id",
		Prefix: []types.Value{types.String("u1")},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.ErrorIs(t, store.Delete(ctx, "session", id), errors.ErrDocumentNotFound)
}

func TestListTables(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	insert(t, store, "u1", 0)
	_, err := store.Insert(ctx, "account", types.Document{})
	require.NoError(t, err)

	tables, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"account", "session"}, tables)
}

func TestScanPrefixOrderAndBounds(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Inserted out of expiresAt order on purpose.
	insert(t, store, "u1", 300)
	insert(t, store, "u1", 100)
	insert(t, store, "u1", 200)
	insert(t, store, "u2", 150)

	page, err := store.Scan(ctx, core.ScanRequest{
		Table:  "session",
		Index:  "by_user_id_expires_at",
		Prefix: []types.Value{types.String("u1")},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	var got []float64
	for _, doc := range page.Items {
		n, _ := doc.Get("expiresAt").AsNumber()
		got = append(got, n)
	}
	assert.Equal(t, []float64{100, 200, 300}, got)

	t.Run("exclusive lower bound", func(t *testing.T) {
		page, err := store.Scan(ctx, core.ScanRequest{
			Table:  "session",
			Index:  "by_user_id_expires_at",
			Prefix: []types.Value{types.String("u1")},
			Lower:  &core.Bound{Value: types.Number(100)},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
	})

	t.Run("inclusive upper bound", func(t *testing.T) {
		page, err := store.Scan(ctx, core.ScanRequest{
			Table:  "session",
			Index:  "by_user_id_expires_at",
			Prefix: []types.Value{types.String("u1")},
			Upper:  &core.Bound{Value: types.Number(200), Inclusive: true},
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
	})
}

func TestScanPaginatesWithCursor(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		ids = append(ids, insert(t, store, "u1", float64(i)))
	}

	var got []string
	req := core.ScanRequest{
		Table:    "session",
		Index:    "by_user_id",
		Prefix:   []types.Value{types.String("u1")},
		PageSize: 3,
	}
	for {
		page, err := store.Scan(ctx, req)
		require.NoError(t, err)
		for _, doc := range page.Items {
			got = append(got, doc.ID())
		}
		if page.IsDone {
			break
		}
		require.NotEmpty(t, page.Cursor)
		req.Cursor = page.Cursor
	}
	assert.Equal(t, ids, got)
}

func TestScanDescendingWithCursor(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, insert(t, store, "u1", float64(i)))
	}

	var got []string
	req := core.ScanRequest{
		Table:      "session",
		Index:      "by_user_id_expires_at",
		Prefix:     []types.Value{types.String("u1")},
		Descending: true,
		PageSize:   2,
	}
	for {
		page, err := store.Scan(ctx, req)
		require.NoError(t, err)
		for _, doc := range page.Items {
			got = append(got, doc.ID())
		}
		if page.IsDone {
			break
		}
		req.Cursor = page.Cursor
	}

	require.Len(t, got, 6)
	for i := range got {
		assert.Equal(t, ids[len(ids)-1-i], got[i])
	}
}

func TestScanCreationOrderDefault(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := insert(t, store, "u2", 5)
	b := insert(t, store, "u1", 3)

	page, err := store.Scan(ctx, core.ScanRequest{Table: "session"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, a, page.Items[0].ID())
	assert.Equal(t, b, page.Items[1].ID())
}
