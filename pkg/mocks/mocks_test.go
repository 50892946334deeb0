package mocks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/mocks"
	"github.com/theory-cloud/authdb/pkg/types"
)

func TestMockDocumentStore(t *testing.T) {
	store := new(mocks.MockDocumentStore)
	ctx := context.Background()

	doc := types.Document{
		types.FieldID: types.String("u1"),
		"email":       types.String("a@example.com"),
	}
	store.On("Get", mock.Anything, "user", "u1").Return(doc, nil)
	store.On("Get", mock.Anything, "user", "missing").Return(nil, errors.ErrDocumentNotFound)
	store.On("Insert", mock.Anything, "user", mock.Anything).Return("u2", nil)
	store.On("Scan", mock.Anything, mock.MatchedBy(func(req core.ScanRequest) bool {
		return req.Table == "user"
	})).Return(core.ScanPage{Items: []types.Document{doc}, IsDone: true}, nil)

	// Consumed through the interface, as the adapter would.
	var ds core.DocumentStore = store

	got, err := ds.Get(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID())

	_, err = ds.Get(ctx, "user", "missing")
	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)

	id, err := ds.Insert(ctx, "user", types.Document{})
	require.NoError(t, err)
	assert.Equal(t, "u2", id)

	page, err := ds.Scan(ctx, core.ScanRequest{Table: "user"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.IsDone)

	store.AssertExpectations(t)
}

func TestMockSchemaRegistry(t *testing.T) {
	reg := new(mocks.MockSchemaRegistry)
	reg.On("ListIndexes", "user").Return([]core.DeclaredIndex{
		{Name: "by_email", Fields: []string{"email"}},
	})
	reg.On("IsUniqueField", "user", "email").Return(true)
	reg.On("IsUniqueField", "user", "name").Return(false)

	var sr core.SchemaRegistry = reg

	indexes := sr.ListIndexes("user")
	require.Len(t, indexes, 1)
	assert.Equal(t, "by_email", indexes[0].Name)
	assert.True(t, sr.IsUniqueField("user", "email"))
	assert.False(t, sr.IsUniqueField("user", "name"))

	reg.AssertExpectations(t)
}
