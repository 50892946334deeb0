// Package mocks provides testify mocks for the consumed boundaries, for
// unit testing code that depends on authdb without a real store.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/types"
)

var (
	_ core.DocumentStore  = (*MockDocumentStore)(nil)
	_ core.SchemaRegistry = (*MockSchemaRegistry)(nil)
)

// MockDocumentStore is a mock implementation of core.DocumentStore.
//
// Example usage:
//
//	store := new(mocks.MockDocumentStore)
//	store.On("Get", mock.Anything, "user", "u1").Return(doc, nil)
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Get(ctx context.Context, table, id string) (types.Document, error) {
	args := m.Called(ctx, table, id)
	doc, _ := args.Get(0).(types.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentStore) Insert(ctx context.Context, table string, doc types.Document) (string, error) {
	args := m.Called(ctx, table, doc)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Patch(ctx context.Context, table, id string, patch types.Document) error {
	args := m.Called(ctx, table, id, patch)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, table, id string) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockDocumentStore) Scan(ctx context.Context, req core.ScanRequest) (core.ScanPage, error) {
	args := m.Called(ctx, req)
	page, _ := args.Get(0).(core.ScanPage)
	return page, args.Error(1)
}

func (m *MockDocumentStore) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]string)
	return tables, args.Error(1)
}

// MockSchemaRegistry is a mock implementation of core.SchemaRegistry.
type MockSchemaRegistry struct {
	mock.Mock
}

func (m *MockSchemaRegistry) ListIndexes(table string) []core.DeclaredIndex {
	args := m.Called(table)
	indexes, _ := args.Get(0).([]core.DeclaredIndex)
	return indexes
}

func (m *MockSchemaRegistry) IsUniqueField(table, field string) bool {
	args := m.Called(table, field)
	return args.Bool(0)
}
