// Package authdb adapts an identity library's query vocabulary onto a
// document store whose only efficient access path is ordered-index prefix
// scans.
//
// Import path:
//
//	import "github.com/theory-cloud/authdb"
//
// Implementation lives in `internal/authdb` so the repo root stays minimal.
package authdb

import (
	internalauthdb "github.com/theory-cloud/authdb/internal/authdb"
	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/schema"
)

type (
	Adapter = internalauthdb.Adapter
	Config  = internalauthdb.Config

	// Re-export request types for convenience.
	Request       = core.Request
	Filter        = core.Filter
	Page          = core.Page
	DeclaredIndex = core.DeclaredIndex

	SchemaRegistry  = schema.Registry
	TableDefinition = schema.TableDefinition
)

// DefaultBatchSize bounds how many documents a bulk write mutates per page.
const DefaultBatchSize = internalauthdb.DefaultBatchSize

// New builds an adapter from the config.
func New(cfg Config) (*Adapter, error) {
	return internalauthdb.New(cfg)
}

// NewRegistry builds a schema registry from in-code table definitions.
func NewRegistry(tables map[string]TableDefinition) *SchemaRegistry {
	return schema.NewRegistry(tables)
}

// LoadSchema reads table definitions from a YAML file into a new registry.
func LoadSchema(path string) (*SchemaRegistry, error) {
	return schema.LoadFile(path)
}
