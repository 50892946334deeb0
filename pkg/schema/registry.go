// Package schema implements the schema registry: which composite indexes
// each table declares and which fields carry a uniqueness constraint.
package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/authdb/pkg/core"
)

// TableDefinition declares one table's indexes and unique fields.
type TableDefinition struct {
	Indexes      []core.DeclaredIndex `yaml:"indexes"`
	UniqueFields []string             `yaml:"unique_fields"`
}

// Registry holds table definitions and serves them through the
// core.SchemaRegistry interface. Definitions are fixed after construction;
// reads are concurrency-safe.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]TableDefinition
}

// NewRegistry builds a registry from in-code definitions.
func NewRegistry(tables map[string]TableDefinition) *Registry {
	if tables == nil {
		tables = make(map[string]TableDefinition)
	}
	return &Registry{tables: tables}
}

// registryFile is the YAML document shape for LoadFile.
type registryFile struct {
	Tables map[string]TableDefinition `yaml:"tables"`
}

// LoadFile reads table definitions from a YAML file:
//
//	tables:
//	  user:
//	    unique_fields: [email]
//	    indexes:
//	      - name: by_email
//	        fields: [email]
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	for table, def := range file.Tables {
		for _, idx := range def.Indexes {
			if idx.Name == "" || len(idx.Fields) == 0 {
				return nil, fmt.Errorf("table %s declares an index without name or fields", table)
			}
		}
	}
	return NewRegistry(file.Tables), nil
}

// ListIndexes returns the declared indexes for a table, excluding the
// implicit creation-time index.
func (r *Registry) ListIndexes(table string) []core.DeclaredIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tables[table]
	if !ok {
		return nil
	}
	out := make([]core.DeclaredIndex, len(def.Indexes))
	copy(out, def.Indexes)
	return out
}

// IsUniqueField reports whether a field is declared unique for the table.
func (r *Registry) IsUniqueField(table, field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tables[table]
	if !ok {
		return false
	}
	for _, f := range def.UniqueFields {
		if f == field {
			return true
		}
	}
	return false
}

// UniqueFields returns the declared unique fields for a table, sorted for
// deterministic iteration.
func (r *Registry) UniqueFields(table string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tables[table]
	if !ok {
		return nil
	}
	out := make([]string, len(def.UniqueFields))
	copy(out, def.UniqueFields)
	sort.Strings(out)
	return out
}

// Tables returns the declared table names, sorted.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
