// Package query executes resolved plans: scanning, residual filtering,
// cursor pagination, and multi-scan union merges.
package query

import (
	"strings"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Matches evaluates one residual filter against a document. Comparisons
// never fail: an absent field reads as null, null orders before any present
// value, and string operators are false for non-string values.
func Matches(doc types.Document, f core.Filter) bool {
	value := doc.Get(f.Field)

	switch f.Op() {
	case core.OpEqual:
		return value.Equal(f.Value)
	case core.OpNotEqual:
		return !value.Equal(f.Value)
	case core.OpGreater:
		return types.Compare(value, f.Value) > 0
	case core.OpGreaterEqual:
		return types.Compare(value, f.Value) >= 0
	case core.OpLess:
		return types.Compare(value, f.Value) < 0
	case core.OpLessEqual:
		return types.Compare(value, f.Value) <= 0
	case core.OpIn:
		return inSet(value, f.Value)
	case core.OpNotIn:
		return !inSet(value, f.Value)
	case core.OpContains:
		return stringMatch(value, f.Value, strings.Contains)
	case core.OpStartsWith:
		return stringMatch(value, f.Value, strings.HasPrefix)
	case core.OpEndsWith:
		return stringMatch(value, f.Value, strings.HasSuffix)
	default:
		return false
	}
}

// MatchesAll short-circuits across a residual filter list.
func MatchesAll(doc types.Document, filters []core.Filter) bool {
	for _, f := range filters {
		if !Matches(doc, f) {
			return false
		}
	}
	return true
}

func inSet(value, set types.Value) bool {
	items, ok := set.AsList()
	if !ok {
		return false
	}
	for _, item := range items {
		if value.Equal(item) {
			return true
		}
	}
	return false
}

func stringMatch(value, target types.Value, match func(s, sub string) bool) bool {
	s, ok := value.AsString()
	if !ok {
		return false
	}
	sub, ok := target.AsString()
	if !ok {
		return false
	}
	return match(s, sub)
}
