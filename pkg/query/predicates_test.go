package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/query"
	"github.com/theory-cloud/authdb/pkg/types"
)

func TestMatches(t *testing.T) {
	doc := types.Document{
		"email":   types.String("alice@example.com"),
		"age":     types.Number(30),
		"active":  types.Bool(true),
		"roles":   types.List(types.String("admin"), types.String("user")),
		"balance": types.Number(0),
	}

	tests := []struct {
		name   string
		filter core.Filter
		want   bool
	}{
		{"eq match", core.Filter{Field: "email", Operator: core.OpEqual, Value: types.String("alice@example.com")}, true},
		{"eq miss", core.Filter{Field: "email", Operator: core.OpEqual, Value: types.String("bob@example.com")}, false},
		{"default operator is eq", core.Filter{Field: "age", Value: types.Number(30)}, true},
		{"ne", core.Filter{Field: "age", Operator: core.OpNotEqual, Value: types.Number(31)}, true},
		{"gt", core.Filter{Field: "age", Operator: core.OpGreater, Value: types.Number(29)}, true},
		{"gt equal is false", core.Filter{Field: "age", Operator: core.OpGreater, Value: types.Number(30)}, false},
		{"gte equal", core.Filter{Field: "age", Operator: core.OpGreaterEqual, Value: types.Number(30)}, true},
		{"lt", core.Filter{Field: "age", Operator: core.OpLess, Value: types.Number(31)}, true},
		{"lte", core.Filter{Field: "age", Operator: core.OpLessEqual, Value: types.Number(30)}, true},
		{"in", core.Filter{Field: "age", Operator: core.OpIn, Value: types.List(types.Number(29), types.Number(30))}, true},
		{"not_in", core.Filter{Field: "age", Operator: core.OpNotIn, Value: types.List(types.Number(29))}, true},
		{"contains", core.Filter{Field: "email", Operator: core.OpContains, Value: types.String("@example")}, true},
		{"starts_with", core.Filter{Field: "email", Operator: core.OpStartsWith, Value: types.String("alice")}, true},
		{"ends_with", core.Filter{Field: "email", Operator: core.OpEndsWith, Value: types.String(".com")}, true},
		{"contains on non-string is false", core.Filter{Field: "age", Operator: core.OpContains, Value: types.String("3")}, false},
		{"absent field eq null", core.Filter{Field: "missing", Operator: core.OpEqual, Value: types.Null()}, true},
		{"absent field lt any present value", core.Filter{Field: "missing", Operator: core.OpLess, Value: types.Bool(false)}, true},
		{"cross-kind eq is false", core.Filter{Field: "balance", Operator: core.OpEqual, Value: types.String("0")}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, query.Matches(doc, tc.filter))
		})
	}
}

func TestMatchesAll(t *testing.T) {
	doc := types.Document{"a": types.Number(1), "b": types.Number(2)}

	assert.True(t, query.MatchesAll(doc, nil))
	assert.True(t, query.MatchesAll(doc, []core.Filter{
		{Field: "a", Value: types.Number(1)},
		{Field: "b", Operator: core.OpGreater, Value: types.Number(1)},
	}))
	assert.False(t, query.MatchesAll(doc, []core.Filter{
		{Field: "a", Value: types.Number(1)},
		{Field: "b", Value: types.Number(3)},
	}))
}
