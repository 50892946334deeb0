package types_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/authdb/pkg/types"
)

func TestCompareOrdersKinds(t *testing.T) {
	// null < bool < number < string < list
	ordered := []types.Value{
		types.Null(),
		types.Bool(false),
		types.Bool(true),
		types.Number(math.NaN()),
		types.Number(-3),
		types.Number(0),
		types.Number(2.5),
		types.String(""),
		types.String("a"),
		types.String("ab"),
		types.List(),
		types.List(types.Number(1)),
		types.List(types.Number(1), types.Number(2)),
		types.List(types.Number(2)),
	}
	for i := range ordered {
		for j := range ordered {
			c := types.Compare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Negative(t, c, "expected %s < %s", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, c, "expected %s > %s", ordered[i], ordered[j])
			default:
				assert.Zero(t, c, "expected %s == %s", ordered[i], ordered[j])
			}
		}
	}
}

func TestCompareIsTotalForNaN(t *testing.T) {
	assert.Zero(t, types.Compare(types.Number(math.NaN()), types.Number(math.NaN())))
	assert.Negative(t, types.Compare(types.Number(math.NaN()), types.Number(math.Inf(-1))))
}

func TestValueEqual(t *testing.T) {
	assert.True(t, types.String("x").Equal(types.String("x")))
	assert.False(t, types.String("1").Equal(types.Number(1)))
	assert.True(t, types.List(types.Bool(true)).Equal(types.List(types.Bool(true))))
	assert.True(t, types.Null().Equal(types.Value{}))
}

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value types.Value
	}{
		{"null", types.Null()},
		{"false", types.Bool(false)},
		{"zero", types.Number(0)},
		{"negative", types.Number(-12.5)},
		{"empty string", types.String("")},
		{"string", types.String("hello")},
		{"empty list", types.List()},
		{"nested list", types.List(types.String("a"), types.List(types.Number(1)), types.Null())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)

			var decoded types.Value
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.True(t, tc.value.Equal(decoded), "got %s", decoded)
			assert.Equal(t, tc.value.Kind(), decoded.Kind())
		})
	}
}

func TestFromGo(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want types.Value
	}{
		{"nil", nil, types.Null()},
		{"bool", true, types.Bool(true)},
		{"int", 42, types.Number(42)},
		{"int64", int64(-7), types.Number(-7)},
		{"uint", uint(3), types.Number(3)},
		{"float", 1.5, types.Number(1.5)},
		{"string", "s", types.String("s")},
		{"time", ts, types.Number(float64(ts.UnixMilli()))},
		{"string slice", []string{"a", "b"}, types.List(types.String("a"), types.String("b"))},
		{"any slice", []any{1, "x"}, types.List(types.Number(1), types.String("x"))},
		{"value passthrough", types.Bool(false), types.Bool(false)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := types.FromGo(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s, want %s", got, tc.want)
		})
	}
}

func TestFromGoRejectsUnsupported(t *testing.T) {
	_, err := types.FromGo(struct{ X int }{1})
	assert.Error(t, err)
}

func TestDocumentGetAbsentIsNull(t *testing.T) {
	doc := types.Document{"name": types.String("alice")}
	assert.True(t, doc.Get("missing").IsNull())
	assert.Equal(t, types.String("alice"), doc.Get("name"))
}

func TestDocumentProjectRetainsSystemFields(t *testing.T) {
	doc := types.Document{
		types.FieldID:           types.String("d1"),
		types.FieldCreationTime: types.Number(100),
		"email":                 types.String("a@example.com"),
		"name":                  types.String("alice"),
	}

	projected := doc.Project([]string{"email"})
	assert.Equal(t, "d1", projected.ID())
	assert.Equal(t, float64(100), projected.CreationTime())
	assert.Equal(t, types.String("a@example.com"), projected.Get("email"))
	assert.True(t, projected.Get("name").IsNull())

	// Empty selection returns the document unchanged.
	assert.Equal(t, doc, doc.Project(nil))
}
