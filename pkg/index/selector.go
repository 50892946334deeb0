package index

import (
	"fmt"
	"sort"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/types"
)

// SelectPlan maps a request and a table's declared indexes to an execution
// plan. Supported predicates (equality, one range per field) become index
// bounds; everything else becomes a residual filter. When no declared index
// covers the required field prefix the plan comes back with Unindexed set
// and every filter residual; callers log the performance warning and scan
// creation order.
func SelectPlan(req core.Request, indexes []core.DeclaredIndex) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := rejectMixedOr(req.Filters); err != nil {
		return nil, err
	}

	parts, err := partitionFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	prefix := requiredPrefix(req, parts)

	// Nothing to satisfy: plain creation-order scan.
	if len(prefix) == 0 && parts.boundField == "" && req.SortField() == "" {
		return creationOrderPlan(req, parts), nil
	}

	// Bounding or sorting by the implicit ordering key is only correct when
	// the index holds exactly the equality fields; extra trailing fields
	// would reorder results ahead of the creation key.
	needExact := parts.boundField == types.FieldCreationTime ||
		(req.SortBy != nil && req.SortBy.Field == types.FieldCreationTime)

	if len(prefix) == 0 {
		// Creation-time bound or sort with no equality fields: the implicit
		// index is the exact match.
		return creationOrderPlan(req, parts), nil
	}

	for i := range indexes {
		idx := indexes[i]
		if !hasFieldPrefix(idx.Fields, prefix) {
			continue
		}
		if needExact && len(idx.Fields) != len(prefix) {
			continue
		}
		return matchedPlan(req, parts, &idx), nil
	}

	return &Plan{
		Unindexed:   true,
		IndexFields: []string{types.FieldCreationTime},
		SortField:   req.SortField(),
		Descending:  req.Descending(),
		Residual:    append([]core.Filter(nil), req.Filters...),
	}, nil
}

// rejectMixedOr enforces the single-group OR rule: a filter may carry an OR
// connector only when it is the sole filter in the request. Callers split OR
// groups into separate requests before planning.
func rejectMixedOr(filters []core.Filter) error {
	if len(filters) < 2 {
		return nil
	}
	for _, f := range filters {
		if f.Connector == core.ConnectorOr {
			return fmt.Errorf("%w: OR connector combined with other filter clauses, split the group first",
				errors.ErrUnsupportedRequest)
		}
	}
	return nil
}

// partition buckets the request's filters by how the index can serve them.
type partition struct {
	eqFields   []string
	eqValues   map[string]types.Value
	boundField string
	lower      *core.Bound
	upper      *core.Bound
	residual   []core.Filter
}

func partitionFilters(filters []core.Filter) (*partition, error) {
	parts := &partition{eqValues: make(map[string]types.Value)}

	var lowerField, upperField string
	for _, f := range filters {
		op := f.Op()

		// Filters on the system id are satisfied by point lookup or residual
		// checks, never through a declared index.
		if f.Field == types.FieldID {
			parts.residual = append(parts.residual, f)
			continue
		}

		switch op {
		case core.OpEqual:
			if _, dup := parts.eqValues[f.Field]; dup {
				// A second equality on the same field cannot join the prefix;
				// it still has to hold, so it stays residual.
				parts.residual = append(parts.residual, f)
				continue
			}
			parts.eqFields = append(parts.eqFields, f.Field)
			parts.eqValues[f.Field] = f.Value
		case core.OpGreater, core.OpGreaterEqual:
			if parts.lower != nil {
				return nil, fmt.Errorf("%w: more than one lower bound (%s, %s)",
					errors.ErrUnsupportedRequest, lowerField, f.Field)
			}
			lowerField = f.Field
			parts.lower = &core.Bound{Value: f.Value, Inclusive: op == core.OpGreaterEqual}
		case core.OpLess, core.OpLessEqual:
			if parts.upper != nil {
				return nil, fmt.Errorf("%w: more than one upper bound (%s, %s)",
					errors.ErrUnsupportedRequest, upperField, f.Field)
			}
			upperField = f.Field
			parts.upper = &core.Bound{Value: f.Value, Inclusive: op == core.OpLessEqual}
		default:
			// contains, starts_with, ends_with, ne, in, not_in: the store
			// only supports single-value equality per index key.
			parts.residual = append(parts.residual, f)
		}
	}

	if lowerField != "" && upperField != "" && lowerField != upperField {
		return nil, fmt.Errorf("%w: range bounds target different fields (%s, %s)",
			errors.ErrUnsupportedRequest, lowerField, upperField)
	}
	parts.boundField = lowerField
	if parts.boundField == "" {
		parts.boundField = upperField
	}

	if parts.boundField != "" {
		if _, clash := parts.eqValues[parts.boundField]; clash {
			return nil, fmt.Errorf("%w: field %s has both an equality and a range bound",
				errors.ErrUnsupportedRequest, parts.boundField)
		}
		for _, f := range parts.residual {
			if f.Field == parts.boundField {
				return nil, fmt.Errorf("%w: field %s has a range bound and another filter",
					errors.ErrUnsupportedRequest, parts.boundField)
			}
		}
	}

	// Canonical ordering: equality fields sort by name, and declared index
	// field lists are expected to match this ordering for their prefix.
	sort.Strings(parts.eqFields)

	return parts, nil
}

// requiredPrefix builds the ordered field list a matching index must start
// with: equality fields, then the bound field, then the sort field, each
// skipped when already covered or when it is the implicit creation key.
func requiredPrefix(req core.Request, parts *partition) []string {
	prefix := append([]string(nil), parts.eqFields...)

	if parts.boundField != "" && parts.boundField != types.FieldCreationTime {
		prefix = append(prefix, parts.boundField)
	}

	if sortField := req.SortField(); sortField != "" &&
		sortField != parts.boundField && !contains(prefix, sortField) {
		prefix = append(prefix, sortField)
	}

	return prefix
}

// creationOrderPlan covers requests whose required prefix is empty: either a
// bare scan, or a bound/sort on the implicit creation key itself. Equality
// fields always enter the prefix, so none exist here.
func creationOrderPlan(req core.Request, parts *partition) *Plan {
	plan := &Plan{
		IndexFields: []string{types.FieldCreationTime},
		Descending:  req.Descending(),
		Residual:    parts.residual,
	}
	if parts.boundField == types.FieldCreationTime {
		plan.BoundField = parts.boundField
		plan.Lower = parts.lower
		plan.Upper = parts.upper
	}
	return plan
}

func matchedPlan(req core.Request, parts *partition, idx *core.DeclaredIndex) *Plan {
	plan := &Plan{
		Index:       idx,
		IndexFields: append(append([]string(nil), idx.Fields...), types.FieldCreationTime),
		SortField:   req.SortField(),
		Descending:  req.Descending(),
		BoundField:  parts.boundField,
		Lower:       parts.lower,
		Upper:       parts.upper,
		Residual:    parts.residual,
	}
	for _, field := range parts.eqFields {
		plan.EqualityFields = append(plan.EqualityFields, field)
		plan.EqualityValues = append(plan.EqualityValues, parts.eqValues[field])
	}
	return plan
}

func hasFieldPrefix(fields, prefix []string) bool {
	if len(fields) < len(prefix) {
		return false
	}
	for i, want := range prefix {
		if fields[i] != want {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
