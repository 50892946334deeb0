package core

import (
	"fmt"

	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/types"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpGreater      Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpLess         Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
)

// Connector joins a filter to the rest of the request.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// Filter is a single condition on one field. An empty Operator means
// equality. For in/not_in the value must be a list.
type Filter struct {
	Field     string
	Operator  Operator
	Value     types.Value
	Connector Connector
}

// Op returns the effective operator, defaulting empty to equality.
func (f Filter) Op() Operator {
	if f.Operator == "" {
		return OpEqual
	}
	return f.Operator
}

// Validate checks the filter is well formed.
func (f Filter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: filter has no field", errors.ErrInvalidFilter)
	}
	switch f.Op() {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
		OpContains, OpStartsWith, OpEndsWith:
		return nil
	case OpIn, OpNotIn:
		if _, ok := f.Value.AsList(); !ok {
			return fmt.Errorf("%w: %s on %s requires a list value",
				errors.ErrInvalidFilter, f.Op(), f.Field)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q on %s",
			errors.ErrInvalidFilter, f.Operator, f.Field)
	}
}

// SortDirection orders results ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort names the field and direction results are ordered by.
type Sort struct {
	Field     string
	Direction SortDirection
}

// Request is one abstract query from the auth library.
type Request struct {
	// Model is the logical table name.
	Model string

	// Filters are ANDed together, except that a single filter may carry an
	// OR connector when it is the only member of its group (callers split OR
	// groups before issuing requests).
	Filters []Filter

	// SortBy optionally orders results; nil means creation order.
	SortBy *Sort

	// Limit caps how many documents the caller wants; 0 means no explicit
	// cap (the paginator still applies its safety cap).
	Limit int

	// Offset is never supported and always rejected; it exists so the
	// rejection is explicit rather than a silently dropped field.
	Offset int

	// Select optionally restricts which fields are returned.
	Select []string
}

// Validate rejects malformed and untranslatable requests up front.
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("%w: request has no model", errors.ErrInvalidFilter)
	}
	if r.Offset != 0 {
		return fmt.Errorf("%w: offset pagination is not supported, use cursors",
			errors.ErrUnsupportedRequest)
	}
	for _, f := range r.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Descending reports whether the request asks for descending order.
func (r Request) Descending() bool {
	return r.SortBy != nil && r.SortBy.Direction == SortDesc
}

// SortField returns the explicit sort field, or "" when sorting by creation
// order.
func (r Request) SortField() string {
	if r.SortBy == nil || r.SortBy.Field == types.FieldCreationTime {
		return ""
	}
	return r.SortBy.Field
}
