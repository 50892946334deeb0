package authdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/index"
	"github.com/theory-cloud/authdb/pkg/query"
	"github.com/theory-cloud/authdb/pkg/types"
)

// assertUnique verifies that no other document already holds any of the
// candidate's declared-unique values. excludingID permits the document
// being updated to keep its own values. A declared-unique field with no
// backing index is a schema defect and fails hard rather than skipping the
// check.
func (a *Adapter) assertUnique(ctx context.Context, model string, candidate types.Document, excludingID string) error {
	fields := make([]string, 0, len(candidate))
	for field := range candidate {
		if field == types.FieldID || field == types.FieldCreationTime {
			continue
		}
		if a.schema.IsUniqueField(model, field) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	for _, field := range fields {
		value := candidate.Get(field)
		if value.IsNull() {
			continue
		}

		probe := core.Request{
			Model:   model,
			Filters: []core.Filter{{Field: field, Operator: core.OpEqual, Value: value}},
		}
		plan, err := index.SelectPlan(probe, a.schema.ListIndexes(model))
		if err != nil {
			return err
		}
		if plan.Unindexed {
			return fmt.Errorf("%w: unique field %s.%s", errors.ErrMissingIndex, model, field)
		}

		scanner := query.OpenScan(a.store, a.logger, model, plan, "")
		for {
			doc, ok, err := scanner.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if doc.ID() != excludingID {
				return fmt.Errorf("%w: %s.%s = %s", errors.ErrConstraintViolation,
					model, field, value)
			}
		}
	}
	return nil
}
