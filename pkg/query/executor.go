package query

import (
	"context"
	"log/slog"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/index"
	"github.com/theory-cloud/authdb/pkg/types"
)

// fetchSize is how many documents a scanner pulls from the store per page.
// Residual filtering can drop most of a page, so pulls are batched rather
// than one-at-a-time.
const fetchSize = 64

// Scanner lazily walks one index range scan, applying the plan's residual
// filters as documents stream past. A scanner restarted from the same
// position over the same data produces the same logical sequence.
type Scanner struct {
	store  core.DocumentStore
	logger *slog.Logger
	plan   *index.Plan
	table  string

	cursor    string
	buf       []types.Document
	pos       int
	exhausted bool
	budget    int

	lastExamined types.Document
	scanned      int
	warned       bool
}

// OpenScan starts a scan for the plan, resuming from the given store-level
// position cursor ("" scans from the start).
func OpenScan(store core.DocumentStore, logger *slog.Logger, table string, plan *index.Plan, position string) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:  store,
		logger: logger,
		plan:   plan,
		table:  table,
		cursor: position,
	}
}

// Next returns the next document passing the plan's residual filters. The
// second return is false once the scan is exhausted.
func (s *Scanner) Next(ctx context.Context) (types.Document, bool, error) {
	s.warnUnindexed()

	for {
		for s.pos < len(s.buf) {
			doc := s.buf[s.pos]
			s.pos++
			s.lastExamined = doc
			if MatchesAll(doc, s.plan.Residual) {
				return doc, true, nil
			}
		}
		if s.exhausted {
			return nil, false, nil
		}
		if s.budget > 0 && s.scanned >= s.budget {
			// Paused at the row budget; Exhausted() stays false so callers
			// can tell truncation from completion.
			return nil, false, nil
		}
		if err := s.fetch(ctx); err != nil {
			return nil, false, err
		}
	}
}

func (s *Scanner) fetch(ctx context.Context) error {
	size := fetchSize
	if s.budget > 0 && s.budget-s.scanned < size {
		size = s.budget - s.scanned
	}

	req := s.plan.ScanRequest(s.table)
	req.Cursor = s.cursor
	req.PageSize = size
	req.MaxRowsRead = size

	page, err := s.store.Scan(ctx, req)
	if err != nil {
		return err
	}

	s.buf = page.Items
	s.pos = 0
	s.scanned += len(page.Items)
	s.cursor = page.Cursor
	s.exhausted = page.IsDone
	return nil
}

// SetBudget caps how many store rows the scanner examines before pausing.
// Zero means unlimited. A paused scanner returns no more documents but
// reports Exhausted() false.
func (s *Scanner) SetBudget(rows int) { s.budget = rows }

// Exhausted reports whether the scan reached the end of its range, as
// opposed to pausing at its row budget.
func (s *Scanner) Exhausted() bool { return s.exhausted }

// LastExamined returns the last document the scanner read from the store,
// whether or not it passed the residual filters. Truncated pages resume
// after it so progress is guaranteed even when every row filters out.
func (s *Scanner) LastExamined() types.Document { return s.lastExamined }

// PositionOf encodes a document's resumption position under the scan's index
// key.
func (s *Scanner) PositionOf(doc types.Document) (string, error) {
	return core.EncodeScanPosition(core.PositionOf(doc, s.plan.IndexFields))
}

// warnUnindexed logs the performance warning once per scan when the plan
// fell back to an unindexed full scan with filters still attached.
func (s *Scanner) warnUnindexed() {
	if s.warned || !s.plan.Unindexed || len(s.plan.Residual) == 0 {
		return
	}
	s.warned = true

	fields := make([]string, 0, len(s.plan.Residual))
	for _, f := range s.plan.Residual {
		fields = append(fields, f.Field)
	}
	s.logger.Warn("no index matches query, falling back to full table scan",
		slog.String("table", s.table),
		slog.Any("filter_fields", fields),
	)
}
