package query

import (
	"context"
	"log/slog"
	"sort"

	"github.com/panjf2000/ants/v2"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/index"
	"github.com/theory-cloud/authdb/pkg/types"
)

const (
	// DefaultPageSize applies when a request carries no explicit limit.
	DefaultPageSize = 100

	// DefaultMaxRowsRead caps how many store rows a single page may examine.
	// The effective cap is this or pageSize+1, whichever is larger.
	DefaultMaxRowsRead = 200

	// unionWorkers bounds the pool priming union scans concurrently.
	unionWorkers = 8
)

// Paginator orchestrates single-scan pagination, unique point lookups, and
// multi-scan union pagination behind one page abstraction.
type Paginator struct {
	store       core.DocumentStore
	schema      core.SchemaRegistry
	logger      *slog.Logger
	pool        *ants.Pool
	maxRowsRead int
}

// NewPaginator builds a paginator. logger may be nil (slog.Default applies),
// maxRowsRead <= 0 selects DefaultMaxRowsRead.
func NewPaginator(store core.DocumentStore, schema core.SchemaRegistry, logger *slog.Logger, maxRowsRead int) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRowsRead <= 0 {
		maxRowsRead = DefaultMaxRowsRead
	}
	pool, err := ants.NewPool(unionWorkers)
	if err != nil {
		// Only reachable with an invalid size; fall back to inline priming.
		pool = nil
	}
	return &Paginator{
		store:       store,
		schema:      schema,
		logger:      logger,
		pool:        pool,
		maxRowsRead: maxRowsRead,
	}
}

// Close releases the union worker pool.
func (p *Paginator) Close() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Paginate resolves and executes one request, returning a single page.
func (p *Paginator) Paginate(ctx context.Context, req core.Request, pageSize int, cursor string) (core.Page, error) {
	if err := req.Validate(); err != nil {
		return core.Page{}, err
	}
	pageSize = p.normalizePageSize(req, pageSize)

	// Point lookup by system id.
	if f, ok := findEq(req.Filters, types.FieldID); ok {
		return p.lookupByID(ctx, req, f)
	}

	// Single-key lookup through a unique field's index.
	if page, ok, err := p.lookupUnique(ctx, req); err != nil || ok {
		return page, err
	}

	// Membership filters take the union path; on the system id the union
	// degenerates to point lookups.
	if f, ok := findIn(req.Filters); ok {
		if f.Field == types.FieldID {
			return p.lookupManyByID(ctx, req, f, pageSize)
		}
		return p.unionByMembership(ctx, req, f, pageSize, cursor)
	}

	plan, err := index.SelectPlan(req, p.schema.ListIndexes(req.Model))
	if err != nil {
		return core.Page{}, err
	}
	return p.paginateSingle(ctx, req, plan, pageSize, cursor)
}

// PaginateUnion pages over several requests merged into one ordered,
// duplicate-free sequence. Callers use it for pre-split OR groups; the
// requests must share model, sort, and shape across pages.
func (p *Paginator) PaginateUnion(ctx context.Context, reqs []core.Request, pageSize int, cursor string) (core.Page, error) {
	if len(reqs) == 0 {
		return core.EmptyPage(), nil
	}
	if len(reqs) == 1 {
		return p.Paginate(ctx, reqs[0], pageSize, cursor)
	}
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			return core.Page{}, err
		}
	}
	pageSize = p.normalizePageSize(reqs[0], pageSize)

	plans := make([]*index.Plan, len(reqs))
	for i, req := range reqs {
		plan, err := index.SelectPlan(req, p.schema.ListIndexes(req.Model))
		if err != nil {
			return core.Page{}, err
		}
		plans[i] = plan
	}

	sortTag := string(sortDirection(reqs[0]))
	positions, err := resumePositions(cursor, len(reqs), plans[0].IndexName(), sortTag)
	if err != nil {
		return core.Page{}, err
	}

	rowsCap := p.rowsCap(pageSize)
	sources := make([]*mergeSource, len(reqs))
	for i := range reqs {
		scanner := OpenScan(p.store, p.logger, reqs[i].Model, plans[i], positions[i])
		scanner.SetBudget(rowsCap)
		sources[i] = &mergeSource{scanner: scanner, start: positions[i]}
	}

	order := docOrder{fields: plans[0].OrderingFields(), descending: reqs[0].Descending()}
	m, err := newMerger(ctx, sources, order, p.primeFunc())
	if err != nil {
		return core.Page{}, err
	}

	items := make([]types.Document, 0, pageSize)
	for {
		doc, ok, err := m.next(ctx)
		if err != nil {
			return core.Page{}, err
		}
		if !ok {
			// Either every source is exhausted, or some paused at their row
			// budgets and the page truncates early.
			if !m.hasMore() {
				return core.Page{Items: items, IsComplete: true}, nil
			}
			return p.unionPage(items, m, plans[0], sortTag)
		}
		items = append(items, doc)

		if len(items) < pageSize {
			continue
		}
		if err := m.drainDuplicates(ctx); err != nil {
			return core.Page{}, err
		}
		if !m.hasMore() {
			return core.Page{Items: items, IsComplete: true}, nil
		}
		return p.unionPage(items, m, plans[0], sortTag)
	}
}

// unionPage cuts a non-final union page with per-source resume positions.
func (p *Paginator) unionPage(items []types.Document, m *merger, plan *index.Plan, sortTag string) (core.Page, error) {
	positions, err := m.positions()
	if err != nil {
		return core.Page{}, err
	}
	next, err := EncodeCursor(Cursor{
		Positions: positions,
		Index:     plan.IndexName(),
		Sort:      sortTag,
	})
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Items: items, Cursor: next}, nil
}

// paginateSingle runs one scan and cuts a page with a guard row.
func (p *Paginator) paginateSingle(ctx context.Context, req core.Request, plan *index.Plan, pageSize int, cursor string) (core.Page, error) {
	sortTag := string(sortDirection(req))
	positions, err := resumePositions(cursor, 1, plan.IndexName(), sortTag)
	if err != nil {
		return core.Page{}, err
	}

	scanner := OpenScan(p.store, p.logger, req.Model, plan, positions[0])
	scanner.SetBudget(p.rowsCap(pageSize))

	items := make([]types.Document, 0, pageSize)
	var lastPos string
	for {
		doc, ok, err := scanner.Next(ctx)
		if err != nil {
			return core.Page{}, err
		}
		if !ok {
			if scanner.Exhausted() {
				return core.Page{Items: items, IsComplete: true}, nil
			}
			// Row budget hit: truncate the page, resuming after the last
			// examined row so zero-match pages still make progress.
			pos, err := scanner.PositionOf(scanner.LastExamined())
			if err != nil {
				return core.Page{}, err
			}
			next, err := p.encodeSinglePos(pos, plan, sortTag)
			if err != nil {
				return core.Page{}, err
			}
			return core.Page{Items: items, Cursor: next}, nil
		}

		if len(items) >= pageSize {
			// Guard row: more data exists beyond this page.
			next, err := p.encodeSinglePos(lastPos, plan, sortTag)
			if err != nil {
				return core.Page{}, err
			}
			return core.Page{Items: items, Cursor: next}, nil
		}

		items = append(items, doc)
		if lastPos, err = scanner.PositionOf(doc); err != nil {
			return core.Page{}, err
		}
	}
}

// lookupByID resolves an equality on the system id as a direct point get.
func (p *Paginator) lookupByID(ctx context.Context, req core.Request, f core.Filter) (core.Page, error) {
	id, ok := f.Value.AsString()
	if !ok {
		return core.EmptyPage(), nil
	}
	doc, err := p.store.Get(ctx, req.Model, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return core.EmptyPage(), nil
		}
		return core.Page{}, err
	}
	if !MatchesAll(doc, req.Filters) {
		return core.EmptyPage(), nil
	}
	return core.SinglePage(doc), nil
}

// lookupUnique resolves an equality on a declared-unique field through its
// index, expecting at most one match. Returns ok=false when no filter
// qualifies or the unique field has no usable index (the general scan path
// then applies, with its warning).
func (p *Paginator) lookupUnique(ctx context.Context, req core.Request) (core.Page, bool, error) {
	for _, f := range req.Filters {
		if f.Op() != core.OpEqual || f.Field == types.FieldID {
			continue
		}
		if !p.schema.IsUniqueField(req.Model, f.Field) {
			continue
		}
		probe := core.Request{Model: req.Model, Filters: []core.Filter{f}}
		plan, err := index.SelectPlan(probe, p.schema.ListIndexes(req.Model))
		if err != nil {
			return core.Page{}, false, err
		}
		if plan.Unindexed {
			continue
		}

		scanner := OpenScan(p.store, p.logger, req.Model, plan, "")
		doc, ok, err := scanner.Next(ctx)
		if err != nil {
			return core.Page{}, false, err
		}
		if !ok || !MatchesAll(doc, req.Filters) {
			return core.EmptyPage(), true, nil
		}
		return core.SinglePage(doc), true, nil
	}
	return core.Page{}, false, nil
}

// lookupManyByID materializes an id-membership filter as point lookups:
// misses drop out, residual filters apply, and the result sorts and
// truncates in memory. No cursor semantics are needed.
func (p *Paginator) lookupManyByID(ctx context.Context, req core.Request, f core.Filter, pageSize int) (core.Page, error) {
	ids, _ := f.Value.AsList()
	items := make([]types.Document, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, idValue := range ids {
		id, ok := idValue.AsString()
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		doc, err := p.store.Get(ctx, req.Model, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return core.Page{}, err
		}
		if MatchesAll(doc, req.Filters) {
			items = append(items, doc)
		}
	}

	fields := []string{types.FieldCreationTime}
	if sortField := req.SortField(); sortField != "" {
		fields = []string{sortField, types.FieldCreationTime}
	}
	order := docOrder{fields: fields, descending: req.Descending()}
	sort.SliceStable(items, func(i, j int) bool {
		return order.compare(items[i], items[j]) < 0
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	return core.Page{Items: items, IsComplete: true}, nil
}

// unionByMembership splits an in filter into one equality request per value
// and pages over their merged scans.
func (p *Paginator) unionByMembership(ctx context.Context, req core.Request, f core.Filter, pageSize int, cursor string) (core.Page, error) {
	values, _ := f.Value.AsList()
	if len(values) == 0 {
		return core.EmptyPage(), nil
	}

	reqs := make([]core.Request, 0, len(values))
	for _, v := range values {
		split := req
		split.Filters = replaceFilter(req.Filters, f, core.Filter{
			Field: f.Field, Operator: core.OpEqual, Value: v,
		})
		reqs = append(reqs, split)
	}
	return p.PaginateUnion(ctx, reqs, pageSize, cursor)
}

func (p *Paginator) encodeSinglePos(pos string, plan *index.Plan, sortTag string) (string, error) {
	return EncodeCursor(Cursor{
		Positions: []string{pos},
		Index:     plan.IndexName(),
		Sort:      sortTag,
	})
}

func (p *Paginator) primeFunc() func(func()) {
	return func(task func()) {
		if p.pool != nil {
			if err := p.pool.Submit(task); err == nil {
				return
			}
		}
		task()
	}
}

func (p *Paginator) normalizePageSize(req core.Request, pageSize int) int {
	if pageSize > 0 {
		return pageSize
	}
	if req.Limit > 0 {
		return req.Limit
	}
	return DefaultPageSize
}

func (p *Paginator) rowsCap(pageSize int) int {
	if pageSize+1 > p.maxRowsRead {
		return pageSize + 1
	}
	return p.maxRowsRead
}

func sortDirection(req core.Request) core.SortDirection {
	if req.Descending() {
		return core.SortDesc
	}
	return core.SortAsc
}

func findEq(filters []core.Filter, field string) (core.Filter, bool) {
	for _, f := range filters {
		if f.Field == field && f.Op() == core.OpEqual {
			return f, true
		}
	}
	return core.Filter{}, false
}

func findIn(filters []core.Filter) (core.Filter, bool) {
	for _, f := range filters {
		if f.Op() == core.OpIn {
			return f, true
		}
	}
	return core.Filter{}, false
}

func replaceFilter(filters []core.Filter, old, repl core.Filter) []core.Filter {
	out := make([]core.Filter, 0, len(filters))
	replaced := false
	for _, f := range filters {
		if !replaced && f.Field == old.Field && f.Operator == old.Operator {
			out = append(out, repl)
			replaced = true
			continue
		}
		out = append(out, f)
	}
	if !replaced {
		out = append(out, repl)
	}
	return out
}
