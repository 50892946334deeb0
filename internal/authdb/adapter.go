// Package authdb implements the adapter between an identity library's
// abstract query vocabulary and a prefix-indexed document store.
package authdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/theory-cloud/authdb/pkg/core"
	"github.com/theory-cloud/authdb/pkg/errors"
	"github.com/theory-cloud/authdb/pkg/query"
	"github.com/theory-cloud/authdb/pkg/types"
)

// DefaultBatchSize bounds how many documents a bulk write mutates per page.
const DefaultBatchSize = 200

// Config wires the adapter's collaborators.
type Config struct {
	// Store is the document store the adapter reads and writes.
	Store core.DocumentStore

	// Schema resolves declared indexes and unique fields per table.
	Schema core.SchemaRegistry

	// Logger receives performance warnings; nil selects slog.Default.
	Logger *slog.Logger

	// MaxRowsRead caps rows examined per page; 0 selects the default (200).
	MaxRowsRead int

	// BatchSize bounds bulk-write batches; 0 selects DefaultBatchSize.
	BatchSize int
}

// Adapter serves the auth library's create/find/update/delete calls.
type Adapter struct {
	store     core.DocumentStore
	schema    core.SchemaRegistry
	logger    *slog.Logger
	paginator *query.Paginator
	batchSize int
}

// New builds an adapter from the config.
func New(cfg Config) (*Adapter, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("authdb: config requires a document store")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("authdb: config requires a schema registry")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Adapter{
		store:     cfg.Store,
		schema:    cfg.Schema,
		logger:    logger,
		paginator: query.NewPaginator(cfg.Store, cfg.Schema, logger, cfg.MaxRowsRead),
		batchSize: batchSize,
	}, nil
}

// Close releases the adapter's worker pool.
func (a *Adapter) Close() {
	a.paginator.Close()
}

// FindOne returns the first document matching the request, or nil when none
// match.
func (a *Adapter) FindOne(ctx context.Context, req core.Request) (types.Document, error) {
	page, err := a.findPage(ctx, req, 1, "")
	if err != nil {
		return nil, errors.NewError("findOne", req.Model, err)
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return page.Items[0].Project(req.Select), nil
}

// FindMany returns one page of matching documents.
func (a *Adapter) FindMany(ctx context.Context, req core.Request, pageSize int, cursor string) (core.Page, error) {
	page, err := a.findPage(ctx, req, pageSize, cursor)
	if err != nil {
		return core.Page{}, errors.NewError("findMany", req.Model, err)
	}
	if len(req.Select) > 0 {
		for i, doc := range page.Items {
			page.Items[i] = doc.Project(req.Select)
		}
	}
	return page, nil
}

// Count drains the request's pages and returns the number of matches.
func (a *Adapter) Count(ctx context.Context, req core.Request) (int, error) {
	count := 0
	cursor := ""
	for {
		page, err := a.findPage(ctx, req, a.batchSize, cursor)
		if err != nil {
			return 0, errors.NewError("count", req.Model, err)
		}
		count += len(page.Items)
		if page.IsComplete {
			return count, nil
		}
		cursor = page.Cursor
	}
}

// Transaction rejects the auth library's transactional-boundary request:
// the store offers single-document atomicity only, and pretending otherwise
// would silently weaken callers' expectations.
func (a *Adapter) Transaction(context.Context, func(*Adapter) error) error {
	return errors.NewError("transaction", "",
		fmt.Errorf("%w: compound transactions are not supported", errors.ErrUnsupportedRequest))
}

// findPage routes a request to the paginator, splitting OR groups into a
// union first.
func (a *Adapter) findPage(ctx context.Context, req core.Request, pageSize int, cursor string) (core.Page, error) {
	reqs, err := splitOrGroup(req)
	if err != nil {
		return core.Page{}, err
	}
	if len(reqs) == 1 {
		return a.paginator.Paginate(ctx, reqs[0], pageSize, cursor)
	}
	return a.paginator.PaginateUnion(ctx, reqs, pageSize, cursor)
}

// splitOrGroup turns a pure OR group into one request per clause. A request
// mixing an OR connector with other clauses is untranslatable: the caller
// must group first.
func splitOrGroup(req core.Request) ([]core.Request, error) {
	orCount := 0
	for _, f := range req.Filters {
		if f.Connector == core.ConnectorOr {
			orCount++
		}
	}
	switch {
	case orCount == 0, len(req.Filters) <= 1:
		return []core.Request{req}, nil
	case orCount == len(req.Filters):
		out := make([]core.Request, 0, orCount)
		for _, f := range req.Filters {
			clause := req
			clause.Filters = []core.Filter{{Field: f.Field, Operator: f.Operator, Value: f.Value}}
			out = append(out, clause)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: OR connector combined with other filter clauses",
			errors.ErrUnsupportedRequest)
	}
}
