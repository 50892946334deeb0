package query

import (
	"container/heap"
	"context"
	"sync"

	"github.com/theory-cloud/authdb/pkg/types"
)

// mergeSource is one scan feeding a union merge: a scanner plus its current
// head document and the position of the last document the merge consumed
// from it.
type mergeSource struct {
	scanner *Scanner
	head    types.Document
	hasHead bool
	paused  bool
	err     error

	// consumed is the encoded position of the last document taken from this
	// source; "" means the source's starting position still applies.
	consumed string
	start    string
}

// advance pulls the next document into head.
func (m *mergeSource) advance(ctx context.Context) {
	doc, ok, err := m.scanner.Next(ctx)
	if err != nil {
		m.err = err
		m.hasHead = false
		return
	}
	m.head = doc
	m.hasHead = ok
	m.paused = !ok && !m.scanner.Exhausted()
}

// take consumes the current head and advances.
func (m *mergeSource) take(ctx context.Context) (types.Document, error) {
	doc := m.head
	pos, err := m.scanner.PositionOf(doc)
	if err != nil {
		return nil, err
	}
	m.consumed = pos
	m.advance(ctx)
	return doc, m.err
}

// position returns the cursor position this source resumes from. A source
// paused at its row budget resumes after the last examined row, so zero-match
// stretches still make progress.
func (m *mergeSource) position() (string, error) {
	if m.paused {
		if last := m.scanner.LastExamined(); last != nil {
			return m.scanner.PositionOf(last)
		}
	}
	if m.consumed != "" {
		return m.consumed, nil
	}
	return m.start, nil
}

// docOrder compares documents by an ordered field list with the id as the
// final tiebreaker. For a union merge the fields are the shared plan's
// ordering key (the index fields after the equality prefix), so the heap
// comparison agrees with the order each constituent scan streams in. The
// descending flag inverts the whole ordering so it matches the direction of
// the underlying scans.
type docOrder struct {
	fields     []string
	descending bool
}

func (o docOrder) compare(a, b types.Document) int {
	c := 0
	for _, field := range o.fields {
		if c = types.Compare(a.Get(field), b.Get(field)); c != 0 {
			break
		}
	}
	if c == 0 {
		switch {
		case a.ID() < b.ID():
			c = -1
		case a.ID() > b.ID():
			c = 1
		}
	}
	if o.descending {
		c = -c
	}
	return c
}

// sourceHeap is a min-heap of merge sources keyed by their head documents.
type sourceHeap struct {
	sources []*mergeSource
	order   docOrder
}

func (h *sourceHeap) Len() int { return len(h.sources) }

func (h *sourceHeap) Less(i, j int) bool {
	return h.order.compare(h.sources[i].head, h.sources[j].head) < 0
}

func (h *sourceHeap) Swap(i, j int) {
	h.sources[i], h.sources[j] = h.sources[j], h.sources[i]
}

func (h *sourceHeap) Push(x any) {
	h.sources = append(h.sources, x.(*mergeSource))
}

func (h *sourceHeap) Pop() any {
	old := h.sources
	n := len(old)
	src := old[n-1]
	h.sources = old[:n-1]
	return src
}

// merger performs a k-way merge over the sources, deduplicating by document
// id: a document matching two union clauses surfaces from two scans with the
// same key and must appear once.
type merger struct {
	heap    *sourceHeap
	all     []*mergeSource
	seen    map[string]bool
	lastErr error
}

// newMerger primes every source and heapifies the non-empty ones. The prime
// function runs the per-source first pull; the paginator supplies one that
// fans out on the worker pool so union latency tracks the slowest scan, not
// the sum.
func newMerger(ctx context.Context, sources []*mergeSource, order docOrder, prime func(func())) (*merger, error) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			src.advance(ctx)
		}
		prime(task)
	}
	wg.Wait()

	h := &sourceHeap{order: order}
	for _, src := range sources {
		if src.err != nil {
			return nil, src.err
		}
		if src.hasHead {
			h.sources = append(h.sources, src)
		}
	}
	heap.Init(h)

	return &merger{heap: h, all: sources, seen: make(map[string]bool)}, nil
}

// next returns the next distinct document in merge order.
func (m *merger) next(ctx context.Context) (types.Document, bool, error) {
	for m.heap.Len() > 0 {
		src := m.heap.sources[0]
		doc, err := src.take(ctx)
		if err != nil {
			return nil, false, err
		}
		if src.hasHead {
			heap.Fix(m.heap, 0)
		} else {
			heap.Pop(m.heap)
		}

		if m.seen[doc.ID()] {
			continue
		}
		m.seen[doc.ID()] = true
		return doc, true, nil
	}
	return nil, false, nil
}

// drainDuplicates consumes heads that were already emitted this merge, so a
// page boundary never splits a duplicate pair across pages.
func (m *merger) drainDuplicates(ctx context.Context) error {
	for m.heap.Len() > 0 {
		src := m.heap.sources[0]
		if !m.seen[src.head.ID()] {
			return nil
		}
		if _, err := src.take(ctx); err != nil {
			return err
		}
		if src.hasHead {
			heap.Fix(m.heap, 0)
		} else {
			heap.Pop(m.heap)
		}
	}
	return nil
}

// hasMore reports whether any source still has a pending document or paused
// at its row budget before reaching the end of its range.
func (m *merger) hasMore() bool {
	if m.heap.Len() > 0 {
		return true
	}
	for _, src := range m.all {
		if src.paused {
			return true
		}
	}
	return false
}

// positions returns the per-source resume positions in source order.
func (m *merger) positions() ([]string, error) {
	out := make([]string, len(m.all))
	for i, src := range m.all {
		pos, err := src.position()
		if err != nil {
			return nil, err
		}
		out[i] = pos
	}
	return out, nil
}
