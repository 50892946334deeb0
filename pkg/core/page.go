package core

import "github.com/theory-cloud/authdb/pkg/types"

// Page is one page of query results. Cursor is opaque to callers and only
// meaningful when resubmitted with the same request shape. An empty Cursor
// with IsComplete set marks end of results (or a singleton unique lookup,
// which never pages).
type Page struct {
	Items      []types.Document
	Cursor     string
	IsComplete bool
}

// EmptyPage is a complete page with no items.
func EmptyPage() Page {
	return Page{IsComplete: true}
}

// SinglePage wraps zero or one documents as a complete page.
func SinglePage(doc types.Document) Page {
	if doc == nil {
		return EmptyPage()
	}
	return Page{Items: []types.Document{doc}, IsComplete: true}
}
