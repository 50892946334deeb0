package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/theory-cloud/authdb/pkg/errors"
)

// Cursor represents pagination state for a query. Positions holds one scan
// position per constituent scan: a single element for plain queries, one per
// merged scan on the union path. Index and Sort tag the plan shape so a
// cursor resubmitted against a different request shape is rejected instead
// of silently misreading.
type Cursor struct {
	Positions []string `json:"pos"`
	Index     string   `json:"index,omitempty"`
	Sort      string   `json:"sort,omitempty"`
}

// EncodeCursor encodes a cursor into an opaque base64 string. A cursor with
// no positions encodes to "".
func EncodeCursor(c Cursor) (string, error) {
	if len(c.Positions) == 0 {
		return "", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeCursor decodes a base64 cursor string. Empty input decodes to nil.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidCursor, err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidCursor, err)
	}
	return &cursor, nil
}

// resumePositions validates a caller cursor against the current plan shape
// and returns the per-scan store cursors, one per expected scan.
func resumePositions(encoded string, scans int, indexName, sort string) ([]string, error) {
	positions := make([]string, scans)
	if encoded == "" {
		return positions, nil
	}

	cursor, err := DecodeCursor(encoded)
	if err != nil {
		return nil, err
	}
	if cursor.Index != indexName || cursor.Sort != sort {
		return nil, fmt.Errorf("%w: cursor was issued for a different query shape",
			errors.ErrInvalidCursor)
	}
	if len(cursor.Positions) != scans {
		return nil, fmt.Errorf("%w: cursor holds %d scan positions, query needs %d",
			errors.ErrInvalidCursor, len(cursor.Positions), scans)
	}
	copy(positions, cursor.Positions)
	return positions, nil
}
