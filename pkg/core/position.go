package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/theory-cloud/authdb/pkg/types"
)

// ScanPosition identifies a location inside an index scan: the full index
// key of the last seen document (including the trailing creation-time value)
// plus its id as the final tiebreaker. Stores resume strictly after it.
type ScanPosition struct {
	Key []types.Value `json:"k"`
	ID  string        `json:"id"`
}

// EncodeScanPosition encodes a position as an opaque cursor string.
func EncodeScanPosition(pos ScanPosition) (string, error) {
	data, err := json.Marshal(pos)
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan position: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeScanPosition decodes a cursor produced by EncodeScanPosition. An
// empty cursor decodes to nil, meaning scan-from-start.
func DecodeScanPosition(cursor string) (*ScanPosition, error) {
	if cursor == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scan position: %w", err)
	}
	var pos ScanPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan position: %w", err)
	}
	return &pos, nil
}

// PositionOf builds the scan position of a document under the given index
// key fields.
func PositionOf(doc types.Document, indexFields []string) ScanPosition {
	key := make([]types.Value, len(indexFields))
	for i, field := range indexFields {
		key[i] = doc.Get(field)
	}
	return ScanPosition{Key: key, ID: doc.ID()}
}

// ComparePositions orders two positions by key values, then id.
func ComparePositions(a, b ScanPosition) int {
	n := len(a.Key)
	if len(b.Key) < n {
		n = len(b.Key)
	}
	for i := 0; i < n; i++ {
		if c := types.Compare(a.Key[i], b.Key[i]); c != 0 {
			return c
		}
	}
	if c := len(a.Key) - len(b.Key); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}
