package badgerstore

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/authdb/pkg/types"
)

func TestEncodeValuePreservesOrder(t *testing.T) {
	// Byte order of encoded keys must match types.Compare.
	ordered := []types.Value{
		types.Null(),
		types.Bool(false),
		types.Bool(true),
		types.Number(math.Inf(-1)),
		types.Number(-1000),
		types.Number(-0.5),
		types.Number(0),
		types.Number(0.5),
		types.Number(1000),
		types.Number(math.Inf(1)),
		types.String(""),
		types.String("a"),
		types.String("a\x00b"),
		types.String("ab"),
		types.String("b"),
		types.List(),
		types.List(types.Number(1)),
		types.List(types.Number(1), types.Number(2)),
		types.List(types.Number(2)),
	}

	encoded := make([][]byte, len(ordered))
	for i, v := range ordered {
		encoded[i] = encodeValue(nil, v)
	}
	for i := 0; i < len(encoded)-1; i++ {
		assert.Negative(t, bytes.Compare(encoded[i], encoded[i+1]),
			"%s must encode below %s", ordered[i], ordered[i+1])
	}
}

func TestEncodeValueOrderRandomizedNumbers(t *testing.T) {
	nums := []float64{3, -7, 0, 1.25, -1.25, 1e18, -1e18, 42}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	keys := make([][]byte, len(sorted))
	for i, n := range sorted {
		keys[i] = encodeNumber(nil, n)
	}
	assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	}))
}

func TestStringEscapingKeepsPrefixesFirst(t *testing.T) {
	// "a" must sort before "a\x00" despite the embedded zero byte.
	a := encodeString(nil, "a")
	aZero := encodeString(nil, "a\x00")
	aB := encodeString(nil, "ab")
	assert.Negative(t, bytes.Compare(a, aZero))
	assert.Negative(t, bytes.Compare(aZero, aB))
}

func TestDocKeyRoundTrip(t *testing.T) {
	key := docKey("session", "doc-1")
	table, ok := parseDocKey(key)
	require.True(t, ok)
	assert.Equal(t, "session", table)

	_, ok = parseDocKey([]byte("i:whatever"))
	assert.False(t, ok)
}

func TestPrefixSuccessor(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x03}, prefixSuccessor([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x02}, prefixSuccessor([]byte{0x01, 0xFF}))
	assert.Nil(t, prefixSuccessor([]byte{0xFF, 0xFF}))
}

func TestIndexEntryKeyUsesDocumentID(t *testing.T) {
	doc := types.Document{
		types.FieldID:           types.String("d1"),
		types.FieldCreationTime: types.Number(5),
		"userId":                types.String("u1"),
	}
	key := indexEntryKey("session", "by_user_id", []string{"userId", types.FieldCreationTime}, doc)
	assert.True(t, bytes.HasPrefix(key, indexKeyPrefix("session", "by_user_id")))
	assert.True(t, bytes.HasSuffix(key, []byte("d1")))
}
