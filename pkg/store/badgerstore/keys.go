// Package badgerstore implements the DocumentStore on Badger, maintaining
// one order-preserving composite key per declared index so range scans are
// plain prefix iterations.
package badgerstore

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/theory-cloud/authdb/pkg/types"
)

// Key layout:
//
//	d: <table> 0x00 <id>                          -> document JSON
//	i: <table> 0x00 <index> 0x00 <enc keys> <id>  -> id
//
// Encoded key components preserve the Value ordering byte-wise: kind tags
// order null < bool < number < string < list, numbers use the monotone
// float64 transform, strings use 0x00-escaped termination so prefixes sort
// first.
const (
	tagNull   = 0x01
	tagBool   = 0x02
	tagNumber = 0x03
	tagString = 0x04
	tagList   = 0x05
)

var (
	docPrefix   = []byte("d:")
	indexPrefix = []byte("i:")
)

func docKey(table, id string) []byte {
	key := make([]byte, 0, len(docPrefix)+len(table)+1+len(id))
	key = append(key, docPrefix...)
	key = append(key, table...)
	key = append(key, 0x00)
	key = append(key, id...)
	return key
}

func docTablePrefix(table string) []byte {
	key := append([]byte{}, docPrefix...)
	key = append(key, table...)
	return append(key, 0x00)
}

// parseDocKey extracts the table name from a document key.
func parseDocKey(key []byte) (table string, ok bool) {
	if !bytes.HasPrefix(key, docPrefix) {
		return "", false
	}
	rest := key[len(docPrefix):]
	sep := bytes.IndexByte(rest, 0x00)
	if sep < 0 {
		return "", false
	}
	return string(rest[:sep]), true
}

func indexKeyPrefix(table, index string) []byte {
	key := make([]byte, 0, len(indexPrefix)+len(table)+len(index)+2)
	key = append(key, indexPrefix...)
	key = append(key, table...)
	key = append(key, 0x00)
	key = append(key, index...)
	return append(key, 0x00)
}

// indexEntryKey builds the full index entry key for a document.
func indexEntryKey(table, index string, fields []string, doc types.Document) []byte {
	key := indexKeyPrefix(table, index)
	for _, field := range fields {
		key = encodeValue(key, doc.Get(field))
	}
	return append(key, doc.ID()...)
}

// encodeValue appends the order-preserving encoding of v.
func encodeValue(dst []byte, v types.Value) []byte {
	switch v.Kind() {
	case types.KindBool:
		b, _ := v.AsBool()
		if b {
			return append(dst, tagBool, 0x01)
		}
		return append(dst, tagBool, 0x00)
	case types.KindNumber:
		n, _ := v.AsNumber()
		return encodeNumber(dst, n)
	case types.KindString:
		s, _ := v.AsString()
		return encodeString(dst, s)
	case types.KindList:
		items, _ := v.AsList()
		dst = append(dst, tagList)
		for _, item := range items {
			dst = encodeValue(dst, item)
		}
		// List terminator sorts before any element tag, so a prefix list
		// orders first.
		return append(dst, 0x00)
	default:
		return append(dst, tagNull)
	}
}

// encodeNumber applies the standard monotone transform: flip all bits for
// negatives, set the sign bit for non-negatives.
func encodeNumber(dst []byte, n float64) []byte {
	bits := math.Float64bits(n)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	dst = append(dst, tagNumber)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return append(dst, buf[:]...)
}

// encodeString escapes 0x00 as {0x00 0xFF} and terminates with {0x00 0x01},
// keeping byte order aligned with string order.
func encodeString(dst []byte, s string) []byte {
	dst = append(dst, tagString)
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			dst = append(dst, 0x00, 0xFF)
			continue
		}
		dst = append(dst, s[i])
	}
	return append(dst, 0x00, 0x01)
}

// prefixSuccessor returns the smallest key strictly greater than every key
// with the given prefix.
func prefixSuccessor(prefix []byte) []byte {
	out := append([]byte{}, prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	// All 0xFF: no successor; scan to the end of the keyspace.
	return nil
}
