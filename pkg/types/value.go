// Package types provides the tagged value representation shared by documents,
// filters, and index keys.
//
// The underlying store is schema-less: a field holds a null, boolean, number,
// string, or list. Values carry an explicit kind tag so type-specific
// operators (contains, starts_with) can check the kind before applying, and
// so ordering is total and deterministic across kinds.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable tagged scalar or list.
// The zero Value is null.
type Value struct {
	list []Value
	str  string
	num  float64
	kind Kind
	b    bool
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List returns a list Value holding the given items.
func List(items ...Value) Value {
	copied := make([]Value, len(items))
	copy(copied, items)
	return Value{kind: KindList, list: copied}
}

// Kind returns the value's kind tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsList returns the list payload and whether the value is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindList:
		out := "["
		for i, item := range v.list {
			if i > 0 {
				out += ", "
			}
			out += item.String()
		}
		return out + "]"
	default:
		return "invalid"
	}
}

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool { return Compare(v, o) == 0 }

// Compare orders two values. Kinds order null < bool < number < string <
// list; within a kind the natural ordering applies (false < true, numeric,
// lexicographic, element-wise). An absent field is represented as null, so
// absent sorts before any present value.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindNumber:
		return compareFloat(a.num, b.num)
	case KindString:
		switch {
		case a.str == b.str:
			return 0
		case a.str < b.str:
			return -1
		default:
			return 1
		}
	case KindList:
		n := len(a.list)
		if len(b.list) < n {
			n = len(b.list)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.list[i], b.list[i]); c != 0 {
				return c
			}
		}
		return len(a.list) - len(b.list)
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	// NaN sorts before every other number so ordering stays total.
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// jsonValue is the tagged wire form used for cursors and stored documents.
type jsonValue struct {
	Null *bool       `json:"null,omitempty"`
	B    *bool       `json:"b,omitempty"`
	N    *float64    `json:"n,omitempty"`
	S    *string     `json:"s,omitempty"`
	L    []jsonValue `json:"l,omitempty"`
	IsL  bool        `json:"isl,omitempty"`
}

// MarshalJSON encodes the value in its tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON())
}

func (v Value) toJSON() jsonValue {
	switch v.kind {
	case KindBool:
		b := v.b
		return jsonValue{B: &b}
	case KindNumber:
		n := v.num
		return jsonValue{N: &n}
	case KindString:
		s := v.str
		return jsonValue{S: &s}
	case KindList:
		items := make([]jsonValue, len(v.list))
		for i, item := range v.list {
			items[i] = item.toJSON()
		}
		return jsonValue{L: items, IsL: true}
	default:
		t := true
		return jsonValue{Null: &t}
	}
}

// UnmarshalJSON decodes the tagged wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw jsonValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := raw.toValue()
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func (j jsonValue) toValue() (Value, error) {
	switch {
	case j.B != nil:
		return Bool(*j.B), nil
	case j.N != nil:
		return Number(*j.N), nil
	case j.S != nil:
		return String(*j.S), nil
	case j.IsL || j.L != nil:
		items := make([]Value, len(j.L))
		for i, raw := range j.L {
			item, err := raw.toValue()
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Value{kind: KindList, list: items}, nil
	case j.Null != nil:
		return Null(), nil
	default:
		return Null(), nil
	}
}
