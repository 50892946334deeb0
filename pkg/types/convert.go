package types

import (
	"fmt"
	"time"
)

// FromGo converts a plain Go value into a tagged Value. Callers hand the
// adapter dynamically typed data (JSON-decoded payloads, auth-library
// structs flattened to maps); this is the single place that normalizes them.
// time.Time converts to Unix milliseconds, matching how the store orders
// timestamp fields.
func FromGo(value any) (Value, error) {
	switch v := value.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case time.Time:
		return Number(float64(v.UnixMilli())), nil
	case []Value:
		return List(v...), nil
	case []string:
		items := make([]Value, len(v))
		for i, s := range v {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(v))
		for i, raw := range v {
			item, err := FromGo(raw)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Value{kind: KindList, list: items}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", value)
	}
}

// ToGo converts a Value back to a plain Go value (nil, bool, float64,
// string, or []any).
func (v Value) ToGo() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.ToGo()
		}
		return items
	default:
		return nil
	}
}

// MapFromGo converts a field map of plain Go values into a Document.
func MapFromGo(fields map[string]any) (Document, error) {
	doc := make(Document, len(fields))
	for name, raw := range fields {
		value, err := FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		doc[name] = value
	}
	return doc, nil
}
