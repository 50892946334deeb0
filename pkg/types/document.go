package types

// System fields stamped onto every stored document. The store generates both
// on insert; neither is writable through patches.
const (
	// FieldID is the stable system-generated document id.
	FieldID = "_id"

	// FieldCreationTime is the implicit ordering key. Every index, declared
	// or not, ends with it, which makes index ordering total.
	FieldCreationTime = "_creationTime"
)

// Document is a schema-less field bag. Absent fields read as null.
type Document map[string]Value

// Get returns the value for a field, or null when absent.
func (d Document) Get(field string) Value {
	if v, ok := d[field]; ok {
		return v
	}
	return Null()
}

// ID returns the system id, or "" when the document has none yet.
func (d Document) ID() string {
	s, _ := d.Get(FieldID).AsString()
	return s
}

// CreationTime returns the implicit ordering key value.
func (d Document) CreationTime() float64 {
	n, _ := d.Get(FieldCreationTime).AsNumber()
	return n
}

// Clone returns a shallow copy. Values are immutable, so a shallow copy is
// safe to hand across the read path.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Project returns a copy restricted to the requested fields. System fields
// are always retained so callers can re-identify the document. A nil or
// empty selection returns the document unchanged.
func (d Document) Project(fields []string) Document {
	if len(fields) == 0 {
		return d
	}
	out := make(Document, len(fields)+2)
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	if v, ok := d[FieldID]; ok {
		out[FieldID] = v
	}
	if v, ok := d[FieldCreationTime]; ok {
		out[FieldCreationTime] = v
	}
	return out
}
