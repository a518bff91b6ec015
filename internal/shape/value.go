package shape

import "time"

// Value is the generic in-memory representation the codec encodes from
// and decodes into: a service package's generated accessors translate to
// and from typed Go structs, but the codec itself only ever sees Values,
// so it needs no reflection over generated types.
//
// A Value holds exactly one of: nil, string, int64, float64, bool, []byte
// (blob), time.Time (timestamp), []Value (list), map[string]Value
// (structure/map), or Document (arbitrary JSON per spec §4.3).
type Value = interface{}

// Document is the arbitrary-JSON type of spec §4.3: "string | int | double
// | bool | array<Document> | map<string,Document> | null".
type Document = interface{}

// Values is the member-label-keyed bag passed to the codec for one shape
// instance.
type Values map[string]Value

// String reads a string member, returning "" if absent or not a string.
func (v Values) String(label string) string {
	s, _ := v[label].(string)
	return s
}

// Int64 reads an integer/long member.
func (v Values) Int64(label string) (int64, bool) {
	switch n := v[label].(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Time reads a timestamp member.
func (v Values) Time(label string) (time.Time, bool) {
	t, ok := v[label].(time.Time)
	return t, ok
}

// List reads a list member.
func (v Values) List(label string) ([]Value, bool) {
	l, ok := v[label].([]Value)
	return l, ok
}

// Map reads a nested structure/map member.
func (v Values) Map(label string) (Values, bool) {
	m, ok := v[label].(Values)
	return m, ok
}
