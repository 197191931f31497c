package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the three shapes a record field can take.
type ValueKind int

const (
	KindText ValueKind = iota
	KindList
	KindObject
)

// Value is a tagged union over the field shapes that appear in recovered
// records: free text, a list of values, or a nested object. Modeling fields
// this way keeps the merge rules exhaustive instead of duck-typing an
// untyped map.
type Value struct {
	Kind   ValueKind
	Text   string
	List   []Value
	Object map[string]Value
}

// TextValue wraps a string as a text value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// ListValue wraps a slice as a list value.
func ListValue(items []Value) Value {
	return Value{Kind: KindList, List: items}
}

// ObjectValue wraps a mapping as an object value.
func ObjectValue(fields map[string]Value) Value {
	return Value{Kind: KindObject, Object: fields}
}

// FromJSON converts a decoded JSON value (as produced by json.Unmarshal into
// any) into a Value. Scalars become text; null becomes empty text.
func FromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return TextValue("")
	case string:
		return TextValue(t)
	case bool:
		return TextValue(strconv.FormatBool(t))
	case float64:
		return TextValue(strconv.FormatFloat(t, 'f', -1, 64))
	case json.Number:
		return TextValue(t.String())
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromJSON(item))
		}
		return ListValue(items)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = FromJSON(item)
		}
		return ObjectValue(fields)
	default:
		return TextValue("")
	}
}

// FieldsFromJSON converts a decoded top-level JSON object into a field map.
func FieldsFromJSON(m map[string]any) map[string]Value {
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = FromJSON(v)
	}
	return fields
}

// IsEmpty reports whether the value carries no content: blank text, an empty
// list, or an object with no entries.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	case KindList:
		return len(v.List) == 0
	case KindObject:
		return len(v.Object) == 0
	}
	return true
}

// Equal reports deep equality between two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Object) != len(o.Object) {
			return false
		}
		for k, item := range v.Object {
			other, ok := o.Object[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value back to plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindObject:
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Object)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON parses plain JSON into the union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromJSON(raw)
	return nil
}

// SortedKeys returns the keys of a field map in lexicographic order, for
// deterministic iteration where output order matters.
func SortedKeys(fields map[string]Value) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
