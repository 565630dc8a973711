package core

import (
	"bytes"
	"encoding/json"
)

// Row is one result row. It encodes as a JSON object whose keys follow the
// column order of the result set. Column names from driver metadata are not
// guaranteed unique: a repeated name keeps its first position and takes the
// last value.
type Row struct {
	keys   []string
	values []Value
}

// NewRow pairs columns with scanned driver values. Values beyond the last
// column are ignored.
func NewRow(columns []string, raw []interface{}) Row {
	r := Row{
		keys:   make([]string, 0, len(columns)),
		values: make([]Value, 0, len(columns)),
	}
	seen := make(map[string]int, len(columns))
	for i, col := range columns {
		if i >= len(raw) {
			break
		}
		v := FromDriver(raw[i])
		if at, ok := seen[col]; ok {
			r.values[at] = v
			continue
		}
		seen[col] = len(r.keys)
		r.keys = append(r.keys, col)
		r.values = append(r.values, v)
	}
	return r
}

// Keys returns the row's column names in encoding order.
func (r Row) Keys() []string { return r.keys }

func (r Row) Len() int { return len(r.keys) }

// Get returns the value stored under name.
func (r Row) Get(name string) (Value, bool) {
	for i, k := range r.keys {
		if k == name {
			return r.values[i], true
		}
	}
	return Value{}, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
