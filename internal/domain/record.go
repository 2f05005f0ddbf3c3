package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one result row from one source. Each source has its own column
// set, so a record is an ordered column-name -> value map; the engine only
// counts and stores records, it never interprets them. Column order is
// preserved through JSON so downstream export renders rows the way the
// source returned them.
type Record struct {
	cols []string
	vals map[string]any
}

func (r *Record) Set(col string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

func (r Record) Get(col string) (any, bool) {
	v, ok := r.vals[col]
	return v, ok
}

func (r Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

func (r Record) Len() int { return len(r.cols) }

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.vals[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	r.cols = nil
	r.vals = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		col := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record column %s: %w", col, err)
		}
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				v = f
			} else {
				v = n.String()
			}
		}
		r.Set(col, v)
	}
	// consume closing brace
	_, err = dec.Token()
	return err
}
