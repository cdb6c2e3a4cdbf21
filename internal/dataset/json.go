package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FromJSON flattens a JSON document into a frame. An object becomes one row,
// an array of objects one row per element. Nested objects are flattened into
// dotted column names ("rates.EUR"); arrays are kept as JSON text.
func FromJSON(data []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var records []map[string]string
	switch v := doc.(type) {
	case map[string]any:
		rec := map[string]string{}
		flatten("", v, rec)
		records = append(records, rec)
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d: expected object, got %T", i, item)
			}
			rec := map[string]string{}
			flatten("", obj, rec)
			records = append(records, rec)
		}
	default:
		return nil, fmt.Errorf("expected object or array, got %T", doc)
	}

	seen := map[string]bool{}
	var cols []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	out := &Frame{Columns: cols, Rows: make([][]string, len(records))}
	for i, rec := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = rec[c]
		}
		out.Rows[i] = row
	}
	return out, nil
}

func flatten(prefix string, obj map[string]any, out map[string]string) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		case string:
			out[key] = val
		case json.Number:
			out[key] = val.String()
		case bool:
			if val {
				out[key] = "true"
			} else {
				out[key] = "false"
			}
		default:
			b, _ := json.Marshal(val)
			out[key] = string(b)
		}
	}
}
