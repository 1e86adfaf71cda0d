// Package query flattens structured request parameters into the
// numbered-member key/value form used by query-style APIs.
//
// List-valued parameters are emitted as Label.N (1-based), nested
// structures as Label.N.Field. The output is deterministic for a given
// caller-supplied order regardless of map iteration order.
package query

import (
	"fmt"
	"net/url"
	"sort"
)

// Tree is a structured set of request parameters prior to wire
// serialization. Values must be one of:
//   - string: a scalar parameter
//   - []string: an ordered list, emitted as key.N
//   - []Tree: an ordered list of nested structures, emitted as key.N.Field
//
// Any other value type is a caller contract violation and fails
// serialization.
type Tree map[string]any

// BuildListParams adds one entry per item to params: key label.N with N
// assigned 1-based in item order. An empty item list adds nothing.
func BuildListParams(params map[string]string, items []string, label string) {
	for i, item := range items {
		params[fmt.Sprintf("%s.%d", label, i+1)] = item
	}
}

// BuildComplexListParams adds one entry per item field to params: key
// label.N.Field with N assigned 1-based in item order. Every item must
// have exactly len(fieldNames) fields; a mismatch fails before any
// entry is written.
func BuildComplexListParams(params map[string]string, items [][]string, label string, fieldNames []string) error {
	for i, item := range items {
		if len(item) != len(fieldNames) {
			return fmt.Errorf("query: item %d has %d fields, want %d", i+1, len(item), len(fieldNames))
		}
	}
	for i, item := range items {
		for j, name := range fieldNames {
			params[fmt.Sprintf("%s.%d.%s", label, i+1, name)] = item[j]
		}
	}
	return nil
}

// Flatten converts a Tree into the flat numbered-member form. Keys at
// each level are walked in sorted order so output values never depend
// on map iteration order.
func Flatten(t Tree) (map[string]string, error) {
	out := make(map[string]string, len(t))
	if err := flattenInto(out, "", t); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out map[string]string, prefix string, t Tree) error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := t[k].(type) {
		case string:
			out[key] = v
		case []string:
			BuildListParams(out, v, key)
		case []Tree:
			for i, sub := range v {
				if err := flattenInto(out, fmt.Sprintf("%s.%d", key, i+1), sub); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("query: unsupported value type %T for parameter %q", v, key)
		}
	}
	return nil
}

// Encode serializes flat parameters as a form-encoded wire body with
// keys in sorted order.
func Encode(params map[string]string) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
