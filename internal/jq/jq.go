// Package jq evaluates jq expressions against decoded response data.
package jq

import (
	"context"
	"fmt"

	"github.com/itchyny/gojq"
)

// Apply runs a jq expression against data. An empty expression returns
// the data unchanged. A single result is returned directly; multiple
// results come back as a slice.
func Apply(ctx context.Context, expression string, data any) (any, error) {
	if expression == "" {
		return data, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	var results []any
	iter := code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Validate compiles a jq expression to catch syntax errors early.
func Validate(expression string) error {
	if expression == "" {
		return nil
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if _, err := gojq.Compile(query); err != nil {
		return fmt.Errorf("compile error: %w", err)
	}
	return nil
}
