// Package jsonutil wraps github.com/go-json-experiment/json with the few
// entry points the pipeline needs.
package jsonutil

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal decodes exactly one JSON value from data into v. Trailing data
// after the value is an error.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalLenient is Unmarshal that tolerates duplicate object names and
// invalid UTF-8, both of which third-party tools occasionally emit.
func UnmarshalLenient(data []byte, v any) error {
	return json.Unmarshal(data, v,
		jsontext.AllowDuplicateNames(true),
		jsontext.AllowInvalidUTF8(true),
	)
}

// Marshal encodes v with map keys in sorted order so artifacts are stable
// between runs.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent is Marshal with two-space indentation.
func MarshalIndent(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent("  "))
}
