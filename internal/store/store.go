// Package store persists the router's settings as string key/value pairs.
//
// Structured values are JSON-encoded by the caller or through the typed
// helpers in this package. Two implementations are provided: Memory for tests
// and ephemeral runs, and SQLite for durable settings.
package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Store is a synchronous key/value settings store. A write is visible to
// every subsequent read in the same process.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set creates or replaces the value for key.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// List returns every key/value pair whose key starts with prefix.
	List(prefix string) (map[string]string, error)
}

// Compile-time verification of implementations.
var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)

// GetBool reads a boolean written by SetBool. Missing or unparsable values
// return def.
func GetBool(s Store, key string, def bool) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return def, err
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}

	return v, nil
}

// SetBool stores a boolean.
func SetBool(s Store, key string, v bool) error {
	return s.Set(key, strconv.FormatBool(v))
}

// GetInt reads an integer written by SetInt. Missing or unparsable values
// return def.
func GetInt(s Store, key string, def int64) (int64, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return def, err
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, nil
	}

	return v, nil
}

// SetInt stores an integer.
func SetInt(s Store, key string, v int64) error {
	return s.Set(key, strconv.FormatInt(v, 10))
}

// GetJSON decodes the value for key into out. It reports false when the key
// is missing; a value that does not decode is an error.
func GetJSON(s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}

	return true, nil
}

// SetJSON stores v JSON-encoded.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	return s.Set(key, string(data))
}
