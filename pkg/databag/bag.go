// Package databag provides key-value stores scoped either to one scenario
// attempt or to the whole suite.
//
// The per-attempt bag lives in memory and is discarded when the attempt ends.
// The global bag is backed by a JSON file and written through on every
// mutation, so values stored in it survive a process that dies mid-scenario.
package databag

import "sort"

// Bag is a key-value store.
type Bag interface {
	// Get returns the value stored under key.
	Get(key string) (interface{}, bool)

	// Set stores value under key.
	Set(key string, value interface{}) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all keys in sorted order.
	Keys() []string
}

// String returns the string stored under key.
func String(b Bag, key string) (string, bool) {
	v, ok := b.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the bool stored under key.
func Bool(b Bag, key string) (bool, bool) {
	v, ok := b.Get(key)
	if !ok {
		return false, false
	}
	x, ok := v.(bool)
	return x, ok
}

// Int returns the integer stored under key. Values decoded from JSON arrive
// as float64 and are converted.
func Int(b Bag, key string) (int, bool) {
	v, ok := b.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
