package telemetry

import "strings"

// KeyPath identifies a counter. The source format stores keys either as a
// single string or as a list of strings; both are normalized to a KeyPath
// when counters are parsed.
type KeyPath []string

// Path builds a KeyPath from its elements
func Path(elements ...string) KeyPath {
	return KeyPath(elements)
}

// Equal reports element-wise, order-sensitive equality
func (keyPath KeyPath) Equal(other KeyPath) bool {
	if len(keyPath) != len(other) {
		return false
	}
	for index := range keyPath {
		if keyPath[index] != other[index] {
			return false
		}
	}
	return true
}

// String renders the path for logs
func (keyPath KeyPath) String() string {
	return strings.Join(keyPath, ".")
}

// CounterEntry is one {Key, Value} record of a counters list. The value is
// kept undecoded and coerced on lookup.
type CounterEntry struct {
	Key   KeyPath
	Value Node
}

// keyPathFromNode normalizes a scalar key or a key list into a KeyPath
func keyPathFromNode(node Node) (KeyPath, bool) {
	if text, ok := node.Text(); ok {
		return KeyPath{text}, true
	}
	elements, ok := node.List()
	if !ok || len(elements) == 0 {
		return nil, false
	}
	keyPath := make(KeyPath, 0, len(elements))
	for _, element := range elements {
		text, ok := NewNode(element).Text()
		if !ok {
			return nil, false
		}
		keyPath = append(keyPath, text)
	}
	return keyPath, true
}

// ParseCounters reads a counters list such as SessionCounters.Items.
// Entries that are not objects or carry no usable key are dropped; input
// order is preserved.
func ParseCounters(items Node) []CounterEntry {
	var entries []CounterEntry
	for _, element := range items.Elements() {
		if _, ok := element.Map(); !ok {
			continue
		}
		keyPath, ok := keyPathFromNode(element.Get("Key"))
		if !ok {
			continue
		}
		entries = append(entries, CounterEntry{Key: keyPath, Value: element.Get("Value")})
	}
	return entries
}

// LookupCounter finds the value stored under keyPath. When several entries
// share the key the last one wins. A matching entry whose value cannot be
// coerced to an integer counts as not found.
func LookupCounter(entries []CounterEntry, keyPath KeyPath) (int64, bool) {
	for index := len(entries) - 1; index >= 0; index-- {
		if entries[index].Key.Equal(keyPath) {
			return entries[index].Value.Int()
		}
	}
	return 0, false
}

// CounterValue returns the counter under keyPath or fallback
func CounterValue(entries []CounterEntry, keyPath KeyPath, fallback int64) int64 {
	if value, ok := LookupCounter(entries, keyPath); ok {
		return value
	}
	return fallback
}

// counter returns a lookup step over the first of several key shapes
func counter(entries []CounterEntry, keyPaths ...KeyPath) option[int64] {
	steps := make([]option[int64], 0, len(keyPaths))
	for _, keyPath := range keyPaths {
		steps = append(steps, func() (int64, bool) {
			return LookupCounter(entries, keyPath)
		})
	}
	return firstOf(steps...)
}
