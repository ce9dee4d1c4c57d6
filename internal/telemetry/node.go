package telemetry

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Node is a read-only view of a decoded JSON value. Navigating into a missing
// or mistyped field yields an absent Node rather than an error, so extraction
// code can chain lookups and decide on a default at the end.
type Node struct {
	value any
}

// NewNode wraps an already decoded JSON value
func NewNode(value any) Node {
	return Node{value: value}
}

// DecodeDocument decodes raw JSON into a Node
func DecodeDocument(data []byte) (Node, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return Node{}, err
	}
	return Node{value: value}, nil
}

// Raw returns the wrapped value
func (node Node) Raw() any {
	return node.value
}

// Present reports whether the node holds any value, including JSON null as absent
func (node Node) Present() bool {
	return node.value != nil
}

// Get walks nested object fields
func (node Node) Get(keys ...string) Node {
	current := node.value
	for _, key := range keys {
		object, ok := current.(map[string]any)
		if !ok {
			return Node{}
		}
		current = object[key]
	}
	return Node{value: current}
}

// Map returns the node as a JSON object
func (node Node) Map() (map[string]any, bool) {
	object, ok := node.value.(map[string]any)
	return object, ok
}

// List returns the node as a JSON array
func (node Node) List() ([]any, bool) {
	array, ok := node.value.([]any)
	return array, ok
}

// NonEmptyMap returns the node when it is an object with at least one field
func (node Node) NonEmptyMap() (Node, bool) {
	object, ok := node.value.(map[string]any)
	if !ok || len(object) == 0 {
		return Node{}, false
	}
	return node, true
}

// Keys returns the object field names in sorted order
func (node Node) Keys() []string {
	object, ok := node.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Elements returns array elements, or object values ordered by key
func (node Node) Elements() []Node {
	switch typed := node.value.(type) {
	case []any:
		elements := make([]Node, 0, len(typed))
		for _, element := range typed {
			elements = append(elements, Node{value: element})
		}
		return elements
	case map[string]any:
		keys := node.Keys()
		elements := make([]Node, 0, len(keys))
		for _, key := range keys {
			elements = append(elements, Node{value: typed[key]})
		}
		return elements
	}
	return nil
}

// Text returns a scalar rendered as a string. Numbers are formatted without
// trailing zeros; objects, arrays and null are not text.
func (node Node) Text() (string, bool) {
	switch typed := node.value.(type) {
	case string:
		return typed, true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case json.Number:
		return typed.String(), true
	case bool:
		return strconv.FormatBool(typed), true
	}
	return "", false
}

// NonEmptyText returns the text of the node when it is not blank
func (node Node) NonEmptyText() (string, bool) {
	text, ok := node.Text()
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// Float coerces numbers and numeric strings to float64
func (node Node) Float() (float64, bool) {
	var result float64
	switch typed := node.value.(type) {
	case float64:
		result = typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		result = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		result = parsed
	default:
		return 0, false
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, false
	}
	return result, true
}

// Int coerces the node to an integer, truncating fractional values
func (node Node) Int() (int64, bool) {
	value, ok := node.Float()
	if !ok {
		return 0, false
	}
	return int64(value), true
}

// TextOr returns the text of the node or fallback
func (node Node) TextOr(fallback string) string {
	return option[string](node.Text).or(fallback)
}

// FloatOr returns the float value of the node or fallback
func (node Node) FloatOr(fallback float64) float64 {
	return option[float64](node.Float).or(fallback)
}

// IntOr returns the integer value of the node or fallback
func (node Node) IntOr(fallback int64) int64 {
	return option[int64](node.Int).or(fallback)
}

// option is one extraction step that may or may not find a value
type option[T any] func() (T, bool)

// firstOf returns a step that yields the first candidate that finds a value
func firstOf[T any](candidates ...option[T]) option[T] {
	return func() (T, bool) {
		for _, candidate := range candidates {
			if value, ok := candidate(); ok {
				return value, true
			}
		}
		var zero T
		return zero, false
	}
}

// or runs the step and falls back to the given default
func (step option[T]) or(fallback T) T {
	if value, ok := step(); ok {
		return value
	}
	return fallback
}

// asInt narrows an int64 step to int
func asInt(step option[int64]) option[int] {
	return func() (int, bool) {
		value, ok := step()
		return int(value), ok
	}
}
