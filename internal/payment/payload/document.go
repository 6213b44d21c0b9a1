package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var ErrNotObject = errors.New("payload_not_object")

// Document is a decoded JSON object. Numbers are kept as json.Number so
// provider ids such as {"id": 555} round-trip without float formatting.
type Document map[string]any

// Parse decodes body into a Document. The top-level value must be an object.
func Parse(body []byte) (Document, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return Document(doc), nil
}

// Lookup walks path through nested objects. Numeric segments index arrays.
func (d Document) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(d)
	for _, segment := range path {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

// String returns the scalar at path as a trimmed string, or "".
func (d Document) String(path ...string) string {
	value, ok := d.Lookup(path...)
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

// FirstString returns the first non-empty value among the dotted paths.
func (d Document) FirstString(paths ...string) string {
	for _, path := range paths {
		if value := d.String(strings.Split(path, ".")...); value != "" {
			return value
		}
	}
	return ""
}

func (d Document) Has(path ...string) bool {
	_, ok := d.Lookup(path...)
	return ok
}
