package weclapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// FormatValue renders a filter value as query parameter text.
//
// Supported values are strings, booleans, nil, integers, floats and
// time.Time (rendered as epoch milliseconds, the weclapp timestamp format).
// A fmt.Stringer renders through String. Anything else is rendered as JSON.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := marshalLiteral(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return data
	}
}

// jsonArray renders values as a JSON array, preserving order and duplicates.
// A single slice or array argument contributes its elements, so
// WhereIn("id", ids) and WhereIn("id", 1, 2, 3) render the same.
func jsonArray(values []any) string {
	values = spread(values)
	normalized := make([]any, len(values))

	for i, value := range values {
		if t, ok := value.(time.Time); ok {
			normalized[i] = t.UnixMilli()

			continue
		}

		normalized[i] = value
	}

	data, err := marshalLiteral(normalized)
	if err != nil {
		return "[]"
	}

	return data
}

func spread(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}

	if _, ok := values[0].(json.RawMessage); ok {
		return values
	}

	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}

	elements := make([]any, rv.Len())
	for i := range elements {
		elements[i] = rv.Index(i).Interface()
	}

	return elements
}

// marshalLiteral encodes v as JSON without HTML escaping, so "a&b" stays
// "a&b" on the wire.
func marshalLiteral(v any) (string, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(v)
	if err != nil {
		return "", err
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
