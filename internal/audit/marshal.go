package audit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/recordsim/internal/ir"
)

// encodeValue is ir.Plain with floats tagged, so a whole Float does not
// come back as an Int.
func encodeValue(v ir.Value) any {
	if f, ok := v.(ir.Float); ok {
		return map[string]any{ir.MarkerFloat: float64(f)}
	}
	return ir.Plain(v)
}

func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(encodeValue(v))
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

func unmarshalValue(s string) (ir.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	v, err := ir.FromPlain(numbers(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// numbers replaces json.Number with int64 or float64.
func numbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, elem := range val {
			val[k] = numbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = numbers(elem)
		}
		return val
	default:
		return v
	}
}
