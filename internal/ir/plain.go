package ir

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Marker keys used by the plain (JSON/YAML) encoding of values that have no
// native JSON form. Scalars encode as themselves.
const (
	MarkerRef     = "$ref"
	MarkerRefs    = "$refs"
	MarkerOption  = "$option"
	MarkerMoney   = "$money"
	MarkerDate    = "$date"
	MarkerGUID    = "$guid"
	MarkerFloat   = "$float"
	MarkerAliased = "$aliased"
)

// Plain converts a value into plain Go data (nil, string, int64, float64,
// bool, []any, map[string]any) suitable for JSON/YAML encoding.
func Plain(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case DateTime:
		return map[string]any{MarkerDate: val.Time.UTC().Format(time.RFC3339Nano)}
	case GUID:
		return map[string]any{MarkerGUID: val.String()}
	case OptionSetValue:
		return map[string]any{MarkerOption: int64(val)}
	case Money:
		return map[string]any{MarkerMoney: float64(val)}
	case Reference:
		return map[string]any{MarkerRef: plainReference(val)}
	case ReferenceCollection:
		refs := make([]any, len(val))
		for i, r := range val {
			refs[i] = plainReference(r)
		}
		return map[string]any{MarkerRefs: refs}
	case Aliased:
		return map[string]any{MarkerAliased: map[string]any{
			"entity":    val.EntityLogicalName,
			"attribute": val.AttributeName,
			"value":     Plain(val.Value),
		}}
	default:
		return fmt.Sprintf("%v", v)
	}
}

func plainReference(r Reference) map[string]any {
	m := map[string]any{
		"entity": r.LogicalName,
		"id":     r.ID.String(),
	}
	if r.Name != "" {
		m["name"] = r.Name
	}
	return m
}

// PlainRecord converts a record into a map keyed by attribute name.
// The record id is emitted under "$id" and the logical name under "$entity".
func PlainRecord(r *Record) map[string]any {
	out := make(map[string]any, r.Len()+2)
	out["$entity"] = r.LogicalName
	out["$id"] = r.ID.String()
	for _, a := range r.Attributes() {
		out[a.Name] = Plain(a.Value)
	}
	return out
}

// FromPlain is the inverse of Plain. It accepts the scalar types produced by
// JSON and YAML decoders as well as the marker maps documented above.
func FromPlain(v any) (Value, error) {
	switch val := v.(type) {
	case map[string]any:
		return fromMarker(val)
	case []any:
		return nil, fmt.Errorf("bare lists are not values; use %s for reference collections", MarkerRefs)
	default:
		return ValueOf(v)
	}
}

func fromMarker(m map[string]any) (Value, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("value map must have exactly one marker key, got %d keys", len(m))
	}
	for key, raw := range m {
		switch key {
		case MarkerRef:
			ref, err := referenceFromPlain(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerRef, err)
			}
			return ref, nil
		case MarkerRefs:
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("%s: expected list, got %T", MarkerRefs, raw)
			}
			refs := make(ReferenceCollection, 0, len(list))
			for i, item := range list {
				ref, err := referenceFromPlain(item)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", MarkerRefs, i, err)
				}
				refs = append(refs, ref)
			}
			return refs, nil
		case MarkerOption:
			n, err := toInt64(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerOption, err)
			}
			return OptionSetValue(n), nil
		case MarkerMoney:
			f, err := toFloat64(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerMoney, err)
			}
			return Money(f), nil
		case MarkerFloat:
			f, err := toFloat64(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerFloat, err)
			}
			return Float(f), nil
		case MarkerDate:
			switch d := raw.(type) {
			case time.Time:
				return NewDateTime(d), nil
			case string:
				t, err := time.Parse(time.RFC3339Nano, d)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", MarkerDate, err)
				}
				return NewDateTime(t), nil
			default:
				return nil, fmt.Errorf("%s: expected string, got %T", MarkerDate, raw)
			}
		case MarkerGUID:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s: expected string, got %T", MarkerGUID, raw)
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerGUID, err)
			}
			return GUID(id), nil
		default:
			return nil, fmt.Errorf("unknown value marker %q", key)
		}
	}
	return nil, fmt.Errorf("empty value map")
}

func referenceFromPlain(raw any) (Reference, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Reference{}, fmt.Errorf("expected map, got %T", raw)
	}
	entity, _ := m["entity"].(string)
	if entity == "" {
		return Reference{}, fmt.Errorf("entity is required")
	}
	idStr, _ := m["id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Reference{}, fmt.Errorf("id: %w", err)
	}
	name, _ := m["name"].(string)
	return Reference{LogicalName: entity, ID: id, Name: name}, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("expected whole number, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
