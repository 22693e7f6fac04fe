package harness

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/query"
)

// MarkerRecord wraps a record parameter: {$record: {entity, id, attributes}}.
const MarkerRecord = "$record"

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// vars maps variable names bound by save to record ids.
type vars map[string]string

// expand substitutes ${name} in every string of a decoded YAML value.
func (v vars) expand(x any) (any, error) {
	switch val := x.(type) {
	case string:
		var missing string
		out := varPattern.ReplaceAllStringFunc(val, func(m string) string {
			name := varPattern.FindStringSubmatch(m)[1]
			s, ok := v[name]
			if !ok && missing == "" {
				missing = name
			}
			return s
		})
		if missing != "" {
			return nil, fmt.Errorf("undefined variable %q", missing)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			e, err := v.expand(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = e
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			e, err := v.expand(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	default:
		return x, nil
	}
}

// toParameter converts an expanded YAML value into a request parameter:
//   - {$record: ...} becomes *ir.Record
//   - other maps are value markers ($ref, $option, $money, ...)
//   - a list of strings becomes []string (column sets, member ids)
//   - scalars pass through unchanged
func toParameter(x any) (any, error) {
	switch val := x.(type) {
	case map[string]any:
		if raw, ok := val[MarkerRecord]; ok && len(val) == 1 {
			spec, err := recordSpecFrom(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", MarkerRecord, err)
			}
			return spec.build()
		}
		return ir.FromPlain(val)
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list parameters must hold strings, got %T at [%d]", item, i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return x, nil
	}
}

func recordSpecFrom(raw any) (RecordSpec, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return RecordSpec{}, fmt.Errorf("expected map, got %T", raw)
	}
	var spec RecordSpec
	spec.Entity, _ = m["entity"].(string)
	spec.ID, _ = m["id"].(string)
	if attrs, ok := m["attributes"]; ok {
		spec.Attributes, ok = attrs.(map[string]any)
		if !ok {
			return RecordSpec{}, fmt.Errorf("attributes: expected map, got %T", attrs)
		}
	}
	if spec.Entity == "" {
		return RecordSpec{}, fmt.Errorf("entity is required")
	}
	return spec, nil
}

// build converts s into a record. Attributes are set in name order.
func (s RecordSpec) build() (*ir.Record, error) {
	id := uuid.Nil
	if s.ID != "" {
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("record %s: id: %w", s.Entity, err)
		}
		id = parsed
	}
	rec := ir.NewRecord(s.Entity, id)
	if err := setAttributes(rec, s.Attributes); err != nil {
		return nil, fmt.Errorf("record %s: %w", s.Entity, err)
	}
	return rec, nil
}

func setAttributes(rec *ir.Record, attrs map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		v, err := ir.FromPlain(attrs[name])
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		rec.Set(name, v)
	}
	return nil
}

// expandSpec substitutes variables in a record spec.
func (v vars) expandSpec(s RecordSpec) (RecordSpec, error) {
	id, err := v.expand(s.ID)
	if err != nil {
		return RecordSpec{}, err
	}
	attrs, err := v.expand(map[string]any(s.Attributes))
	if err != nil {
		return RecordSpec{}, err
	}
	s.ID = id.(string)
	s.Attributes = attrs.(map[string]any)
	return s, nil
}

// plainResult converts a response value into plain data for comparison.
func plainResult(x any) any {
	switch val := x.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return val.String()
	case *ir.Record:
		if val == nil {
			return nil
		}
		return ir.PlainRecord(val)
	case ir.Value:
		return ir.Plain(val)
	case *query.Result:
		if val == nil {
			return nil
		}
		records := make([]any, len(val.Records))
		for i, r := range val.Records {
			records[i] = ir.PlainRecord(r)
		}
		return map[string]any{
			"entity":       val.Entity,
			"records":      records,
			"more_records": val.MoreRecords,
			"total_count":  int64(val.TotalCount),
		}
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []uuid.UUID:
		out := make([]any, len(val))
		for i, id := range val {
			out[i] = id.String()
		}
		return out
	case int:
		return int64(val)
	default:
		return x
	}
}

// subset reports whether expected is contained in actual. Maps match when
// every expected key matches; lists must match element-wise; numbers
// compare by value.
func subset(expected, actual any) bool {
	switch e := expected.(type) {
	case nil:
		return actual == nil
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !subset(ev, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !subset(e[i], a[i]) {
				return false
			}
		}
		return true
	}
	if ef, ok := number(expected); ok {
		af, ok := number(actual)
		return ok && ef == af
	}
	return expected == actual
}

func number(x any) (float64, bool) {
	switch n := x.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
