package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/query"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s%s %s depth=%d %s\n",
				ev.Seq, strings.Repeat("  ", max(ev.Depth-1, 0)), ev.Message, ev.Entity, ev.Depth, ev.Outcome)
		}
	}
	return buf.String()
}

// matches reports whether ev satisfies the optional filters of a.
func (a Assertion) matches(ev TraceEvent) bool {
	if ev.Message != a.Message {
		return false
	}
	if a.Entity != "" && ir.Key(ev.Entity) != ir.Key(a.Entity) {
		return false
	}
	if a.Depth != 0 && ev.Depth != a.Depth {
		return false
	}
	if a.Outcome != "" && ev.Outcome != a.Outcome {
		return false
	}
	return true
}

func (a Assertion) describe() string {
	var b strings.Builder
	b.WriteString(a.Message)
	if a.Entity != "" {
		fmt.Fprintf(&b, " on %s", a.Entity)
	}
	if a.Depth != 0 {
		fmt.Fprintf(&b, " at depth %d", a.Depth)
	}
	if a.Outcome != "" {
		fmt.Fprintf(&b, " with outcome %s", a.Outcome)
	}
	return b.String()
}

func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, ev := range trace {
		if assertion.matches(ev) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: assertion.describe(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrence of each message comes
// in the listed order. Intervening requests are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for _, ev := range trace {
		if _, seen := positions[ev.Message]; !seen {
			positions[ev.Message] = ev.Seq
		}
	}

	for _, msg := range assertion.Messages {
		if _, ok := positions[msg]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all messages present: %v", assertion.Messages),
				Actual:   fmt.Sprintf("missing message: %s", msg),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(assertion.Messages); i++ {
		prev, curr := assertion.Messages[i-1], assertion.Messages[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("messages in order: %v", assertion.Messages),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if assertion.matches(ev) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.describe()),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// selectRecords evaluates an equality filter built from where against the
// final state. Where keys are attribute names; values use the plain value
// encoding.
func selectRecords(src query.Source, entity string, where map[string]any) ([]*ir.Record, error) {
	q := query.New(entity)
	for _, name := range slices.Sorted(maps.Keys(where)) {
		v, err := ir.FromPlain(where[name])
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", name, err)
		}
		q.Where(name, query.Equal, v)
	}
	res, err := query.NewEvaluator(src).Evaluate(q)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func assertFinalState(src query.Source, assertion Assertion) error {
	records, err := selectRecords(src, assertion.Entity, assertion.Where)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	if len(records) != 1 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one %s where %s", assertion.Entity, describeValue(assertion.Where)),
			Actual:   fmt.Sprintf("%d records matched", len(records)),
		}
	}

	actual := ir.PlainRecord(records[0])
	for _, key := range slices.Sorted(maps.Keys(assertion.Expect)) {
		want := assertion.Expect[key]
		got, ok := actual[key]
		if !ok {
			got = nil
		}
		if !subset(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.Entity, key, describeValue(want)),
				Actual:   fmt.Sprintf("%s.%s = %s", assertion.Entity, key, describeValue(got)),
			}
		}
	}
	return nil
}

func assertRecordCount(src query.Source, assertion Assertion) error {
	records, err := selectRecords(src, assertion.Entity, assertion.Where)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records", assertion.Count, assertion.Entity),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// describeValue renders plain data as canonical JSON when possible.
func describeValue(x any) string {
	if b, err := ir.MarshalCanonical(x); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", x)
}

// EvaluateAssertions evaluates all assertions against the result and the
// final state. Variables in where and expect clauses are expanded first.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, src query.Source) []string {
	var errs []string
	v := vars(result.Vars)

	for i, assertion := range assertions {
		var err error
		if assertion, err = v.expandAssertion(assertion); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(src, assertion)
		case AssertRecordCount:
			err = assertRecordCount(src, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func (v vars) expandAssertion(a Assertion) (Assertion, error) {
	if a.Where != nil {
		w, err := v.expand(a.Where)
		if err != nil {
			return a, err
		}
		a.Where = w.(map[string]any)
	}
	if a.Expect != nil {
		e, err := v.expand(a.Expect)
		if err != nil {
			return a, err
		}
		a.Expect = e.(map[string]any)
	}
	return a, nil
}
