package query

import (
	"log/slog"
	"slices"

	"github.com/roach88/recordsim/internal/ir"
)

// Source is the record view the evaluator reads. *store.Store satisfies it.
type Source interface {
	Enumerate(logicalName string) []*ir.Record
	PrimaryID(logicalName string) string
}

// Evaluator runs expressions against a Source.
// It is not safe for concurrent use with writers of the Source.
type Evaluator struct {
	source Source
	schema Schema
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithSchema enables attribute validation and lets all-column outer links
// fill unmatched rows with the registered attributes.
func WithSchema(s Schema) EvaluatorOption {
	return func(e *Evaluator) {
		e.schema = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// NewEvaluator creates an evaluator over source.
func NewEvaluator(source Source, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// row is one candidate result: a base record plus the records joined under
// each alias. A nil linked record marks an unmatched outer join.
type row struct {
	base   *ir.Record
	linked map[string]*ir.Record
}

func (r row) record(alias string) *ir.Record {
	if alias == "" {
		return r.base
	}
	return r.linked[ir.Key(alias)]
}

func (r row) value(alias, attribute string) ir.Value {
	rec := r.record(alias)
	if rec == nil {
		return ir.Null{}
	}
	return rec.Value(attribute)
}

func (r row) with(alias string, rec *ir.Record) row {
	linked := make(map[string]*ir.Record, len(r.linked)+1)
	for k, v := range r.linked {
		linked[k] = v
	}
	linked[ir.Key(alias)] = rec
	return row{base: r.base, linked: linked}
}

// Evaluate validates and runs expr.
func (e *Evaluator) Evaluate(expr *Expression) (*Result, error) {
	if err := Validate(expr, e.schema); err != nil {
		return nil, err
	}
	x := expr.normalized()
	m := newMatcher()

	base := e.source.Enumerate(x.Entity)
	rows := make([]row, len(base))
	for i, rec := range base {
		rows[i] = row{base: rec}
	}

	for _, l := range x.Links {
		rows = e.expand(rows, "", l, m)
	}

	if !x.Criteria.IsEmpty() {
		kept := rows[:0]
		for _, r := range rows {
			if evalFilter(x.Criteria, r, "", m) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	if len(x.Orders) > 0 {
		slices.SortStableFunc(rows, func(a, b row) int {
			return compareRows(a, b, x.Orders)
		})
	}

	records := make([]*ir.Record, 0, len(rows))
	var seen map[string]bool
	if x.Distinct {
		seen = make(map[string]bool, len(rows))
	}
	for _, r := range rows {
		rec := e.project(x, r)
		if seen != nil {
			if d, err := ir.RecordDigest(rec); err == nil {
				if seen[d] {
					continue
				}
				seen[d] = true
			}
		}
		records = append(records, rec)
	}

	start, end, token := page(len(records), x.Paging)
	res := &Result{
		Entity:            x.Entity,
		Records:           records[start:end],
		MoreRecords:       end < len(records),
		ContinuationToken: token,
		TotalCount:        -1,
	}
	if x.Paging.ReturnTotalCount {
		res.TotalCount = len(records)
	}
	e.logger.Debug("query evaluated",
		"entity", x.Entity,
		"matched", len(records),
		"returned", len(res.Records),
		"more", res.MoreRecords)
	return res, nil
}

// expand joins link l onto rows. parent is the alias of the record that
// holds l.To ("" for the base entity).
func (e *Evaluator) expand(rows []row, parent string, l Link, m *matcher) []row {
	var inner []*ir.Record
	for _, rec := range e.source.Enumerate(l.Entity) {
		if l.Criteria.IsEmpty() || evalFilter(l.Criteria, row{base: rec}.with(l.Alias, rec), "", m) {
			inner = append(inner, rec)
		}
	}

	out := make([]row, 0, len(rows))
	for _, r := range rows {
		matched := false
		if p := r.record(parent); p != nil {
			key := p.Value(l.To)
			for _, rec := range inner {
				if ir.Equal(rec.Value(l.From), key) {
					out = append(out, r.with(l.Alias, rec))
					matched = true
				}
			}
		}
		if !matched && l.Kind == LeftOuter {
			out = append(out, r.with(l.Alias, nil))
		}
	}

	for _, nested := range l.Links {
		out = e.expand(out, l.Alias, nested, m)
	}
	return out
}

// evalFilter evaluates f depth-first. Conditions without an alias read from
// scope. An empty filter is true.
func evalFilter(f *Filter, r row, scope string, m *matcher) bool {
	if f.IsEmpty() {
		return true
	}
	if f.Operator == Or {
		for _, c := range f.Conditions {
			if evalCondition(c, r, scope, m) {
				return true
			}
		}
		for i := range f.Filters {
			if evalFilter(&f.Filters[i], r, scope, m) {
				return true
			}
		}
		return false
	}
	for _, c := range f.Conditions {
		if !evalCondition(c, r, scope, m) {
			return false
		}
	}
	for i := range f.Filters {
		if !evalFilter(&f.Filters[i], r, scope, m) {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, r row, scope string, m *matcher) bool {
	alias := c.EntityAlias
	if alias == "" {
		alias = scope
	}
	return m.match(c.Operator, r.value(alias, c.Attribute), c.Values)
}

// compareRows orders two rows. Nulls sort before values; incomparable
// values tie so the stable sort keeps store order.
func compareRows(a, b row, orders []Order) int {
	for _, o := range orders {
		va, vb := a.value(o.EntityAlias, o.Attribute), b.value(o.EntityAlias, o.Attribute)
		var c int
		switch na, nb := ir.IsNull(va), ir.IsNull(vb); {
		case na && nb:
			c = 0
		case na:
			c = -1
		case nb:
			c = 1
		default:
			c, _ = ir.Compare(va, vb)
		}
		if o.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// project builds the output record for a row. The primary id is always
// included; link columns are added as alias.attribute Aliased values.
func (e *Evaluator) project(x *Expression, r row) *ir.Record {
	var out *ir.Record
	if x.Columns.All {
		out = r.base.Clone()
	} else {
		names := append([]string{e.source.PrimaryID(x.Entity)}, x.Columns.Columns...)
		out = r.base.Project(names)
		if r.base.Formatted != nil {
			out.Formatted = make(map[string]string)
			for _, n := range out.Names() {
				if f, ok := r.base.Formatted[n]; ok {
					out.Formatted[n] = f
				}
			}
		}
	}
	for _, l := range x.Links {
		e.projectLink(out, r, l)
	}
	return out
}

func (e *Evaluator) projectLink(out *ir.Record, r row, l Link) {
	rec := r.record(l.Alias)
	var names []string
	switch {
	case l.Columns.All && rec != nil:
		names = rec.Names()
	case l.Columns.All && e.schema != nil:
		if md, err := e.schema.Get(l.Entity); err == nil {
			names = md.AttributeNames()
		}
	default:
		names = l.Columns.Columns
	}
	for _, n := range names {
		var v ir.Value = ir.Null{}
		if rec != nil {
			v = rec.Value(n)
		}
		out.Set(l.Alias+"."+n, ir.Aliased{
			EntityLogicalName: l.Entity,
			AttributeName:     n,
			Value:             v,
		})
	}
	for _, nested := range l.Links {
		e.projectLink(out, r, nested)
	}
}
