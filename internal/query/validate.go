package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
)

// Schema is the metadata view the query package needs. *metadata.Repository
// satisfies it.
type Schema interface {
	Has(logicalName string) bool
	AttributeExists(logicalName, attribute string) bool
	Get(logicalName string) (metadata.EntityMetadata, error)
}

// Validate reports structural errors in expr as a single InvalidQuery fault:
//   - missing entity or link attributes
//   - duplicate aliases
//   - unknown operators and wrong operand counts
//   - conditions or orders referring to unknown aliases
//   - unknown attributes, when schema is non-nil and the entity is registered
//   - negative paging values and malformed continuation tokens
//
// Validate is a pure function; expr is not modified.
func Validate(expr *Expression, schema Schema) error {
	if expr == nil {
		return fault.NewInvalidQuery("query is nil")
	}
	x := expr.normalized()
	v := &validator{schema: schema, aliases: map[string]string{}}
	v.validate(x)
	if len(v.problems) == 0 {
		return nil
	}
	f := fault.NewInvalidQuery("%s", strings.Join(v.problems, "; "))
	f.With("entity", expr.Entity).With("problems", strconv.Itoa(len(v.problems)))
	return f
}

// validator accumulates problems during traversal.
type validator struct {
	schema   Schema
	aliases  map[string]string // folded alias -> entity
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(x *Expression) {
	if x.Entity == "" {
		v.addProblem("entity name is required")
		return
	}

	// Aliases are collected first so conditions may reference links declared
	// after them.
	v.collectAliases(x.Links)

	v.checkColumns(x.Entity, x.Columns, "")
	v.checkFilter(x.Criteria, x.Entity, "", true)
	for _, l := range x.Links {
		v.checkLink(l, x.Entity)
	}
	for _, o := range x.Orders {
		entity := x.Entity
		if o.EntityAlias != "" {
			e, ok := v.aliases[ir.Key(o.EntityAlias)]
			if !ok {
				v.addProblem("order references unknown alias %q", o.EntityAlias)
				continue
			}
			entity = e
		}
		if o.Attribute == "" {
			v.addProblem("order attribute is required")
			continue
		}
		v.checkAttribute(entity, o.Attribute, "order")
	}

	p := x.Paging
	if p.Skip < 0 {
		v.addProblem("skip must not be negative, got %d", p.Skip)
	}
	if p.Top < 0 {
		v.addProblem("top must not be negative, got %d", p.Top)
	}
	if p.ContinuationToken != "" {
		if _, err := decodeToken(p.ContinuationToken); err != nil {
			v.addProblem("%v", err)
		}
	}
}

func (v *validator) collectAliases(links []Link) {
	for _, l := range links {
		k := ir.Key(l.Alias)
		if _, dup := v.aliases[k]; dup {
			v.addProblem("duplicate alias %q", l.Alias)
		} else {
			v.aliases[k] = l.Entity
		}
		v.collectAliases(l.Links)
	}
}

func (v *validator) checkLink(l Link, parent string) {
	if l.Entity == "" {
		v.addProblem("link %q: entity name is required", l.Alias)
		return
	}
	if l.From == "" || l.To == "" {
		v.addProblem("link %q: from and to attributes are required", l.Alias)
	} else {
		v.checkAttribute(l.Entity, l.From, "link "+l.Alias+" from")
		v.checkAttribute(parent, l.To, "link "+l.Alias+" to")
	}
	if l.Kind != Inner && l.Kind != LeftOuter {
		v.addProblem("link %q: unknown join kind %d", l.Alias, int(l.Kind))
	}
	v.checkColumns(l.Entity, l.Columns, l.Alias)
	v.checkFilter(l.Criteria, l.Entity, l.Alias, false)
	for _, nested := range l.Links {
		v.checkLink(nested, l.Entity)
	}
}

// checkFilter validates a filter tree. At the top level a condition may name
// any alias; inside a link it may only name the link itself.
func (v *validator) checkFilter(f *Filter, entity, scope string, topLevel bool) {
	if f == nil {
		return
	}
	if f.Operator != And && f.Operator != Or {
		v.addProblem("unknown filter operator %d", int(f.Operator))
	}
	for _, c := range f.Conditions {
		target := entity
		if c.EntityAlias != "" && ir.Key(c.EntityAlias) != ir.Key(scope) {
			e, ok := v.aliases[ir.Key(c.EntityAlias)]
			switch {
			case !ok:
				v.addProblem("condition on %s references unknown alias %q", c.Attribute, c.EntityAlias)
				continue
			case !topLevel:
				v.addProblem("condition in link %q cannot reference alias %q", scope, c.EntityAlias)
				continue
			}
			target = e
		}
		v.checkCondition(c, target)
	}
	for i := range f.Filters {
		v.checkFilter(&f.Filters[i], entity, scope, topLevel)
	}
}

func (v *validator) checkCondition(c Condition, entity string) {
	if c.Attribute == "" {
		v.addProblem("condition attribute is required")
		return
	}
	if !c.Operator.Valid() {
		v.addProblem("condition on %s: unknown operator %d", c.Attribute, int(c.Operator))
		return
	}
	lo, hi := c.Operator.arity()
	n := len(c.Values)
	if n < lo || (hi >= 0 && n > hi) {
		if lo == hi {
			v.addProblem("condition on %s: operator %s takes %d value(s), got %d", c.Attribute, c.Operator, lo, n)
		} else {
			v.addProblem("condition on %s: operator %s takes at least %d value(s), got %d", c.Attribute, c.Operator, lo, n)
		}
	}
	v.checkAttribute(entity, c.Attribute, "condition")
}

func (v *validator) checkColumns(entity string, cs ColumnSet, alias string) {
	if cs.All {
		return
	}
	for _, col := range cs.Columns {
		where := "column"
		if alias != "" {
			where = "column of " + alias
		}
		v.checkAttribute(entity, col, where)
	}
}

func (v *validator) checkAttribute(entity, attribute, where string) {
	if v.schema == nil || !v.schema.Has(entity) {
		return
	}
	if !v.schema.AttributeExists(entity, attribute) {
		v.addProblem("%s: unknown attribute %s.%s", where, entity, attribute)
	}
}

// normalized returns a copy with default aliases assigned and dotted
// "alias.attribute" names split into EntityAlias and Attribute.
func (e *Expression) normalized() *Expression {
	x := *e
	used := map[string]bool{}
	collectExplicit(e.Links, used)
	counters := map[string]int{}
	x.Links = normalizeLinks(e.Links, used, counters)
	x.Criteria = normalizeFilter(e.Criteria)
	x.Orders = make([]Order, len(e.Orders))
	for i, o := range e.Orders {
		if o.EntityAlias == "" {
			o.EntityAlias, o.Attribute = splitDotted(o.Attribute)
		}
		x.Orders[i] = o
	}
	return &x
}

func collectExplicit(links []Link, used map[string]bool) {
	for _, l := range links {
		if l.Alias != "" {
			used[ir.Key(l.Alias)] = true
		}
		collectExplicit(l.Links, used)
	}
}

func normalizeLinks(links []Link, used map[string]bool, counters map[string]int) []Link {
	if links == nil {
		return nil
	}
	out := make([]Link, len(links))
	for i, l := range links {
		if l.Alias == "" {
			l.Alias = defaultAlias(l.Entity, used, counters)
		}
		l.Criteria = normalizeFilter(l.Criteria)
		l.Links = normalizeLinks(l.Links, used, counters)
		out[i] = l
	}
	return out
}

// defaultAlias returns "<entity><n>" with n counting links to that entity,
// skipping names already taken by explicit aliases.
func defaultAlias(entity string, used map[string]bool, counters map[string]int) string {
	for {
		counters[ir.Key(entity)]++
		alias := entity + strconv.Itoa(counters[ir.Key(entity)])
		if !used[ir.Key(alias)] {
			used[ir.Key(alias)] = true
			return alias
		}
	}
}

func normalizeFilter(f *Filter) *Filter {
	if f == nil {
		return nil
	}
	out := &Filter{Operator: f.Operator}
	out.Conditions = make([]Condition, len(f.Conditions))
	for i, c := range f.Conditions {
		if c.EntityAlias == "" {
			c.EntityAlias, c.Attribute = splitDotted(c.Attribute)
		}
		out.Conditions[i] = c
	}
	out.Filters = make([]Filter, len(f.Filters))
	for i := range f.Filters {
		out.Filters[i] = *normalizeFilter(&f.Filters[i])
	}
	return out
}

func splitDotted(name string) (alias, attribute string) {
	if i := strings.IndexByte(name, '.'); i > 0 && i < len(name)-1 {
		return name[:i], name[i+1:]
	}
	return "", name
}
