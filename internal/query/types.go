package query

import (
	"fmt"
	"strings"

	"github.com/roach88/recordsim/internal/ir"
)

// Operator is a condition operator.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	GreaterThan
	GreaterEqual
	LessThan
	LessEqual
	In
	NotIn
	Like
	NotLike
	BeginsWith
	DoesNotBeginWith
	EndsWith
	DoesNotEndWith
	Between
	NotBetween
	Null
	NotNull

	operatorCount
)

// operatorNames are the FetchXML spellings.
var operatorNames = [...]string{
	Equal:            "eq",
	NotEqual:         "ne",
	GreaterThan:      "gt",
	GreaterEqual:     "ge",
	LessThan:         "lt",
	LessEqual:        "le",
	In:               "in",
	NotIn:            "not-in",
	Like:             "like",
	NotLike:          "not-like",
	BeginsWith:       "begins-with",
	DoesNotBeginWith: "not-begin-with",
	EndsWith:         "ends-with",
	DoesNotEndWith:   "not-end-with",
	Between:          "between",
	NotBetween:       "not-between",
	Null:             "null",
	NotNull:          "not-null",
}

func (o Operator) String() string {
	if o.Valid() {
		return operatorNames[o]
	}
	return fmt.Sprintf("operator(%d)", int(o))
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o >= 0 && o < operatorCount
}

// ParseOperator resolves a FetchXML operator name.
func ParseOperator(name string) (Operator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", name)
}

// arity returns the allowed operand count range; max -1 means unbounded.
func (o Operator) arity() (lo, hi int) {
	switch o {
	case Null, NotNull:
		return 0, 0
	case In, NotIn:
		return 0, -1
	case Between, NotBetween:
		return 2, 2
	default:
		return 1, 1
	}
}

// LogicalOperator combines the children of a Filter.
type LogicalOperator int

const (
	And LogicalOperator = iota
	Or
)

func (l LogicalOperator) String() string {
	if l == Or {
		return "or"
	}
	return "and"
}

// JoinKind selects how unmatched parent rows are handled.
type JoinKind int

const (
	// Inner drops parent rows with no match.
	Inner JoinKind = iota
	// LeftOuter keeps parent rows with no match; linked values are null.
	LeftOuter
)

func (k JoinKind) String() string {
	if k == LeftOuter {
		return "outer"
	}
	return "inner"
}

// Wildcard is the column marker meaning "all attributes".
const Wildcard = "*"

// ColumnSet selects the attributes to return.
type ColumnSet struct {
	All     bool
	Columns []string
}

// AllColumns selects every attribute.
func AllColumns() ColumnSet {
	return ColumnSet{All: true}
}

// Columns selects the named attributes. A "*" entry selects all.
func Columns(names ...string) ColumnSet {
	for _, n := range names {
		if n == Wildcard {
			return AllColumns()
		}
	}
	return ColumnSet{Columns: names}
}

// Empty reports whether no attribute is selected.
func (c ColumnSet) Empty() bool {
	return !c.All && len(c.Columns) == 0
}

// Condition is a leaf predicate on one attribute.
type Condition struct {
	// EntityAlias names the link the attribute belongs to; empty means the
	// entity the enclosing filter applies to.
	EntityAlias string
	Attribute   string
	Operator    Operator
	Values      []ir.Value
}

// NewCondition builds a condition on the current entity.
func NewCondition(attribute string, op Operator, values ...ir.Value) Condition {
	return Condition{Attribute: attribute, Operator: op, Values: values}
}

// Filter is an And/Or node over conditions and nested filters.
type Filter struct {
	Operator   LogicalOperator
	Conditions []Condition
	Filters    []Filter
}

// AllOf builds an And filter over conditions.
func AllOf(conds ...Condition) *Filter {
	return &Filter{Operator: And, Conditions: conds}
}

// AnyOf builds an Or filter over conditions.
func AnyOf(conds ...Condition) *Filter {
	return &Filter{Operator: Or, Conditions: conds}
}

// IsEmpty reports whether the filter has no children.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Conditions) == 0 && len(f.Filters) == 0)
}

// Link joins a related entity.
type Link struct {
	Entity string

	// From is the attribute on the linked entity, To the attribute on the
	// parent.
	From string
	To   string

	Kind     JoinKind
	Alias    string
	Columns  ColumnSet
	Criteria *Filter
	Links    []Link
}

// Order sorts results by one attribute.
type Order struct {
	EntityAlias string
	Attribute   string
	Descending  bool
}

// Paging restricts the returned page. Top <= 0 means no limit.
// A non-empty ContinuationToken overrides Skip.
type Paging struct {
	Skip              int
	Top               int
	ContinuationToken string
	ReturnTotalCount  bool
}

// Expression is a complete query over one base entity.
type Expression struct {
	Entity   string
	Columns  ColumnSet
	Criteria *Filter
	Links    []Link
	Orders   []Order
	Paging   Paging
	Distinct bool
}

// New creates an expression returning all columns of entity.
func New(entity string) *Expression {
	return &Expression{Entity: entity, Columns: AllColumns()}
}

// Where adds a condition to the top-level And filter.
func (e *Expression) Where(attribute string, op Operator, values ...ir.Value) *Expression {
	if e.Criteria == nil {
		e.Criteria = &Filter{Operator: And}
	}
	e.Criteria.Conditions = append(e.Criteria.Conditions, NewCondition(attribute, op, values...))
	return e
}

// Join appends a link and returns the expression.
func (e *Expression) Join(l Link) *Expression {
	e.Links = append(e.Links, l)
	return e
}

// OrderBy appends an ascending or descending order.
func (e *Expression) OrderBy(attribute string, descending bool) *Expression {
	e.Orders = append(e.Orders, Order{Attribute: attribute, Descending: descending})
	return e
}

// Result is the outcome of evaluating an expression.
type Result struct {
	Entity  string
	Records []*ir.Record

	// MoreRecords is true when rows remain after this page.
	MoreRecords bool

	// ContinuationToken resumes after this page; empty when none remain.
	ContinuationToken string

	// TotalCount is the number of rows before paging, or -1 when not
	// requested.
	TotalCount int
}
