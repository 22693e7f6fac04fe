package fetchxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/query"
)

// Schema types condition values. *metadata.Repository satisfies it.
type Schema interface {
	Attribute(logicalName, attribute string) (metadata.AttributeMetadata, error)
}

// Option configures Parse.
type Option func(*parser)

// WithSchema types condition values by attribute metadata.
func WithSchema(s Schema) Option {
	return func(p *parser) {
		p.schema = s
	}
}

type fetchNode struct {
	XMLName    xml.Name    `xml:"fetch"`
	Top        string      `xml:"top,attr"`
	Count      string      `xml:"count,attr"`
	Page       string      `xml:"page,attr"`
	TotalCount string      `xml:"returntotalrecordcount,attr"`
	Distinct   string      `xml:"distinct,attr"`
	Entity     *entityNode `xml:"entity"`
}

type entityNode struct {
	Name          string          `xml:"name,attr"`
	Attributes    []attributeNode `xml:"attribute"`
	AllAttributes *struct{}       `xml:"all-attributes"`
	Orders        []orderNode     `xml:"order"`
	Filters       []filterNode    `xml:"filter"`
	Links         []linkNode      `xml:"link-entity"`
}

type linkNode struct {
	entityNode
	From     string `xml:"from,attr"`
	To       string `xml:"to,attr"`
	Alias    string `xml:"alias,attr"`
	LinkType string `xml:"link-type,attr"`
}

type attributeNode struct {
	Name string `xml:"name,attr"`
}

type orderNode struct {
	Attribute  string `xml:"attribute,attr"`
	Alias      string `xml:"entityname,attr"`
	Descending string `xml:"descending,attr"`
}

type filterNode struct {
	Type       string          `xml:"type,attr"`
	Conditions []conditionNode `xml:"condition"`
	Filters    []filterNode    `xml:"filter"`
}

type conditionNode struct {
	Attribute  string   `xml:"attribute,attr"`
	Operator   string   `xml:"operator,attr"`
	Value      *string  `xml:"value,attr"`
	EntityName string   `xml:"entityname,attr"`
	Values     []string `xml:"value"`
}

type parser struct {
	schema  Schema
	aliases map[string]string // folded alias -> entity
}

// Parse converts a FetchXML document into a query expression.
// Malformed documents and unsupported constructs return an InvalidQuery
// fault.
func Parse(doc string, opts ...Option) (*query.Expression, error) {
	p := &parser{aliases: map[string]string{}}
	for _, opt := range opts {
		opt(p)
	}

	var root fetchNode
	dec := xml.NewDecoder(strings.NewReader(doc))
	if err := dec.Decode(&root); err != nil {
		return nil, invalid("decode: %v", err)
	}
	if root.Entity == nil {
		return nil, invalid("fetch has no entity element")
	}
	if root.Entity.Name == "" {
		return nil, invalid("entity name is required")
	}

	expr := &query.Expression{Entity: root.Entity.Name}
	if err := p.paging(&root, expr); err != nil {
		return nil, err
	}

	p.collectAliases(root.Entity.Links)

	expr.Columns = columns(root.Entity)
	for _, o := range root.Entity.Orders {
		ord, err := parseOrder(o, "")
		if err != nil {
			return nil, err
		}
		expr.Orders = append(expr.Orders, ord)
	}

	crit, err := p.filters(root.Entity.Filters, root.Entity.Name)
	if err != nil {
		return nil, err
	}
	expr.Criteria = crit

	for _, ln := range root.Entity.Links {
		l, orders, err := p.link(ln)
		if err != nil {
			return nil, err
		}
		expr.Links = append(expr.Links, l)
		expr.Orders = append(expr.Orders, orders...)
	}
	return expr, nil
}

func invalid(format string, args ...any) *fault.Fault {
	return fault.NewInvalidQuery("fetchxml: "+format, args...)
}

func (p *parser) paging(root *fetchNode, expr *query.Expression) error {
	top, err := optionalInt("top", root.Top)
	if err != nil {
		return err
	}
	count, err := optionalInt("count", root.Count)
	if err != nil {
		return err
	}
	page, err := optionalInt("page", root.Page)
	if err != nil {
		return err
	}
	if top > 0 && (count > 0 || page > 0) {
		return invalid("top cannot be combined with count or page")
	}
	if page > 0 && count == 0 {
		return invalid("page requires count")
	}

	expr.Paging.Top = top
	if count > 0 {
		expr.Paging.Top = count
		if page > 1 {
			expr.Paging.Skip = (page - 1) * count
		}
	}

	if expr.Paging.ReturnTotalCount, err = optionalBool("returntotalrecordcount", root.TotalCount); err != nil {
		return err
	}
	if expr.Distinct, err = optionalBool("distinct", root.Distinct); err != nil {
		return err
	}
	return nil
}

func (p *parser) collectAliases(links []linkNode) {
	for _, l := range links {
		if l.Alias != "" {
			p.aliases[ir.Key(l.Alias)] = l.Name
		}
		p.collectAliases(l.Links)
	}
}

func columns(e *entityNode) query.ColumnSet {
	if e.AllAttributes != nil {
		return query.AllColumns()
	}
	names := make([]string, 0, len(e.Attributes))
	for _, a := range e.Attributes {
		names = append(names, a.Name)
	}
	return query.Columns(names...)
}

// link converts a link-entity. Orders declared inside it are returned
// separately because the expression keeps a single order list.
func (p *parser) link(n linkNode) (query.Link, []query.Order, error) {
	if n.Name == "" {
		return query.Link{}, nil, invalid("link-entity name is required")
	}
	l := query.Link{
		Entity:  n.Name,
		From:    n.From,
		To:      n.To,
		Alias:   n.Alias,
		Columns: columns(&n.entityNode),
	}

	switch strings.ToLower(n.LinkType) {
	case "", "inner":
		l.Kind = query.Inner
	case "outer":
		l.Kind = query.LeftOuter
	default:
		return query.Link{}, nil, invalid("link-entity %s: unsupported link-type %q", n.Name, n.LinkType)
	}

	crit, err := p.filters(n.Filters, n.Name)
	if err != nil {
		return query.Link{}, nil, err
	}
	l.Criteria = crit

	var orders []query.Order
	for _, o := range n.Orders {
		if n.Alias == "" {
			return query.Link{}, nil, invalid("link-entity %s: order requires an alias", n.Name)
		}
		ord, err := parseOrder(o, n.Alias)
		if err != nil {
			return query.Link{}, nil, err
		}
		orders = append(orders, ord)
	}

	for _, nested := range n.Links {
		child, childOrders, err := p.link(nested)
		if err != nil {
			return query.Link{}, nil, err
		}
		l.Links = append(l.Links, child)
		orders = append(orders, childOrders...)
	}
	return l, orders, nil
}

func parseOrder(o orderNode, alias string) (query.Order, error) {
	if o.Attribute == "" {
		return query.Order{}, invalid("order attribute is required")
	}
	desc, err := optionalBool("descending", o.Descending)
	if err != nil {
		return query.Order{}, err
	}
	if o.Alias != "" {
		alias = o.Alias
	}
	return query.Order{EntityAlias: alias, Attribute: o.Attribute, Descending: desc}, nil
}

// filters combines the filter elements of one entity. Several sibling
// filters are joined with and.
func (p *parser) filters(nodes []filterNode, entity string) (*query.Filter, error) {
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return p.filter(nodes[0], entity)
	}
	out := &query.Filter{Operator: query.And}
	for _, n := range nodes {
		f, err := p.filter(n, entity)
		if err != nil {
			return nil, err
		}
		out.Filters = append(out.Filters, *f)
	}
	return out, nil
}

func (p *parser) filter(n filterNode, entity string) (*query.Filter, error) {
	f := &query.Filter{}
	switch strings.ToLower(n.Type) {
	case "", "and":
		f.Operator = query.And
	case "or":
		f.Operator = query.Or
	default:
		return nil, invalid("unknown filter type %q", n.Type)
	}
	for _, c := range n.Conditions {
		cond, err := p.condition(c, entity)
		if err != nil {
			return nil, err
		}
		f.Conditions = append(f.Conditions, cond)
	}
	for _, child := range n.Filters {
		nested, err := p.filter(child, entity)
		if err != nil {
			return nil, err
		}
		f.Filters = append(f.Filters, *nested)
	}
	return f, nil
}

func (p *parser) condition(n conditionNode, entity string) (query.Condition, error) {
	if n.Attribute == "" {
		return query.Condition{}, invalid("condition attribute is required")
	}
	op, err := query.ParseOperator(n.Operator)
	if err != nil {
		return query.Condition{}, invalid("condition on %s: %v", n.Attribute, err)
	}

	target := entity
	if n.EntityName != "" {
		if e, ok := p.aliases[ir.Key(n.EntityName)]; ok {
			target = e
		}
	}

	raw := n.Values
	if n.Value != nil {
		raw = append([]string{*n.Value}, raw...)
	}
	values := make([]ir.Value, 0, len(raw))
	for _, s := range raw {
		v, err := p.value(target, n.Attribute, op, strings.TrimSpace(s))
		if err != nil {
			return query.Condition{}, invalid("condition on %s: %v", n.Attribute, err)
		}
		values = append(values, v)
	}
	return query.Condition{
		EntityAlias: n.EntityName,
		Attribute:   n.Attribute,
		Operator:    op,
		Values:      values,
	}, nil
}

// value types one condition operand.
func (p *parser) value(entity, attribute string, op query.Operator, s string) (ir.Value, error) {
	if textOperator(op) {
		return ir.String(s), nil
	}
	if p.schema != nil {
		if md, err := p.schema.Attribute(entity, attribute); err == nil {
			return typed(md.Type, s)
		}
	}
	return infer(s), nil
}

func textOperator(op query.Operator) bool {
	switch op {
	case query.Like, query.NotLike, query.BeginsWith, query.DoesNotBeginWith, query.EndsWith, query.DoesNotEndWith:
		return true
	}
	return false
}

func typed(t metadata.AttributeType, s string) (ir.Value, error) {
	switch t {
	case metadata.TypeInteger, metadata.TypeBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return ir.Int(n), nil
	case metadata.TypeDecimal, metadata.TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return ir.Float(f), nil
	case metadata.TypeMoney:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return ir.Money(f), nil
	case metadata.TypeBoolean:
		switch strings.ToLower(s) {
		case "1", "true":
			return ir.Bool(true), nil
		case "0", "false":
			return ir.Bool(false), nil
		}
		return nil, fmt.Errorf("%q is not a boolean", s)
	case metadata.TypeDateTime:
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		return ir.NewDateTime(t), nil
	case metadata.TypePicklist, metadata.TypeState, metadata.TypeStatus:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not an option value", s)
		}
		return ir.OptionSetValue(n), nil
	case metadata.TypeUniqueIdentifier, metadata.TypeLookup, metadata.TypeCustomer, metadata.TypeOwner, metadata.TypePartyList:
		id, err := parseGUID(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a guid", s)
		}
		return ir.GUID(id), nil
	default:
		return ir.String(s), nil
	}
}

// infer guesses the kind of an untyped operand: guid, integer, float,
// boolean, then string.
func infer(s string) ir.Value {
	if id, err := parseGUID(s); err == nil {
		return ir.GUID(id)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.Int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ir.Float(f)
	}
	switch s {
	case "true":
		return ir.Bool(true)
	case "false":
		return ir.Bool(false)
	}
	return ir.String(s)
}

func parseGUID(s string) (uuid.UUID, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("invalid guid length %d", len(s))
	}
	return uuid.Parse(s)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date", s)
}

func optionalInt(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, invalid("%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

func optionalBool(name, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return false, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, invalid("%s must be true or false, got %q", name, s)
}
