package query

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/store"
	"github.com/roach88/recordsim/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	store    *store.Store
	eval     *Evaluator
	accounts map[string]uuid.UUID
	contacts map[string]uuid.UUID
}

// newFixture seeds three accounts and four contacts:
//
//	Contoso (Oslo, 100)   <- Ann, Bob
//	Fabrikam (Bergen, 50) <- Cid
//	Northwind (no city)   <- nobody
//	Dee has no parent account
func newFixture(t *testing.T, opts ...EvaluatorOption) *fixture {
	t.Helper()
	s := store.New(store.WithIDs(testutil.NewSequentialIDs()), store.WithLogger(discard))
	f := &fixture{store: s, accounts: map[string]uuid.UUID{}, contacts: map[string]uuid.UUID{}}

	seedAccount := func(name string, city ir.Value, revenue ir.Value) {
		rec := ir.NewRecord("account", uuid.Nil).Set("name", ir.String(name))
		if city != nil {
			rec.Set("address1_city", city)
		}
		if revenue != nil {
			rec.Set("revenue", revenue)
		}
		id, err := s.Seed(rec)
		require.NoError(t, err)
		f.accounts[name] = id
	}
	seedAccount("Contoso", ir.String("Oslo"), ir.Money(100))
	seedAccount("Fabrikam", ir.String("Bergen"), ir.Money(50))
	seedAccount("Northwind", nil, ir.Money(75))

	seedContact := func(first string, parent string, age int) {
		rec := ir.NewRecord("contact", uuid.Nil).Set("firstname", ir.String(first)).Set("age", ir.Int(age))
		if parent != "" {
			rec.Set("parentcustomerid", ir.NewReference("account", f.accounts[parent]))
		}
		id, err := s.Seed(rec)
		require.NoError(t, err)
		f.contacts[first] = id
	}
	seedContact("Ann", "Contoso", 30)
	seedContact("Bob", "Contoso", 40)
	seedContact("Cid", "Fabrikam", 25)
	seedContact("Dee", "", 50)

	f.eval = NewEvaluator(s, append([]EvaluatorOption{WithLogger(discard)}, opts...)...)
	return f
}

func names(t *testing.T, res *Result, attr string) []string {
	t.Helper()
	out := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		v := ir.Unwrap(r.Value(attr))
		if ir.IsNull(v) {
			out = append(out, "<null>")
			continue
		}
		s, ok := v.(ir.String)
		require.True(t, ok, "attribute %s is %T", attr, v)
		out = append(out, string(s))
	}
	return out
}

func TestEvaluateAllRecordsInStoreOrder(t *testing.T) {
	f := newFixture(t)
	res, err := f.eval.Evaluate(New("account"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso", "Fabrikam", "Northwind"}, names(t, res, "name"))
	assert.Equal(t, -1, res.TotalCount)
	assert.False(t, res.MoreRecords)
	assert.Empty(t, res.ContinuationToken)
}

func TestEvaluateInOperator(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		op     Operator
		values []ir.Value
		want   []string
	}{
		{"in matches listed", In, []ir.Value{ir.String("Oslo"), ir.String("Bergen")}, []string{"Contoso", "Fabrikam"}},
		{"in is case sensitive", In, []ir.Value{ir.String("oslo")}, []string{}},
		{"empty in is false", In, nil, []string{}},
		{"not in excludes listed and nulls", NotIn, []ir.Value{ir.String("Oslo")}, []string{"Fabrikam"}},
		{"empty not in is true", NotIn, nil, []string{"Contoso", "Fabrikam", "Northwind"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.eval.Evaluate(New("account").Where("address1_city", tt.op, tt.values...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, res, "name"))
		})
	}
}

func TestEvaluateInUnwrapsReferences(t *testing.T) {
	f := newFixture(t)
	res, err := f.eval.Evaluate(New("contact").Where("parentcustomerid", In,
		ir.GUID(f.accounts["Fabrikam"]), ir.NewReference("account", f.accounts["Northwind"])))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cid"}, names(t, res, "firstname"))
}

func TestEvaluateComparisonOperators(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cond Condition
		want []string
	}{
		{"eq", NewCondition("firstname", Equal, ir.String("Bob")), []string{"Bob"}},
		{"eq case sensitive", NewCondition("firstname", Equal, ir.String("bob")), []string{}},
		{"ne skips nothing here", NewCondition("firstname", NotEqual, ir.String("Bob")), []string{"Ann", "Cid", "Dee"}},
		{"gt", NewCondition("age", GreaterThan, ir.Int(30)), []string{"Bob", "Dee"}},
		{"ge", NewCondition("age", GreaterEqual, ir.Int(30)), []string{"Ann", "Bob", "Dee"}},
		{"lt float operand", NewCondition("age", LessThan, ir.Float(30.5)), []string{"Ann", "Cid"}},
		{"le", NewCondition("age", LessEqual, ir.Int(25)), []string{"Cid"}},
		{"between", NewCondition("age", Between, ir.Int(30), ir.Int(40)), []string{"Ann", "Bob"}},
		{"not between", NewCondition("age", NotBetween, ir.Int(30), ir.Int(40)), []string{"Cid", "Dee"}},
		{"null", NewCondition("parentcustomerid", Null), []string{"Dee"}},
		{"not null", NewCondition("parentcustomerid", NotNull), []string{"Ann", "Bob", "Cid"}},
		{"absent attribute is null", NewCondition("nickname", Null), []string{"Ann", "Bob", "Cid", "Dee"}},
		{"like folds case", NewCondition("firstname", Like, ir.String("a%")), []string{"Ann"}},
		{"like single char", NewCondition("firstname", Like, ir.String("_o_")), []string{"Bob"}},
		{"like class", NewCondition("firstname", Like, ir.String("[ab]%")), []string{"Ann", "Bob"}},
		{"not like", NewCondition("firstname", NotLike, ir.String("%e%")), []string{"Ann", "Bob", "Cid"}},
		{"begins with", NewCondition("firstname", BeginsWith, ir.String("C")), []string{"Cid"}},
		{"not begin with", NewCondition("firstname", DoesNotBeginWith, ir.String("c")), []string{"Ann", "Bob", "Dee"}},
		{"ends with", NewCondition("firstname", EndsWith, ir.String("N")), []string{"Ann"}},
		{"not end with", NewCondition("firstname", DoesNotEndWith, ir.String("n")), []string{"Bob", "Cid", "Dee"}},
		{"attribute name case insensitive", NewCondition("FirstName", Equal, ir.String("Ann")), []string{"Ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := New("contact")
			expr.Criteria = AllOf(tt.cond)
			res, err := f.eval.Evaluate(expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(t, res, "firstname"))
		})
	}
}

func TestEvaluateNestedFilters(t *testing.T) {
	f := newFixture(t)
	// age < 30 OR (age >= 40 AND firstname begins with B)
	expr := New("contact")
	expr.Criteria = &Filter{
		Operator:   Or,
		Conditions: []Condition{NewCondition("age", LessThan, ir.Int(30))},
		Filters: []Filter{*AllOf(
			NewCondition("age", GreaterEqual, ir.Int(40)),
			NewCondition("firstname", BeginsWith, ir.String("B")),
		)},
	}
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Cid"}, names(t, res, "firstname"))
}

func TestEvaluateInnerJoin(t *testing.T) {
	f := newFixture(t)
	expr := New("contact").Join(Link{
		Entity:  "account",
		From:    "accountid",
		To:      "parentcustomerid",
		Kind:    Inner,
		Alias:   "acc",
		Columns: Columns("name"),
	})
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, names(t, res, "firstname"), "contact without parent is dropped")
	assert.Equal(t, []string{"Contoso", "Contoso", "Fabrikam"}, names(t, res, "acc.name"))

	aliased, ok := res.Records[0].Value("acc.name").(ir.Aliased)
	require.True(t, ok)
	assert.Equal(t, "account", aliased.EntityLogicalName)
	assert.Equal(t, "name", aliased.AttributeName)
}

func TestEvaluateInnerJoinWithNoMatchesRemovesRow(t *testing.T) {
	f := newFixture(t)
	expr := New("account").Join(Link{
		Entity: "contact",
		From:   "parentcustomerid",
		To:     "accountid",
		Kind:   Inner,
		Alias:  "c",
	})
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso", "Contoso", "Fabrikam"}, names(t, res, "name"), "one row per match; Northwind dropped")
}

func TestEvaluateLeftOuterJoin(t *testing.T) {
	f := newFixture(t)
	expr := New("account").Join(Link{
		Entity:  "contact",
		From:    "parentcustomerid",
		To:      "accountid",
		Kind:    LeftOuter,
		Alias:   "c",
		Columns: Columns("firstname"),
	})
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso", "Contoso", "Fabrikam", "Northwind"}, names(t, res, "name"))
	assert.Equal(t, []string{"Ann", "Bob", "Cid", "<null>"}, names(t, res, "c.firstname"))
	assert.True(t, res.Records[3].Has("c.firstname"), "unmatched requested column is present as null")
}

func TestEvaluateOuterJoinAntiJoin(t *testing.T) {
	f := newFixture(t)
	expr := New("account").Join(Link{
		Entity: "contact",
		From:   "parentcustomerid",
		To:     "accountid",
		Kind:   LeftOuter,
		Alias:  "c",
	})
	expr.Criteria = AllOf(Condition{EntityAlias: "c", Attribute: "contactid", Operator: Null})
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Northwind"}, names(t, res, "name"))
}

func TestEvaluateLinkCriteriaAndDottedCondition(t *testing.T) {
	f := newFixture(t)
	expr := New("contact").Join(Link{
		Entity:   "account",
		From:     "accountid",
		To:       "parentcustomerid",
		Kind:     LeftOuter,
		Alias:    "acc",
		Columns:  Columns("address1_city"),
		Criteria: AllOf(NewCondition("revenue", GreaterThan, ir.Money(60))),
	})
	expr.Where("acc.address1_city", NotNull)
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob"}, names(t, res, "firstname"))
}

func TestEvaluateNestedLinksAndDefaultAlias(t *testing.T) {
	f := newFixture(t)
	expr := New("account").Join(Link{
		Entity: "contact",
		From:   "parentcustomerid",
		To:     "accountid",
		Kind:   Inner,
		Links: []Link{{
			Entity:  "account",
			From:    "accountid",
			To:      "parentcustomerid",
			Kind:    Inner,
			Columns: Columns("name"),
		}},
		Columns: Columns("firstname"),
	})
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, names(t, res, "contact1.firstname"))
	assert.Equal(t, []string{"Contoso", "Contoso", "Fabrikam"}, names(t, res, "account1.name"))
}

func TestEvaluateOrdering(t *testing.T) {
	f := newFixture(t)

	res, err := f.eval.Evaluate(New("account").OrderBy("address1_city", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Northwind", "Fabrikam", "Contoso"}, names(t, res, "name"), "nulls first ascending")

	res, err = f.eval.Evaluate(New("account").OrderBy("revenue", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso", "Northwind", "Fabrikam"}, names(t, res, "name"))

	// Ties keep store order.
	expr := New("contact").Join(Link{Entity: "account", From: "accountid", To: "parentcustomerid", Alias: "a"})
	expr.Orders = []Order{{EntityAlias: "a", Attribute: "name", Descending: true}}
	res, err = f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cid", "Ann", "Bob"}, names(t, res, "firstname"))
}

func TestEvaluatePaging(t *testing.T) {
	f := newFixture(t)

	expr := New("contact")
	expr.Paging = Paging{Top: 3, ReturnTotalCount: true}
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, names(t, res, "firstname"))
	assert.True(t, res.MoreRecords)
	assert.Equal(t, 4, res.TotalCount)
	require.NotEmpty(t, res.ContinuationToken)

	expr.Paging = Paging{Top: 3, ContinuationToken: res.ContinuationToken}
	res, err = f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dee"}, names(t, res, "firstname"))
	assert.False(t, res.MoreRecords)
	assert.Empty(t, res.ContinuationToken)

	expr.Paging = Paging{Skip: 10}
	res, err = f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestEvaluateProjection(t *testing.T) {
	f := newFixture(t)
	expr := New("account")
	expr.Columns = Columns("name")
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"accountid", "name"}, res.Records[0].Names())

	expr.Columns = Columns("name", Wildcard)
	res, err = f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.True(t, res.Records[0].Has("revenue"))
}

func TestEvaluateDistinct(t *testing.T) {
	f := newFixture(t)
	expr := New("account").Join(Link{Entity: "contact", From: "parentcustomerid", To: "accountid", Alias: "c"})
	expr.Columns = Columns("name")
	expr.Distinct = true
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso", "Fabrikam"}, names(t, res, "name"))
}

func TestEvaluateOuterAllColumnsUsesSchema(t *testing.T) {
	repo := metadata.NewRepository(metadata.WithLogger(discard))
	require.NoError(t, repo.Register(metadata.EntityMetadata{
		LogicalName: "contact",
		Attributes: []metadata.AttributeMetadata{
			{LogicalName: "firstname"},
			{LogicalName: "age", Type: metadata.TypeInteger},
			{LogicalName: "parentcustomerid", Type: metadata.TypeCustomer, Targets: []string{"account"}},
		},
	}))
	f := newFixture(t, WithSchema(repo))

	expr := New("account").Join(Link{
		Entity: "contact", From: "parentcustomerid", To: "accountid", Kind: LeftOuter, Alias: "c", Columns: AllColumns(),
	})
	expr.Where("name", Equal, ir.String("Northwind"))
	res, err := f.eval.Evaluate(expr)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	for _, n := range []string{"c.contactid", "c.firstname", "c.age", "c.parentcustomerid"} {
		assert.True(t, res.Records[0].Has(n), n)
		assert.True(t, ir.IsNull(res.Records[0].Value(n)), n)
	}
}

func TestEvaluateRejectsInvalidQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.eval.Evaluate(New("account").Where("name", Between, ir.String("a")))
	assert.True(t, fault.Is(err, fault.InvalidQuery))
}
