package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/metadata"
)

func testSchema(t *testing.T) *metadata.Repository {
	t.Helper()
	repo := metadata.NewRepository(metadata.WithLogger(discard))
	require.NoError(t, repo.Register(metadata.EntityMetadata{
		LogicalName: "account",
		Attributes:  []metadata.AttributeMetadata{{LogicalName: "name"}},
	}))
	return repo
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	expr := New("account").Where("name", Equal, ir.String("x")).Join(Link{
		Entity: "contact", From: "parentcustomerid", To: "accountid", Alias: "c",
	})
	expr.Criteria.Conditions = append(expr.Criteria.Conditions, Condition{EntityAlias: "c", Attribute: "anything", Operator: NotNull})
	assert.NoError(t, Validate(expr, testSchema(t)))
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name    string
		expr    *Expression
		problem string
	}{
		{"nil", nil, "query is nil"},
		{"missing entity", &Expression{}, "entity name is required"},
		{"unknown operator", New("account").Where("name", Operator(99), ir.String("x")), "unknown operator"},
		{"arity one", New("account").Where("name", Equal), "takes 1 value(s), got 0"},
		{"arity between", New("account").Where("name", Between, ir.Int(1)), "takes 2 value(s), got 1"},
		{"arity null", New("account").Where("name", Null, ir.Int(1)), "takes 0 value(s), got 1"},
		{"unknown attribute", New("account").Where("nope", NotNull), "unknown attribute account.nope"},
		{"unknown column", &Expression{Entity: "account", Columns: Columns("nope")}, "column: unknown attribute account.nope"},
		{"duplicate alias", New("account").
			Join(Link{Entity: "contact", From: "a", To: "name", Alias: "x"}).
			Join(Link{Entity: "lead", From: "b", To: "name", Alias: "X"}), `duplicate alias "X"`},
		{"unknown alias", New("account").Where("ghost.name", NotNull), `unknown alias "ghost"`},
		{"link missing to", New("account").Join(Link{Entity: "contact", From: "a", Alias: "c"}), "from and to attributes are required"},
		{"link to unknown attribute", New("account").Join(Link{Entity: "contact", From: "a", To: "nope", Alias: "c"}), "link c to: unknown attribute account.nope"},
		{"negative skip", &Expression{Entity: "account", Paging: Paging{Skip: -1}}, "skip must not be negative"},
		{"bad token", &Expression{Entity: "account", Paging: Paging{ContinuationToken: "%%%"}}, "malformed continuation token"},
		{"unknown order attribute", New("account").OrderBy("nope", false), "order: unknown attribute account.nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expr, testSchema(t))
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.InvalidQuery))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestValidateLinkConditionScope(t *testing.T) {
	expr := New("account").
		Join(Link{Entity: "contact", From: "parentcustomerid", To: "accountid", Alias: "c"}).
		Join(Link{
			Entity: "lead", From: "parentaccountid", To: "accountid", Alias: "l",
			Criteria: AllOf(Condition{EntityAlias: "c", Attribute: "x", Operator: NotNull}),
		})
	err := Validate(expr, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `condition in link "l" cannot reference alias "c"`)
}

func TestDefaultAliasSkipsExplicit(t *testing.T) {
	expr := New("account").
		Join(Link{Entity: "contact", From: "a", To: "b", Alias: "contact1"}).
		Join(Link{Entity: "contact", From: "a", To: "b"})
	x := expr.normalized()
	assert.Equal(t, "contact1", x.Links[0].Alias)
	assert.Equal(t, "contact2", x.Links[1].Alias)
	assert.Empty(t, expr.Links[1].Alias, "normalization does not modify the input")
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("Not-In")
	require.NoError(t, err)
	assert.Equal(t, NotIn, op)
	assert.Equal(t, "begins-with", BeginsWith.String())

	_, err = ParseOperator("approx")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	n, err := decodeToken(encodeToken(42))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
