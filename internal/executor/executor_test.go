package executor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/identity"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/query"
	"github.com/roach88/recordsim/internal/store"
	"github.com/roach88/recordsim/internal/testutil"
	"github.com/roach88/recordsim/internal/validation"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var testCaller = identity.Caller{
	UserID:         testutil.ID(9, 1),
	BusinessUnitID: testutil.ID(9, 2),
	OrganizationID: testutil.ID(9, 3),
}

type fixture struct {
	env *Env
	reg *Registry
}

func newFixture(t *testing.T, mode metadata.Mode) *fixture {
	t.Helper()
	repo := metadata.NewRepository(metadata.WithLogger(discard))
	require.NoError(t, repo.Register(metadata.EntityMetadata{
		LogicalName: "account",
		Attributes: []metadata.AttributeMetadata{
			{LogicalName: "name", Type: metadata.TypeString},
			{LogicalName: "numberofemployees", Type: metadata.TypeInteger},
			{LogicalName: "industrycode", Type: metadata.TypePicklist, OptionSet: &metadata.OptionSet{
				Options: []metadata.Option{{Value: 1, Label: "Retail"}},
			}},
		},
	}))
	ids := identity.NewStatic(testCaller)
	s := store.New(
		store.WithIDs(testutil.NewSequentialIDs()),
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIdentity(ids),
		store.WithPrimaryID(repo.PrimaryID),
		store.WithLogger(discard),
	)
	reg := NewRegistry(WithLogger(discard))
	RegisterBuiltins(reg)
	return &fixture{
		env: &Env{
			Store:     s,
			Metadata:  repo,
			Validator: validation.New(mode, s, repo, validation.WithLogger(discard)),
			Evaluator: query.NewEvaluator(s, query.WithSchema(repo), query.WithLogger(discard)),
			Identity:  ids,
			Logger:    discard,
		},
		reg: reg,
	}
}

func (f *fixture) run(t *testing.T, req *message.Request) (*message.Response, error) {
	t.Helper()
	return f.reg.Execute(context.Background(), req, f.env)
}

func (f *fixture) mustRun(t *testing.T, req *message.Request) *message.Response {
	t.Helper()
	resp, err := f.run(t, req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) seed(t *testing.T, rec *ir.Record) uuid.UUID {
	t.Helper()
	id, err := f.env.Store.Seed(rec)
	require.NoError(t, err)
	return id
}

func (f *fixture) get(t *testing.T, entity string, id uuid.UUID) *ir.Record {
	t.Helper()
	rec, err := f.env.Store.Retrieve(ir.NewReference(entity, id), nil)
	require.NoError(t, err)
	return rec
}

type prefixExecutor struct{ prefix string }

func (p prefixExecutor) CanExecute(req *message.Request) bool {
	return strings.HasPrefix(req.Name, p.prefix)
}

func (p prefixExecutor) Execute(_ context.Context, req *message.Request, _ *Env) (*message.Response, error) {
	return message.NewResponse(req.Name).Set("handled", p.prefix), nil
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(WithLogger(discard))
	RegisterBuiltins(reg)
	reg.Register("", prefixExecutor{prefix: "new_"})
	reg.Register("", prefixExecutor{prefix: "new_special"})

	ex, err := reg.Lookup(message.NewRequest(message.Create))
	require.NoError(t, err)
	assert.True(t, ex.CanExecute(message.NewRequest(message.Create)))

	ex, err = reg.Lookup(message.NewRequest("new_special_thing"))
	require.NoError(t, err)
	assert.Equal(t, prefixExecutor{prefix: "new_"}, ex, "scan returns the first match in registration order")

	_, err = reg.Lookup(message.NewRequest("Frobnicate"))
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.UnsupportedRequest, f.Code)
	assert.Equal(t, "Frobnicate", f.Detail("request"))

	assert.Contains(t, reg.Names(), message.CloseIncident)
	assert.NotContains(t, reg.Names(), "")
}

func TestRegistryExactNameWinsOverScan(t *testing.T) {
	reg := NewRegistry(WithLogger(discard))
	reg.Register("", prefixExecutor{prefix: "new_"})
	reg.Register("new_exact", Named("new_exact", func(_ context.Context, req *message.Request, _ *Env) (*message.Response, error) {
		return message.NewResponse(req.Name).Set("handled", "exact"), nil
	}))

	resp, err := reg.Execute(context.Background(), message.NewRequest("new_exact"), &Env{})
	require.NoError(t, err)
	v, _ := resp.Get("handled")
	assert.Equal(t, "exact", v)
}

func TestCreateRetrieveRoundTrip(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	resp := f.mustRun(t, message.NewRequest(message.Create).With(message.ParamTarget,
		ir.NewRecord("account", uuid.Nil).
			Set("name", ir.String("Contoso")).
			Set("numberofemployees", ir.Int(12))))
	id := resp.ID()
	require.NotEqual(t, uuid.Nil, id)

	resp = f.mustRun(t, message.NewRequest(message.Retrieve).
		With(message.ParamTarget, ir.NewReference("account", id)))
	rec := resp.Entity()
	require.NotNil(t, rec)
	assert.Equal(t, ir.String("Contoso"), rec.Value("name"))
	assert.Equal(t, ir.Int(12), rec.Value("numberofemployees"))
	assert.Equal(t, ir.GUID(id), rec.Value("accountid"))
	assert.Equal(t, testCaller.UserRef(), rec.Value(store.AttrOwnerID))

	resp = f.mustRun(t, message.NewRequest(message.Retrieve).
		With(message.ParamTarget, ir.NewReference("account", id)).
		With(message.ParamColumnSet, []string{"name"}))
	assert.Equal(t, []string{"accountid", "name"}, resp.Entity().Names())

	_, err := f.run(t, message.NewRequest(message.Retrieve).
		With(message.ParamTarget, ir.NewReference("account", uuid.New())))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestCreateRequiresLogicalName(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	_, err := f.run(t, message.NewRequest(message.Create).With(message.ParamTarget, ir.NewRecord("", uuid.Nil)))
	assert.True(t, fault.Is(err, fault.MissingRequiredParameter))
}

func TestCreateTypeValidationToggle(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	bad := ir.NewRecord("account", uuid.Nil).Set("numberofemployees", ir.String("many"))

	_, err := f.run(t, message.NewRequest(message.Create).With(message.ParamTarget, bad))
	require.NoError(t, err, "permissive mode accepts any value")

	f.env.Validator.SetMode(metadata.ModeTypes)
	_, err = f.run(t, message.NewRequest(message.Create).With(message.ParamTarget, bad))
	assert.True(t, fault.Is(err, fault.TypeMismatch))
	assert.Equal(t, 1, f.env.Store.Count("account"))
}

func TestCreateReferenceValidation(t *testing.T) {
	f := newFixture(t, metadata.ModeReferences)
	rec := ir.NewRecord("contact", uuid.Nil).Set("parentcustomerid", ir.NewReference("account", uuid.New()))
	_, err := f.run(t, message.NewRequest(message.Create).With(message.ParamTarget, rec))
	assert.True(t, fault.Is(err, fault.ReferenceIntegrity))
	assert.Zero(t, f.env.Store.Count("contact"))
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := f.seed(t, ir.NewRecord("account", uuid.Nil).Set("name", ir.String("Old")).Set("numberofemployees", ir.Int(3)))

	f.mustRun(t, message.NewRequest(message.Update).With(message.ParamTarget,
		ir.NewRecord("account", id).Set("name", ir.String("New"))))
	rec := f.get(t, "account", id)
	assert.Equal(t, ir.String("New"), rec.Value("name"))
	assert.Equal(t, ir.Int(3), rec.Value("numberofemployees"))
	assert.True(t, rec.Has(store.AttrModifiedOn))

	_, err := f.run(t, message.NewRequest(message.Update).With(message.ParamTarget,
		ir.NewRecord("account", uuid.New()).Set("name", ir.String("x"))))
	assert.True(t, fault.Is(err, fault.NotFound))

	f.mustRun(t, message.NewRequest(message.Delete).With(message.ParamTarget, ir.NewReference("account", id)))
	assert.False(t, f.env.Store.Exists(ir.NewReference("account", id)))

	_, err = f.run(t, message.NewRequest(message.Delete).With(message.ParamTarget, ir.NewReference("account", id)))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestUpsertIsIdempotent(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := testutil.ID(7, 1)
	target := func(name string) *message.Request {
		return message.NewRequest(message.Upsert).With(message.ParamTarget,
			ir.NewRecord("account", id).Set("name", ir.String(name)))
	}

	resp := f.mustRun(t, target("First"))
	assert.True(t, resp.RecordCreated())
	assert.Equal(t, id, resp.ID())
	assert.Equal(t, 1, f.env.Store.Count("account"))

	resp = f.mustRun(t, target("Second"))
	assert.False(t, resp.RecordCreated())
	assert.Equal(t, id, resp.ID())
	assert.Equal(t, 1, f.env.Store.Count("account"))
	assert.Equal(t, ir.String("Second"), f.get(t, "account", id).Value("name"))
}

func TestUpsertByPrimaryAttributeAndWithoutID(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := f.seed(t, ir.NewRecord("account", uuid.Nil).Set("name", ir.String("Seeded")))

	resp := f.mustRun(t, message.NewRequest(message.Upsert).With(message.ParamTarget,
		ir.NewRecord("account", uuid.Nil).Set("accountid", ir.GUID(id)).Set("name", ir.String("Renamed"))))
	assert.False(t, resp.RecordCreated())
	assert.Equal(t, ir.String("Renamed"), f.get(t, "account", id).Value("name"))

	resp = f.mustRun(t, message.NewRequest(message.Upsert).With(message.ParamTarget,
		ir.NewRecord("account", uuid.Nil).Set("name", ir.String("Fresh"))))
	assert.True(t, resp.RecordCreated())
	assert.Equal(t, 2, f.env.Store.Count("account"))
}

func TestRetrieveMultiple(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	for _, n := range []string{"Contoso", "Fabrikam", "Northwind"} {
		f.seed(t, ir.NewRecord("account", uuid.Nil).Set("name", ir.String(n)))
	}

	resp := f.mustRun(t, message.NewRequest(message.RetrieveMultiple).With(message.ParamQuery,
		query.New("account").Where("name", query.BeginsWith, ir.String("f"))))
	require.Len(t, resp.Entities().Records, 1)
	assert.Equal(t, ir.String("Fabrikam"), resp.Entities().Records[0].Value("name"))

	resp = f.mustRun(t, message.NewRequest(message.RetrieveMultiple).With(message.ParamFetchXML, `
<fetch top="2">
  <entity name="account">
    <attribute name="name" />
    <order attribute="name" descending="true" />
  </entity>
</fetch>`))
	res := resp.Entities()
	require.Len(t, res.Records, 2)
	assert.Equal(t, ir.String("Northwind"), res.Records[0].Value("name"))
	assert.True(t, res.MoreRecords)

	_, err := f.run(t, message.NewRequest(message.RetrieveMultiple))
	assert.True(t, fault.Is(err, fault.MissingRequiredParameter))

	_, err = f.run(t, message.NewRequest(message.RetrieveMultiple).With(message.ParamQuery, "select *"))
	assert.True(t, fault.Is(err, fault.TypeMismatch))

	_, err = f.run(t, message.NewRequest(message.RetrieveMultiple).With(message.ParamFetchXML, "<fetch>"))
	assert.True(t, fault.Is(err, fault.InvalidQuery))
}

func TestAssign(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := f.seed(t, ir.NewRecord("account", uuid.Nil))
	owner := ir.NewReference("systemuser", testutil.ID(9, 99))

	f.mustRun(t, message.NewRequest(message.Assign).
		With(message.ParamTarget, ir.NewReference("account", id)).
		With(message.ParamAssignee, owner))
	assert.Equal(t, owner, f.get(t, "account", id).Value(store.AttrOwnerID))
}

func TestSetState(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := f.seed(t, ir.NewRecord("account", uuid.Nil).Set("name", ir.String("A")))

	f.mustRun(t, message.NewRequest(message.SetState).
		With(message.ParamEntityMoniker, ir.NewReference("account", id)).
		With(message.ParamState, ir.OptionSetValue(1)).
		With(message.ParamStatus, 2))
	rec := f.get(t, "account", id)
	assert.Equal(t, ir.OptionSetValue(1), rec.Value(AttrStateCode))
	assert.Equal(t, ir.OptionSetValue(2), rec.Value(AttrStatusCode))

	_, err := f.run(t, message.NewRequest(message.SetState).
		With(message.ParamEntityMoniker, ir.NewReference("account", uuid.New())).
		With(message.ParamState, 1).
		With(message.ParamStatus, 2))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestCloseIncidentTransitionsInPlace(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	id := f.seed(t, ir.NewRecord("incident", uuid.Nil).
		Set("title", ir.String("Broken")).
		Set(AttrStateCode, ir.OptionSetValue(0)).
		Set(AttrStatusCode, ir.OptionSetValue(1)))

	resolution := ir.NewRecord("incidentresolution", uuid.Nil).
		Set("subject", ir.String("Fixed")).
		Set("incidentid", ir.NewReference("incident", id))
	f.mustRun(t, message.NewRequest(message.CloseIncident).
		With(message.ParamIncidentResolution, resolution).
		With(message.ParamStatus, 5))

	rec := f.get(t, "incident", id)
	assert.Equal(t, ir.OptionSetValue(1), rec.Value(AttrStateCode))
	assert.Equal(t, ir.OptionSetValue(5), rec.Value(AttrStatusCode))
	assert.Equal(t, ir.String("Broken"), rec.Value("title"))
	assert.Equal(t, 1, f.env.Store.Count("incident"))
	assert.Zero(t, f.env.Store.Count("incidentresolution"), "close creates no records")
}

func TestCloseVariants(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	quote := f.seed(t, ir.NewRecord("quote", uuid.Nil))
	opp := f.seed(t, ir.NewRecord("opportunity", uuid.Nil))

	f.mustRun(t, message.NewRequest(message.CloseQuote).
		With(message.ParamQuoteClose, ir.NewRecord("quoteclose", uuid.Nil).Set("quoteid", ir.NewReference("quote", quote))).
		With(message.ParamStatus, 7))
	assert.Equal(t, ir.OptionSetValue(3), f.get(t, "quote", quote).Value(AttrStateCode))

	f.mustRun(t, message.NewRequest(message.CloseOpportunity).
		With(message.ParamOpportunityClose, ir.NewRecord("opportunityclose", uuid.Nil).Set("opportunityid", ir.NewReference("opportunity", opp))).
		With(message.ParamState, 1).
		With(message.ParamStatus, 3))
	rec := f.get(t, "opportunity", opp)
	assert.Equal(t, ir.OptionSetValue(1), rec.Value(AttrStateCode), "explicit state overrides the default")
	assert.Equal(t, ir.OptionSetValue(3), rec.Value(AttrStatusCode))

	_, err := f.run(t, message.NewRequest(message.CloseIncident).
		With(message.ParamIncidentResolution, ir.NewRecord("incidentresolution", uuid.Nil)).
		With(message.ParamStatus, 5))
	f2, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.MissingRequiredParameter, f2.Code)
	assert.Equal(t, "IncidentResolution.incidentid", f2.Detail("parameter"))

	_, err = f.run(t, message.NewRequest(message.CloseIncident).
		With(message.ParamIncidentResolution, ir.NewRecord("incidentresolution", uuid.Nil).
			Set("incidentid", ir.NewReference("incident", uuid.New()))).
		With(message.ParamStatus, 5))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestReviseQuote(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	quoteID := f.seed(t, ir.NewRecord("quote", uuid.Nil).
		Set("name", ir.String("Q-1")).
		Set("revisionnumber", ir.Int(0)).
		Set(AttrStateCode, ir.OptionSetValue(2)))
	otherID := f.seed(t, ir.NewRecord("quote", uuid.Nil).Set("name", ir.String("Q-2")))
	for _, p := range []string{"widget", "gadget"} {
		f.seed(t, ir.NewRecord("quotedetail", uuid.Nil).
			Set("productdescription", ir.String(p)).
			Set("quoteid", ir.NewReference("quote", quoteID)))
	}
	f.seed(t, ir.NewRecord("quotedetail", uuid.Nil).
		Set("productdescription", ir.String("other")).
		Set("quoteid", ir.NewReference("quote", otherID)))

	resp := f.mustRun(t, message.NewRequest(message.ReviseQuote).With(message.ParamQuoteID, quoteID))
	newID := resp.ID()
	require.NotEqual(t, uuid.Nil, newID)
	require.NotEqual(t, quoteID, newID)

	revised := resp.Entity()
	assert.Equal(t, ir.String("Q-1"), revised.Value("name"))
	assert.Equal(t, ir.Int(1), revised.Value("revisionnumber"))
	assert.Equal(t, ir.OptionSetValue(0), revised.Value(AttrStateCode))
	assert.Equal(t, ir.GUID(newID), revised.Value("quoteid"))

	original := f.get(t, "quote", quoteID)
	assert.Equal(t, ir.Int(0), original.Value("revisionnumber"))
	assert.Equal(t, ir.OptionSetValue(2), original.Value(AttrStateCode))

	assert.Equal(t, 3, f.env.Store.Count("quote"))
	assert.Equal(t, 5, f.env.Store.Count("quotedetail"))

	res, err := f.env.Evaluator.Evaluate(query.New("quotedetail").Where("quoteid", query.Equal, ir.GUID(newID)))
	require.NoError(t, err)
	var products []string
	for _, r := range res.Records {
		products = append(products, string(r.Value("productdescription").(ir.String)))
	}
	assert.Equal(t, []string{"widget", "gadget"}, products)

	res, err = f.env.Evaluator.Evaluate(query.New("quotedetail").Where("quoteid", query.Equal, ir.GUID(quoteID)))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2, "original details still point at the original quote")

	_, err = f.run(t, message.NewRequest(message.ReviseQuote).With(message.ParamQuoteID, uuid.New()))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestTeamMembership(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	team := f.seed(t, ir.NewRecord("team", uuid.Nil))
	u1 := f.seed(t, ir.NewRecord("systemuser", uuid.Nil))
	u2 := f.seed(t, ir.NewRecord("systemuser", uuid.Nil))

	add := message.NewRequest(message.AddMembersTeam).
		With(message.ParamTeamID, team).
		With(message.ParamMemberIDs, []uuid.UUID{u1, u2})
	f.mustRun(t, add)
	assert.Equal(t, 2, f.env.Store.Count("teammembership"))

	f.mustRun(t, add)
	assert.Equal(t, 2, f.env.Store.Count("teammembership"), "adding existing members is a no-op")

	missing := uuid.New()
	_, err := f.run(t, message.NewRequest(message.AddMembersTeam).
		With(message.ParamTeamID, team).
		With(message.ParamMemberIDs, []uuid.UUID{u1, missing}))
	flt, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.NotFound, flt.Code)
	assert.Equal(t, missing.String(), flt.Detail("id"))
	assert.Equal(t, "systemuser", flt.Detail("entity"))

	_, err = f.run(t, message.NewRequest(message.AddMembersTeam).
		With(message.ParamTeamID, missing).
		With(message.ParamMemberIDs, []uuid.UUID{u1}))
	assert.True(t, fault.Is(err, fault.NotFound))

	f.mustRun(t, message.NewRequest(message.RemoveMembersTeam).
		With(message.ParamTeamID, team).
		With(message.ParamMemberIDs, []uuid.UUID{u1}))
	links := f.env.Store.Enumerate("teammembership")
	require.Len(t, links, 1)
	assert.Equal(t, ir.NewReference("systemuser", u2), links[0].Value("systemuserid"))
}

func TestListMembership(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	list := f.seed(t, ir.NewRecord("list", uuid.Nil).Set("createdfromcode", ir.OptionSetValue(2)))
	c1 := f.seed(t, ir.NewRecord("contact", uuid.Nil))
	c2 := f.seed(t, ir.NewRecord("contact", uuid.Nil))
	acct := f.seed(t, ir.NewRecord("account", uuid.Nil))

	f.mustRun(t, message.NewRequest(message.AddListMembersList).
		With(message.ParamListID, list).
		With(message.ParamMemberIDs, []uuid.UUID{c1}))
	f.mustRun(t, message.NewRequest(message.AddMemberList).
		With(message.ParamListID, list.String()).
		With(message.ParamEntityID, c2))
	assert.Equal(t, 2, f.env.Store.Count("listmember"))

	_, err := f.run(t, message.NewRequest(message.AddMemberList).
		With(message.ParamListID, list).
		With(message.ParamEntityID, acct))
	assert.True(t, fault.Is(err, fault.NotFound), "list only accepts contacts")

	f.mustRun(t, message.NewRequest(message.RemoveMemberList).
		With(message.ParamListID, list).
		With(message.ParamEntityID, c1))
	links := f.env.Store.Enumerate("listmember")
	require.Len(t, links, 1)
	assert.Equal(t, ir.NewReference("contact", c2), links[0].Value("entityid"))
	assert.Equal(t, ir.NewReference("list", list), links[0].Value("listid"))
}

func TestOptionValueMessages(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	resp := f.mustRun(t, message.NewRequest(message.InsertOptionValue).
		With(message.ParamEntityLogicalName, "account").
		With(message.ParamAttributeLogicalName, "industrycode").
		With(message.ParamLabel, "Banking"))
	v, _ := resp.Get(message.ResultNewOptionValue)
	assert.Equal(t, metadata.CustomOptionBase, v)

	f.mustRun(t, message.NewRequest(message.UpdateOptionValue).
		With(message.ParamEntityLogicalName, "account").
		With(message.ParamAttributeLogicalName, "industrycode").
		With(message.ParamValue, 1).
		With(message.ParamLabel, "Retail Trade"))

	attr, err := f.env.Metadata.Attribute("account", "industrycode")
	require.NoError(t, err)
	assert.Equal(t, []metadata.Option{
		{Value: 1, Label: "Retail Trade"},
		{Value: metadata.CustomOptionBase, Label: "Banking"},
	}, attr.OptionSet.Options)

	_, err = f.run(t, message.NewRequest(message.InsertOptionValue).
		With(message.ParamEntityLogicalName, "account").
		With(message.ParamAttributeLogicalName, "industrycode").
		With(message.ParamValue, 1).
		With(message.ParamLabel, "Dup"))
	assert.True(t, fault.Is(err, fault.DuplicateID))

	_, err = f.run(t, message.NewRequest(message.UpdateOptionValue).
		With(message.ParamOptionSetName, "nope").
		With(message.ParamValue, 1).
		With(message.ParamLabel, "x"))
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestWhoAmI(t *testing.T) {
	f := newFixture(t, metadata.ModeOff)
	resp := f.mustRun(t, message.NewRequest(message.WhoAmI))
	v, _ := resp.Get(message.ResultUserID)
	assert.Equal(t, testCaller.UserID, v)
	v, _ = resp.Get(message.ResultBusinessUnitID)
	assert.Equal(t, testCaller.BusinessUnitID, v)
	v, _ = resp.Get(message.ResultOrganizationID)
	assert.Equal(t, testCaller.OrganizationID, v)
}
