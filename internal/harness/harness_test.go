package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/ir"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/service"
)

func scenarioPath(name string) string {
	return filepath.Join("testdata", "scenarios", name+".yaml")
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(scenarioPath("crud"))
	require.NoError(t, err)

	assert.Equal(t, "crud", s.Name)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "schemas", "crm.cue")}, s.Schemas)
	assert.True(t, s.Integrity.ValidateEntityReferences)
	assert.True(t, s.Integrity.ValidateAttributeTypes)
	assert.Len(t, s.Flow, 8)
	assert.Equal(t, "acct", s.Flow[0].Save)
	assert.Equal(t, "REFERENCE_INTEGRITY", s.Flow[2].Expect.Fault)
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "invalid", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nflow: [{request: WhoAmI}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nflow: [{request: WhoAmI}]\n",
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: "name: n\ndescription: d\n",
			want: "flow list is required",
		},
		{
			name: "bad initialization",
			yaml: "name: n\ndescription: d\ninitialization: lazy\nflow: [{request: WhoAmI}]\n",
			want: "initialization must be none or per_entity",
		},
		{
			name: "bad stage",
			yaml: "name: n\ndescription: d\nplugins: [{name: p, stage: Later, message: Create, action: fail, error: x}]\nflow: [{request: WhoAmI}]\n",
			want: `unknown stage "Later"`,
		},
		{
			name: "bad action",
			yaml: "name: n\ndescription: d\nplugins: [{name: p, stage: PreOperation, message: Create, action: explode}]\nflow: [{request: WhoAmI}]\n",
			want: `unknown action "explode"`,
		},
		{
			name: "create without record",
			yaml: "name: n\ndescription: d\nplugins: [{name: p, stage: PostOperation, message: Create, action: create}]\nflow: [{request: WhoAmI}]\n",
			want: "create requires record.entity",
		},
		{
			name: "bad assertion",
			yaml: "name: n\ndescription: d\nflow: [{request: WhoAmI}]\nassertions: [{type: trace_magic}]\n",
			want: `unknown assertion type "trace_magic"`,
		},
		{
			name: "final_state without where",
			yaml: "name: n\ndescription: d\nflow: [{request: WhoAmI}]\nassertions: [{type: final_state, entity: account, expect: {name: x}}]\n",
			want: "final_state requires entity, where and expect",
		},
		{
			name: "flow step without request",
			yaml: "name: n\ndescription: d\nflow: [{save: x}]\n",
			want: "flow[0]: request is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCRUD(t *testing.T) {
	_, result, err := RunFile(scenarioPath("crud"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", result.Vars["acct"])
	assert.Contains(t, result.Vars, "con")
	assert.Len(t, result.Trace, 8)
}

func TestRunCloseIncident(t *testing.T) {
	_, result, err := RunFile(scenarioPath("close_incident"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, message.CloseIncident, result.Trace[0].Message)
	assert.Equal(t, "ok", result.Trace[0].Outcome)
}

func TestRunGolden(t *testing.T) {
	for _, name := range []string{"recursion_ceiling", "plugin_steps"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(scenarioPath(name))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunReportsFailures(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
description: "every check is wrong"
flow:
  - request: Create
    parameters:
      Target: { $record: { entity: account, attributes: { name: A } } }
    expect:
      fault: DUPLICATE_ID
  - request: Retrieve
    parameters:
      Target: { $ref: { entity: account, id: "00000000-0000-0000-0000-000000000009" } }
  - request: Create
    parameters:
      Target: { $record: { entity: account, attributes: { name: B } } }
    save: b
    expect:
      results: { id: "00000000-0000-0000-0000-000000000001" }
assertions:
  - type: record_count
    entity: account
    count: 5
  - type: trace_count
    message: Delete
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected fault DUPLICATE_ID, got success")
	assert.Contains(t, result.Errors[1], "unexpected error")
	assert.Contains(t, result.Errors[2], `result id = "00000000-0000-0000-0000-000000000002"`)
	assert.Contains(t, result.Errors[3], "5 account records")
	assert.Contains(t, result.Errors[4], "1 occurrences of Delete")
}

func TestRunUndefinedVariable(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: undefined
description: "refers to an unsaved id"
flow:
  - request: Delete
    parameters:
      Target: { $ref: { entity: account, id: "${missing}" } }
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undefined variable "missing"`)
}

func TestRunInlineMetadataAndIntegrity(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: inline_metadata
description: "type checks use inline metadata"
integrity:
  validate_attribute_types: true
metadata:
  - name: account
    primary_id: accountid
    attributes:
      - { name: name, type: string }
      - { name: numberofemployees, type: integer }
flow:
  - request: Create
    parameters:
      Target: { $record: { entity: account, attributes: { name: A, numberofemployees: 10 } } }
  - request: Create
    parameters:
      Target: { $record: { entity: account, attributes: { name: B, numberofemployees: many } } }
    expect:
      fault: TYPE_MISMATCH
assertions:
  - type: record_count
    entity: account
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunSharedVariablesStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: shared
description: "a set_shared step runs without affecting the write"
plugins:
  - { name: mark, stage: PreValidation, message: Create, action: set_shared, key: seen, value: true }
flow:
  - request: Create
    parameters:
      Target: { $record: { entity: lead, attributes: { subject: Hello } } }
assertions:
  - type: final_state
    entity: lead
    where: { subject: Hello }
    expect: { subject: Hello }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithServiceOptions(t *testing.T) {
	ping := executor.Named("Ping", func(_ context.Context, req *message.Request, _ *executor.Env) (*message.Response, error) {
		return message.NewResponse(req.Name).Set("Pong", true), nil
	})

	s, err := ParseScenario([]byte(`
name: custom
description: "custom executors are reachable from scenarios"
flow:
  - request: Ping
    expect:
      results: { Pong: true }
  - request: Pong
    expect:
      fault: UNSUPPORTED_REQUEST
`))
	require.NoError(t, err)

	result, err := Run(s, WithServiceOptions(service.WithExecutor("Ping", ping)))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalTrace(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{{Seq: 1, Depth: 1, Message: "WhoAmI", Outcome: "ok"}}

	data, err := MarshalTrace("who", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"who","trace":[{"depth":1,"id":"00000000-0000-0000-0000-000000000000","message":"WhoAmI","outcome":"ok","seq":1}]}`,
		string(data))
}

func TestQuerySeedData(t *testing.T) {
	s, err := LoadScenario(scenarioPath("close_incident"))
	require.NoError(t, err)

	res, err := Query(s, `<fetch><entity name="incident"><attribute name="title"/></entity></fetch>`)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, ir.String("Broken printer"), res.Records[0].Value("title"))

	_, err = Query(s, `<fetch><entity name="incident"><filter><condition attribute="title" operator="sounds-like" value="x"/></filter></entity></fetch>`)
	assert.Error(t, err)
}
