// Package harness runs YAML test scenarios against an in-memory service.
//
// A scenario declares metadata, seed records and plugin steps, executes a
// flow of requests and checks the resulting trace and final state.
//
// # Scenario Format
//
//	name: close_incident
//	description: "Closing a case resolves it"
//	schemas:
//	  - schemas/crm.cue
//	integrity:
//	  validate_entity_references: true
//	max_depth: 3
//	seed:
//	  - entity: incident
//	    save: case
//	    attributes: { title: "Broken" }
//	plugins:
//	  - name: stamp
//	    stage: PreOperation
//	    message: Create
//	    entity: account
//	    action: set_target
//	    attributes: { source: "plugin" }
//	flow:
//	  - request: CloseIncident
//	    parameters:
//	      IncidentResolution:
//	        $record:
//	          entity: incidentresolution
//	          attributes: { incidentid: { $ref: { entity: incident, id: "${case}" } } }
//	      Status: 5
//	assertions:
//	  - type: final_state
//	    entity: incident
//	    where: { incidentid: "${case}" }
//	    expect: { statecode: { $option: 1 } }
//
// Parameters are converted as follows: {$record: ...} becomes a record,
// other maps use the plain value markers of package ir ($ref, $option,
// $money, ...), lists of strings become []string and scalars pass through.
// ${name} expands to an id bound by save on a seed record or flow step.
//
// # Assertion Types
//
//   - trace_contains: a request with the given message (and optional
//     entity, depth and outcome) appears in the trace
//   - trace_order: messages first appear in the given order
//   - trace_count: matching requests appear exactly N times
//   - final_state: exactly one record matches where, and its attributes
//     contain expect
//   - record_count: N records match where
//
// # Deterministic Testing
//
// Every scenario runs on a new service with testutil.DeterministicClock
// and testutil.SequentialIDs, so traces can be compared against golden
// files with RunWithGolden.
package harness
