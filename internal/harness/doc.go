// Package harness runs reconciliation scenarios against two in-memory
// deployments and checks the writes the target received.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: reference_rewrite
//	description: "Product metafields point at the target's metaobject"
//	source:
//	  definitions:
//	    - kind: metaobject_definition
//	      type: designer
//	      fields: [{key: name, type: single_line_text_field}]
//	  entities:
//	    - {kind: metaobject, type: designer, handle: ada}
//	target:
//	  pin_limit: 1
//	failures:
//	  - {op: create_entity, key: ada, code: TAKEN, message: "Handle taken"}
//	runs:
//	  - command: sync
//	    kinds: [metaobjects]
//	    definitions: true
//	    data: true
//	    expect: {created: 2}
//	assertions:
//	  - type: write_contains
//	    op: create_entity
//	    key: ada
//	  - type: target_entity
//	    kind: metaobject
//	    key: ada
//	    fields: {name: Ada}
//
// # Assertion Types
//
//   - write_contains: a target write with op and key exists, carrying the listed values
//   - write_order: the listed writes happened in order
//   - write_count: the number of writes with op (and key, when set)
//   - target_entity: an entity exists on the target with the listed field values, or is absent
//   - target_definition: a definition exists on the target, or is absent
//   - journal: the number of journaled mutation attempts with an outcome
//
// # Deterministic Testing
//
// Runs get fixed ids (run-1, run-2, ...), a fixed clock and an in-memory
// journal, so the trace of a scenario is identical across executions and
// can be compared against a golden file.
package harness
