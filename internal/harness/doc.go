// Package harness runs HTTP conformance scenarios against an http.Handler.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	steps:
//	  - name: create
//	    method: POST
//	    path: /input
//	    body: { x: 5 }
//	    expect:
//	      status: 201
//	      body: { type: input, data: { x: 5 } }
//	    save:
//	      id: _id
//	  - method: GET
//	    path: /input/{{id}}
//	    expect:
//	      status: 200
//
// Expected bodies are subset matches: objects may carry extra keys, arrays
// must have the same length. save captures a field of the response body
// (dotted path) into a variable; {{name}} is substituted in later paths,
// request bodies and expected string values. raw_body sends bytes verbatim
// instead of a YAML-encoded body.
//
// # Deterministic Testing
//
// Run does not control time or ids itself. Callers build the handler over a
// store with testutil.DeterministicClock and testutil.SequenceGenerator so
// transcripts are identical across runs and can be compared against golden
// files with RunWithGolden.
package harness
