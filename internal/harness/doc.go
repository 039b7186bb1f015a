// Package harness runs reconciliation scenarios against the engine.
//
// A scenario renders a sequence of trees through one engine.Root over a
// recorded in-memory host, checks each frame against its expect clause, and
// evaluates assertions on the finished run. Every commit is journaled into an
// in-memory store so the replay assertion can verify determinism.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: keyed_list
//	description: "Reordering keyed items keeps their nodes"
//	frames:
//	  - tree:
//	      kind: ul
//	      children:
//	        - {kind: li, props: {key: 1}, children: ["Item 1"]}
//	        - {kind: li, props: {key: 2}, children: ["Item 2"]}
//	    expect: {adds: 5}
//	  - target: main
//	    tree:
//	      kind: ul
//	      children:
//	        - {kind: li, props: {key: 2}, children: ["Item 2"]}
//	        - {kind: li, props: {key: 1}, children: ["Item 1"]}
//	    expect:
//	      moved: [/#0/1]
//	      html: "<ul><li>Item 2</li><li>Item 1</li></ul>"
//	assertions:
//	  - type: handle_preserved
//	    path: /#0/1
//	    from: 0
//	    to: 1
//	  - type: idempotent
//
// Trees may instead come from a CUE file named by frames_file; see
// compiler.LoadFrames.
//
// # Assertion Types
//
//   - idempotent: re-rendering the last committed frame produces no effects
//   - handle_preserved: the node at path is the same host node after two frames
//   - remove_count: a frame made exactly count removals on the host
//   - final_html: a target's markup after the last frame
//   - replay: every journaled session reproduces its effects on a fresh host
//
// # Deterministic Testing
//
// Session ids come from testutil.SequentialSessions and commit sequence
// numbers from a fresh engine clock, so traces are identical across runs and
// can be compared against golden files with RunWithGolden.
package harness
