// Package harness runs YAML scenarios against a real store.
//
// A scenario is a sequence of steps (append, batch, update, reads, clock
// advances) executed against a fresh store in a temporary directory, with a
// deterministic clock and sweep ids. Each step may carry an expect clause;
// assertions run after the last step. The on-disk layout the scenario leaves
// behind can be compared against a golden file:
//
//	name: walkthrough
//	description: records, full and incremental checkpoints
//	start: "2018-09-08 14:15:52"
//	steps:
//	  - op: append
//	    entity: ___alexa___
//	    category: good
//	    at: epoch
//	    value: 100
//	  - op: batch
//	    entity: ___alexa___
//	    category: good
//	    expect:
//	      value: 100
//	assertions:
//	  - type: final_checkpoint
//	    entity: ___alexa___
//	    category: good
//	    value: 100
//
// Golden files live in testdata/golden/{name}.golden and list every entry
// path relative to the store root, one per line, in byte order. Regenerate
// them with:
//
//	go test ./internal/harness -update
package harness
