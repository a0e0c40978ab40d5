// Package harness runs end-to-end garbage-collection scenarios.
//
// # Scenario Format
//
// Scenarios are YAML files describing a store snapshot, the run
// parameters and the expected outcome:
//
//	name: chain
//	description: "A recent root keeps its whole chain"
//	now: 1000000
//	retention_days: "1"
//	missing_policy: skip
//	records:
//	  - path: r
//	    references: [a]
//	    registration_time: 950000
//	    download_size: 10
//	    url: nar/r.nar.xz
//	closures:
//	  r: [a, r]
//	assertions:
//	  - type: deleted
//	    ids: [c]
//	  - type: reclaimable_bytes
//	    bytes: 40
//
// Identifiers shorter than the hash width are canonical as written, so
// scenarios can use short names.
//
// # Assertion Types
//
//   - deleted: every listed id is in the delete set
//   - kept: every listed id is in the keep set
//   - deletable_origins: the deletable origins are exactly the listed URLs
//   - reclaimable_bytes: the reclaimable total equals bytes
//   - error: the run failed with the given error code
//   - log_contains: the run logged text
//
// retention_days is a string so scenarios can exercise invalid input;
// it goes through the same parser as the command line.
//
// # Deterministic Runs
//
// The clock is fixed to the scenario's now, logs are captured in memory,
// and the plan is rendered as sorted JSON, so a scenario produces the
// same snapshot on every run. Snapshots are compared against golden
// files with goldie.
package harness
