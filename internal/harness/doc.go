// Package harness runs YAML scenarios against the pipeline and checks the
// resulting summary and warehouse snapshot.
//
// # Scenario Format
//
//	name: default_seed
//	description: "Default configuration, every recipe"
//	config: small.cue       # optional, relative to the scenario file
//	seed: 7                 # optional override of generator.seed
//	recipes: [loyalty]      # optional, empty means all
//	assertions:
//	  - type: summary_value
//	    path: window.end
//	    equals: "2025-01-31"
//	  - type: summary_count
//	    path: inventory.rows
//	    count: 30
//	  - type: summary_contains
//	    path: segments.counts
//	    expect: { segment: core }
//	  - type: final_state
//	    table: stores
//	    where: { store_id: S001 }
//	    expect: { store_region: Region2 }
//	  - type: digest
//	    equals: "<64 hex chars>"
//
// Paths address the canonical summary JSON: object keys and array indexes
// joined with dots. Money and ratios are decimal strings in the summary,
// so their expected values must be quoted in YAML.
//
// final_state queries the run's rows in an in-memory warehouse and
// expects exactly one match.
//
// # Golden Summaries
//
// Each scenario's canonical summary can be pinned in
// golden/<scenario-file-name>.golden next to the scenario. Golden files are
// compared byte for byte.
package harness
