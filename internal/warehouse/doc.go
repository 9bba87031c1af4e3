// Package warehouse writes pipeline runs to a SQLite snapshot for ad-hoc
// SQL exploration.
//
// A snapshot holds any number of runs. Each run stores the raw generated
// tables (quarantined rows flagged, not dropped), the per-row quarantine
// reasons, and the recipe outputs that have a row shape: loyalty accruals,
// coin entries, RFM profiles, notifications, inventory risk rows and the
// activity log. The canonical summary is kept verbatim on the run row.
//
// Run IDs are UUIDv5 values derived from the summary digest, so the same
// configuration always lands under the same ID and rewriting it is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a run cascades to its rows
//
// All reads order by primary key so results are deterministic.
package warehouse
