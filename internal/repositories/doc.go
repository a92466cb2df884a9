// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Profiles and snapshots are soft deleted via deleted_at timestamps and excluded from queries by default.
// Scrobbles and export jobs are history rows and are removed outright.
//
// Key Implementations:
//   - [ProfileRepository] : Last.fm profiles with username lookups
//   - [ScrobbleRepository] : Cached listening history, de-duplicated on (profile, played_at, track key)
//   - [SnapshotRepository] : Serialized dashboards with freshness lookups
//   - [ExportJobRepository] : Export history with status tracking
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
//
// Lookups that match no row return an error wrapping [shared.ErrNotFound].
package repositories
