// Package checkpoint materialises cumulative totals ("batches") for the
// record store.
//
// A checkpoint for (entity, category) is a leaf written under the category's
// summary namespace at the engine clock's current time. Its single entry is
// the category's cumulative total as of that moment.
//
// # Full and incremental
//
// Batch recounts every record since shard.Epoch. UpdateBatch reads the latest
// checkpoint (value V, time T) and writes V plus the records counted on the
// far side of T, so only records since the last checkpoint are scanned. A
// category must be batched once before it can be updated.
//
// # Boundary policy
//
// Records are timestamped to the second, so a record can share its second
// with the checkpoint that preceded it. The Boundary option decides which
// side such a record falls on:
//
//   - BoundaryExclusive (default): UpdateBatch counts records strictly after
//     T. A record already counted by the checkpoint at T is never counted
//     again, and consecutive UpdateBatch calls with no new records agree. A
//     record appended later within second T is missed until the next Batch.
//   - BoundaryInclusive: UpdateBatch counts records at or after T. A record
//     in second T that the checkpoint already counted is counted again by
//     the next update.
//
// # Same-second checkpoints
//
// A checkpoint leaf holds exactly one entry. Rewriting the same total in the
// same second is a no-op; writing a different total into a second that
// already holds a checkpoint fails with ErrCheckpointConflict.
//
// # Sweeps
//
// BatchAllCategories, BatchAllEntities and their Update counterparts fan out
// over the store in sorted order. Unusable category directories and
// same-second conflicts are logged and skipped, so one busy category does
// not hold back the rest; any other error stops the sweep. Each sweep is
// tagged with an id from the engine's IDGenerator for log correlation.
package checkpoint
