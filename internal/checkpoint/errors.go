package checkpoint

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCheckpoint is returned by UpdateBatch when the category has never
// been batched. Call Batch first.
var ErrNoCheckpoint = errors.New("no prior checkpoint")

// ErrCheckpointConflict is returned when a checkpoint with a different total
// already occupies the target second.
var ErrCheckpointConflict = errors.New("checkpoint conflict")

// ConflictError describes a same-second checkpoint collision.
// It matches ErrCheckpointConflict under errors.Is.
type ConflictError struct {
	Entity   string
	Category string
	Time     time.Time
	Existing int64
	Entries  int
	Want     int64
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s/%s at %s holds %d in %d entries, refusing to add %d",
		ErrCheckpointConflict, e.Entity, e.Category,
		e.Time.UTC().Format(time.DateTime), e.Existing, e.Entries, e.Want)
}

// Is reports whether target is ErrCheckpointConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrCheckpointConflict
}

// IsConflict returns true if err is a same-second checkpoint collision.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
