package checkpoint

import "time"

// Clock supplies the wall-clock time at which checkpoints are written.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
