package store

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is the root of every argument validation error
// returned by the store. Use errors.Is to test for it.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	// ErrInvalidName indicates an entity or category that cannot be used as
	// a single directory name.
	ErrInvalidName = fmt.Errorf("%w: invalid name", ErrInvalidArgument)

	// ErrReservedCategory indicates a category equal to SummaryKey.
	ErrReservedCategory = fmt.Errorf("%w: reserved category name", ErrInvalidArgument)

	// ErrInvalidDirection indicates an unknown Direction value.
	ErrInvalidDirection = fmt.Errorf("%w: invalid direction", ErrInvalidArgument)

	// ErrNegativeValue indicates a record or checkpoint value below zero.
	ErrNegativeValue = fmt.Errorf("%w: negative value", ErrInvalidArgument)

	// ErrInvalidTime indicates a timestamp whose year does not fit the
	// 4-digit year shard.
	ErrInvalidTime = fmt.Errorf("%w: timestamp out of range", ErrInvalidArgument)
)

// ErrOverflow indicates a leaf, range or checkpoint total that does not fit
// in an int64. It is a property of the stored data, not of the arguments.
var ErrOverflow = errors.New("total overflows int64")

// AddTotal returns a+b for non-negative totals, or ErrOverflow if the sum
// does not fit in an int64.
func AddTotal(a, b int64) (int64, error) {
	if b > math.MaxInt64-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}
