// Package score derives ranking scores from pairs of counters.
package score

import "math"

// DefaultZ is the standard normal quantile for a 95% confidence level.
const DefaultZ = 1.96

// WilsonLowerBound returns the lower bound of the Wilson score interval for
// a proportion with the given positive and negative counts:
//
//	n = positive + negative
//	p = positive / n
//	(p + z²/2n - z·sqrt((p(1-p) + z²/4n) / n)) / (1 + z²/n)
//
// It returns 0 when n is 0. Small samples are pulled toward 0, so an entity
// with 95 of 100 positive ranks above one with 1 of 1.
func WilsonLowerBound(positive, negative int64, z float64) float64 {
	n := float64(positive) + float64(negative)
	if n == 0 {
		return 0
	}
	p := float64(positive) / n
	z2 := z * z
	return (p + z2/(2*n) - z*math.Sqrt((p*(1-p)+z2/(4*n))/n)) / (1 + z2/n)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
