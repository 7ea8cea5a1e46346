// Package scoring contains score math shared by the consensus core.
package scoring

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Aggregation methods for per-miner score histories.
const (
	MethodAverage = "average"
	MethodMedian  = "median"
	MethodMax     = "max"
)

// Aggregate reduces a non-empty history to one value. Unknown methods fall
// back to the arithmetic mean, matching the engine default.
func Aggregate(method string, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	switch method {
	case MethodMedian:
		return Median(xs)
	case MethodMax:
		return floats.Max(xs)
	case MethodAverage:
		return stat.Mean(xs, nil)
	default:
		return stat.Mean(xs, nil)
	}
}

// Median is the positional median: the middle element for odd lengths, the
// mean of the two middles for even lengths.
func Median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Normalize scales xs so it sums to 1, for turning score vectors into weight
// vectors. An all-zero input is returned unchanged.
func Normalize(xs []float64) []float64 {
	out := slices.Clone(xs)
	sum := floats.Sum(out)
	if sum == 0 {
		return out
	}
	floats.Scale(1/sum, out)
	return out
}
