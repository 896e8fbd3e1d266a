package stats

import (
	"math"
	"slices"
	"time"
)

// Median finds the median value in a slice of floats.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Work on a copy to avoid mutating the original
	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return temp[n/2]
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0
}

// RankIndex returns the zero-based index of the p-quantile in a sorted slice of
// length n, using rank round(p*n) with half-to-even rounding, clamped to [0, n-1].
func RankIndex(p float64, n int) int {
	if n <= 0 {
		return -1
	}
	idx := int(math.RoundToEven(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// DurationQuantile returns the p-quantile of the given durations by RankIndex.
func DurationQuantile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	temp := append([]time.Duration(nil), values...)
	slices.Sort(temp)
	return temp[RankIndex(p, len(temp))]
}

// Percentiles holds the forecast-style summary of a sample.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P85 float64 `json:"p85"`
	P95 float64 `json:"p95"`
}

// CalculatePercentiles summarises values by indexing the sorted sample.
func CalculatePercentiles(values []float64) Percentiles {
	if len(values) == 0 {
		return Percentiles{}
	}
	temp := append([]float64(nil), values...)
	slices.Sort(temp)
	at := func(p float64) float64 {
		idx := int(float64(len(temp)) * p)
		if idx >= len(temp) {
			idx = len(temp) - 1
		}
		return temp[idx]
	}
	return Percentiles{P50: at(0.50), P85: at(0.85), P95: at(0.95)}
}
