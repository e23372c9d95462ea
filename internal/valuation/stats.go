package valuation

import (
	"math"
	"sort"
)

// Descriptive statistics over the metric series extracted from query results.
// All helpers expect a non-empty slice unless noted.

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stdDev is the sample standard deviation (n-1 denominator). Returns 0 for
// fewer than two values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// percentileOfValue returns the share of values at or below v, as a
// percentage in [0, 100].
func percentileOfValue(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, x := range values {
		if x <= v {
			count++
		}
	}
	return float64(count) / float64(len(values)) * 100
}

// deviationFromMean returns how far v sits from the series mean, as a signed
// percentage. Zero mean yields zero to avoid a meaningless ratio.
func deviationFromMean(values []float64, v float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return (v/m - 1) * 100
}
