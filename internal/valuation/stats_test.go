package valuation

import (
	"math"
	"testing"
)

func TestMeanMinMax(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	if got := mean(values); got != 2.5 {
		t.Errorf("mean() = %v, want 2.5", got)
	}
	lo, hi := minMax(values)
	if lo != 1 || hi != 4 {
		t.Errorf("minMax() = (%v, %v), want (1, 4)", lo, hi)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("median(odd) = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median(even) = %v, want 2.5", got)
	}
}

func TestStdDev(t *testing.T) {
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138.
	got := stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2.13809) > 1e-4 {
		t.Errorf("stdDev() = %v, want ~2.138", got)
	}

	if got := stdDev([]float64{5}); got != 0 {
		t.Errorf("stdDev(single) = %v, want 0", got)
	}
}

func TestPercentileOfValue(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	tests := []struct {
		v    float64
		want float64
	}{
		{10, 25},
		{25, 50},
		{40, 100},
		{5, 0},
	}
	for _, tt := range tests {
		if got := percentileOfValue(values, tt.v); got != tt.want {
			t.Errorf("percentileOfValue(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestDeviationFromMean(t *testing.T) {
	values := []float64{10, 20, 30} // mean 20

	if got := deviationFromMean(values, 25); math.Abs(got-25) > 1e-9 {
		t.Errorf("deviationFromMean(25) = %v, want 25", got)
	}
	if got := deviationFromMean(values, 15); math.Abs(got+25) > 1e-9 {
		t.Errorf("deviationFromMean(15) = %v, want -25", got)
	}
	if got := deviationFromMean([]float64{-5, 5}, 3); got != 0 {
		t.Errorf("deviationFromMean with zero mean = %v, want 0", got)
	}
}
