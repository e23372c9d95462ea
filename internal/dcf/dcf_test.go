package dcf

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= relTol*scale
}

func TestComputeInsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		cashFlows []float64
	}{
		{"empty", nil},
		{"single value", []float64{100}},
		{"two values but one negative", []float64{100, -50}},
		{"all non-positive", []float64{-10, 0, -20}},
		{"one positive after filtering", []float64{-10, 100, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.cashFlows, DefaultParams())
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("Compute(%v) error = %v, want InsufficientDataError", tt.cashFlows, err)
			}
		})
	}
}

func TestComputeInvalidParameters(t *testing.T) {
	cashFlows := []float64{100, 110, 121}

	tests := []struct {
		name   string
		params Params
	}{
		{"zero forecast years", Params{TerminalGrowthRate: 0.025, DiscountRate: 0.10, ForecastYears: 0}},
		{"discount equals terminal growth", Params{TerminalGrowthRate: 0.10, DiscountRate: 0.10, ForecastYears: 5}},
		{"discount below terminal growth", Params{TerminalGrowthRate: 0.12, DiscountRate: 0.10, ForecastYears: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(cashFlows, tt.params)
			var invalid *InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Fatalf("Compute() error = %v, want InvalidParameterError", err)
			}
		})
	}
}

func TestComputeConstantCashFlows(t *testing.T) {
	res, err := Compute([]float64{100, 100, 100}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if res.HistoricalGrowthRate != 0 {
		t.Errorf("HistoricalGrowthRate = %v, want 0", res.HistoricalGrowthRate)
	}
	if res.ForecastGrowthRate != 0 {
		t.Errorf("ForecastGrowthRate = %v, want 0", res.ForecastGrowthRate)
	}
	for i, cf := range res.ProjectedCashFlows {
		if !almostEqual(cf, 100, 1e-12) {
			t.Errorf("ProjectedCashFlows[%d] = %v, want 100", i, cf)
		}
	}
}

func TestComputeGrowthCap(t *testing.T) {
	// One CAGR step of 900% must still be capped at 15%.
	res, err := Compute([]float64{100, 1000}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if res.ForecastGrowthRate != MaxForecastGrowthRate {
		t.Errorf("ForecastGrowthRate = %v, want %v", res.ForecastGrowthRate, MaxForecastGrowthRate)
	}
	if !almostEqual(res.HistoricalGrowthRate, 9.0, 1e-9) {
		t.Errorf("HistoricalGrowthRate = %v, want 9.0", res.HistoricalGrowthRate)
	}
	if !almostEqual(res.ProjectedCashFlows[0], 1000*1.15, 1e-12) {
		t.Errorf("ProjectedCashFlows[0] = %v, want %v", res.ProjectedCashFlows[0], 1000*1.15)
	}
}

func TestComputeNegativeGrowthNotFloored(t *testing.T) {
	res, err := Compute([]float64{200, 180, 162}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !almostEqual(res.HistoricalGrowthRate, -0.10, 1e-9) {
		t.Errorf("HistoricalGrowthRate = %v, want -0.10", res.HistoricalGrowthRate)
	}
	if res.ForecastGrowthRate != res.HistoricalGrowthRate {
		t.Errorf("ForecastGrowthRate = %v, want historical %v", res.ForecastGrowthRate, res.HistoricalGrowthRate)
	}
	// A shrinking business projects as shrinking.
	if res.ProjectedCashFlows[0] >= 162 {
		t.Errorf("ProjectedCashFlows[0] = %v, want < 162", res.ProjectedCashFlows[0])
	}
}

func TestComputeEnterpriseValueIdentity(t *testing.T) {
	series := [][]float64{
		{100, 110, 121},
		{50, 55, 60, 70, 90},
		{1000, 900, 950, 1100},
		{3, 5, 8, 13, 21, 34},
	}

	for _, cashFlows := range series {
		res, err := Compute(cashFlows, DefaultParams())
		if err != nil {
			t.Fatalf("Compute(%v) error = %v", cashFlows, err)
		}
		sum := res.PVForecast + res.PVTerminal
		if !almostEqual(res.EnterpriseValue, sum, 1e-9) {
			t.Errorf("Compute(%v): EnterpriseValue = %v, PVForecast+PVTerminal = %v", cashFlows, res.EnterpriseValue, sum)
		}
	}
}

func TestComputeWorkedExample(t *testing.T) {
	// 10% CAGR over two steps, growth under the cap, default assumptions.
	res, err := Compute([]float64{100, 110, 121}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !almostEqual(res.HistoricalGrowthRate, 0.10, 1e-9) {
		t.Errorf("HistoricalGrowthRate = %v, want 0.10", res.HistoricalGrowthRate)
	}
	if !almostEqual(res.ForecastGrowthRate, 0.10, 1e-9) {
		t.Errorf("ForecastGrowthRate = %v, want 0.10", res.ForecastGrowthRate)
	}

	wantProjected := []float64{133.1, 146.41, 161.051, 177.1561, 194.87171}
	if len(res.ProjectedCashFlows) != len(wantProjected) {
		t.Fatalf("len(ProjectedCashFlows) = %d, want %d", len(res.ProjectedCashFlows), len(wantProjected))
	}
	for i, want := range wantProjected {
		if !almostEqual(res.ProjectedCashFlows[i], want, 1e-9) {
			t.Errorf("ProjectedCashFlows[%d] = %v, want %v", i, res.ProjectedCashFlows[i], want)
		}
	}

	// Growth equals the discount rate, so every forecast year discounts back
	// to exactly the last historical cash flow: PV of the forecast is 5*121.
	if !almostEqual(res.PVForecast, 605, 1e-9) {
		t.Errorf("PVForecast = %v, want 605", res.PVForecast)
	}

	wantTerminal := 194.87171 * 1.025 / (0.10 - 0.025)
	if !almostEqual(res.TerminalValue, wantTerminal, 1e-9) {
		t.Errorf("TerminalValue = %v, want %v", res.TerminalValue, wantTerminal)
	}
	wantPVTerminal := wantTerminal / math.Pow(1.10, 5)
	if !almostEqual(res.PVTerminal, wantPVTerminal, 1e-9) {
		t.Errorf("PVTerminal = %v, want %v", res.PVTerminal, wantPVTerminal)
	}
	if !almostEqual(res.EnterpriseValue, 605+wantPVTerminal, 1e-9) {
		t.Errorf("EnterpriseValue = %v, want %v", res.EnterpriseValue, 605+wantPVTerminal)
	}
}

func TestComputeFiltersNonPositive(t *testing.T) {
	withNegative, err := Compute([]float64{100, -50, 110, 121}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	clean, err := Compute([]float64{100, 110, 121}, DefaultParams())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !almostEqual(withNegative.EnterpriseValue, clean.EnterpriseValue, 1e-12) {
		t.Errorf("EnterpriseValue with filtered entry = %v, want %v", withNegative.EnterpriseValue, clean.EnterpriseValue)
	}
	if withNegative.HistoricalGrowthRate != clean.HistoricalGrowthRate {
		t.Errorf("HistoricalGrowthRate = %v, want %v", withNegative.HistoricalGrowthRate, clean.HistoricalGrowthRate)
	}
}

func TestComputeDiscountRateMonotonicity(t *testing.T) {
	cashFlows := []float64{80, 95, 105, 120}

	prev := math.Inf(1)
	for _, rate := range []float64{0.06, 0.08, 0.10, 0.12, 0.15, 0.20} {
		res, err := Compute(cashFlows, Params{
			TerminalGrowthRate: 0.025,
			DiscountRate:       rate,
			ForecastYears:      5,
		})
		if err != nil {
			t.Fatalf("Compute() with rate %v error = %v", rate, err)
		}
		if res.EnterpriseValue >= prev {
			t.Errorf("EnterpriseValue at rate %v = %v, want < %v", rate, res.EnterpriseValue, prev)
		}
		prev = res.EnterpriseValue
	}
}
