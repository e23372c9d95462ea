package dcf

import (
	"fmt"
	"math"
)

// Default model parameters, matching the common WACC/perpetuity assumptions
// used across the report tools.
const (
	DefaultTerminalGrowthRate = 0.025
	DefaultDiscountRate       = 0.10
	DefaultForecastYears      = 5

	// MaxForecastGrowthRate caps the projection growth rate so a short or
	// volatile history cannot extrapolate into a runaway forecast. No floor
	// is applied: a shrinking business projects as shrinking.
	MaxForecastGrowthRate = 0.15
)

// Params holds the DCF model assumptions.
type Params struct {
	TerminalGrowthRate float64
	DiscountRate       float64
	ForecastYears      int
}

// DefaultParams returns the standard model assumptions (2.5% perpetuity
// growth, 10% discount rate, 5 forecast years).
func DefaultParams() Params {
	return Params{
		TerminalGrowthRate: DefaultTerminalGrowthRate,
		DiscountRate:       DefaultDiscountRate,
		ForecastYears:      DefaultForecastYears,
	}
}

// Result holds the valuation outputs, including intermediates so callers can
// render a full audit trail. Values are plain floats in the currency unit of
// the input cash flows; rounding is a caller concern.
type Result struct {
	EnterpriseValue      float64
	PVForecast           float64 // present value of the explicit forecast period
	PVTerminal           float64 // present value of the terminal value
	TerminalValue        float64
	ForecastGrowthRate   float64
	HistoricalGrowthRate float64
	ProjectedCashFlows   []float64 // length == ForecastYears
}

// InsufficientDataError indicates fewer than two usable cash flows, either
// before or after filtering out non-positive values.
type InsufficientDataError struct {
	Usable int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient cash flow data for DCF calculation: %d usable values, need at least 2", e.Usable)
}

// InvalidParameterError indicates model assumptions that would produce a
// degenerate valuation.
type InvalidParameterError struct {
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return "invalid DCF parameter: " + e.Reason
}

// Compute runs a discounted cash flow valuation over historical annual cash
// flows ordered oldest to newest. Non-positive values are dropped before the
// growth estimate; the remaining series drives a CAGR-based projection of
// ForecastYears future cash flows, capitalized into a Gordon-growth terminal
// value and discounted to present.
//
// The function is pure and safe for concurrent use.
func Compute(cashFlows []float64, p Params) (*Result, error) {
	if p.ForecastYears < 1 {
		return nil, &InvalidParameterError{Reason: fmt.Sprintf("forecast years must be >= 1, got %d", p.ForecastYears)}
	}
	// The perpetuity denominator (r - g) must stay positive, otherwise the
	// terminal value comes out negative or infinite.
	if p.DiscountRate <= p.TerminalGrowthRate {
		return nil, &InvalidParameterError{
			Reason: fmt.Sprintf("discount rate %.4f must exceed terminal growth rate %.4f", p.DiscountRate, p.TerminalGrowthRate),
		}
	}

	if len(cashFlows) < 2 {
		return nil, &InsufficientDataError{Usable: len(cashFlows)}
	}

	// Only strictly positive cash flows participate in the growth estimate.
	positive := make([]float64, 0, len(cashFlows))
	for _, cf := range cashFlows {
		if cf > 0 {
			positive = append(positive, cf)
		}
	}
	if len(positive) < 2 {
		return nil, &InsufficientDataError{Usable: len(positive)}
	}

	n := len(positive)
	historicalGrowth := math.Pow(positive[n-1]/positive[0], 1/float64(n-1)) - 1

	forecastGrowth := historicalGrowth
	if forecastGrowth > MaxForecastGrowthRate {
		forecastGrowth = MaxForecastGrowthRate
	}

	// Project future cash flows compounding from the last known value.
	lastCF := positive[n-1]
	projected := make([]float64, p.ForecastYears)
	for year := 1; year <= p.ForecastYears; year++ {
		projected[year-1] = lastCF * math.Pow(1+forecastGrowth, float64(year))
	}

	// Terminal value: grow the final projected year one more period, then
	// capitalize as a perpetuity.
	terminalCF := projected[p.ForecastYears-1] * (1 + p.TerminalGrowthRate)
	terminalValue := terminalCF / (p.DiscountRate - p.TerminalGrowthRate)

	var pvForecast float64
	for year := 1; year <= p.ForecastYears; year++ {
		pvForecast += projected[year-1] / math.Pow(1+p.DiscountRate, float64(year))
	}
	pvTerminal := terminalValue / math.Pow(1+p.DiscountRate, float64(p.ForecastYears))

	return &Result{
		EnterpriseValue:      pvForecast + pvTerminal,
		PVForecast:           pvForecast,
		PVTerminal:           pvTerminal,
		TerminalValue:        terminalValue,
		ForecastGrowthRate:   forecastGrowth,
		HistoricalGrowthRate: historicalGrowth,
		ProjectedCashFlows:   projected,
	}, nil
}
