package datasource

import (
	"context"
)

// Record is a single row keyed by field name. Cell values stay as strings the
// way the upstream API returns them; numeric parsing happens at use sites.
type Record map[string]string

// ResultSet is an ordered tabular query result. Fields preserves the column
// order of the upstream response so reports can render tables deterministically.
type ResultSet struct {
	Fields []string
	Rows   []Record
}

// Empty reports whether the result set contains no rows.
func (rs *ResultSet) Empty() bool {
	return rs == nil || len(rs.Rows) == 0
}

// Column returns the values of one field across all rows, preserving row order.
func (rs *ResultSet) Column(field string) []string {
	if rs == nil {
		return nil
	}
	values := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		values = append(values, row[field])
	}
	return values
}

// FinancialDataSource provides historical quotes, periodic fundamentals and
// security metadata for A-share securities. Implementations return ErrNoData
// when a query matches nothing; any other error is fatal for that call.
type FinancialDataSource interface {
	// GetHistoricalKData returns daily bars with valuation ratio columns for
	// code between startDate and endDate (inclusive, "YYYY-MM-DD"). fields
	// selects the columns; nil requests the default set.
	GetHistoricalKData(ctx context.Context, code, startDate, endDate, frequency, adjustFlag string, fields []string) (*ResultSet, error)

	// GetGrowthData returns growth-ability fundamentals for one year/quarter.
	GetGrowthData(ctx context.Context, code, year string, quarter int) (*ResultSet, error)

	// GetCashFlowData returns cash-flow statement fundamentals for one
	// year/quarter. Quarter 4 represents the full fiscal year.
	GetCashFlowData(ctx context.Context, code, year string, quarter int) (*ResultSet, error)

	// GetStockBasicInfo returns basic metadata (display name etc.) for code.
	GetStockBasicInfo(ctx context.Context, code string) (*ResultSet, error)

	// GetStockIndustry returns industry classification rows. With code empty
	// it returns the classification of the whole market as of date.
	GetStockIndustry(ctx context.Context, code, date string) (*ResultSet, error)
}
