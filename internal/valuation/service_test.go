package valuation

import (
	"context"
	"time"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
)

// fakeSource is a scriptable FinancialDataSource for report tests. Unset
// methods behave like empty queries.
type fakeSource struct {
	kdata    func(code, startDate, endDate string, fields []string) (*datasource.ResultSet, error)
	growth   func(code, year string, quarter int) (*datasource.ResultSet, error)
	cashFlow func(code, year string, quarter int) (*datasource.ResultSet, error)
	basic    func(code string) (*datasource.ResultSet, error)
	industry func(code, date string) (*datasource.ResultSet, error)
}

func (f *fakeSource) GetHistoricalKData(_ context.Context, code, startDate, endDate, _, _ string, fields []string) (*datasource.ResultSet, error) {
	if f.kdata == nil {
		return nil, datasource.ErrNoData
	}
	return f.kdata(code, startDate, endDate, fields)
}

func (f *fakeSource) GetGrowthData(_ context.Context, code, year string, quarter int) (*datasource.ResultSet, error) {
	if f.growth == nil {
		return nil, datasource.ErrNoData
	}
	return f.growth(code, year, quarter)
}

func (f *fakeSource) GetCashFlowData(_ context.Context, code, year string, quarter int) (*datasource.ResultSet, error) {
	if f.cashFlow == nil {
		return nil, datasource.ErrNoData
	}
	return f.cashFlow(code, year, quarter)
}

func (f *fakeSource) GetStockBasicInfo(_ context.Context, code string) (*datasource.ResultSet, error) {
	if f.basic == nil {
		return nil, datasource.ErrNoData
	}
	return f.basic(code)
}

func (f *fakeSource) GetStockIndustry(_ context.Context, code, date string) (*datasource.ResultSet, error) {
	if f.industry == nil {
		return nil, datasource.ErrNoData
	}
	return f.industry(code, date)
}

// testNow pins the clock so date-range defaulting is deterministic.
var testNow = time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC)

func newTestService(src datasource.FinancialDataSource) *Service {
	s := NewService(src)
	s.now = func() time.Time { return testNow }
	return s
}

// resultSet builds a ResultSet from a header and cell rows.
func resultSet(fields []string, rows ...[]string) *datasource.ResultSet {
	rs := &datasource.ResultSet{Fields: fields}
	for _, cells := range rows {
		row := make(datasource.Record, len(fields))
		for i, f := range fields {
			if i < len(cells) {
				row[f] = cells[i]
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

// basicInfo returns a one-row stock metadata result with a display name.
func basicInfo(code, name string) func(string) (*datasource.ResultSet, error) {
	return func(string) (*datasource.ResultSet, error) {
		return resultSet([]string{"code", "code_name"}, []string{code, name}), nil
	}
}
