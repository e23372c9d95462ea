package valuation

import (
	"context"
	"strings"
	"testing"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
)

// bankIndustry scripts an industry classification with three banks and one
// unrelated company.
func bankIndustry(code, date string) (*datasource.ResultSet, error) {
	fields := []string{"code", "code_name", "industry"}
	all := [][]string{
		{"sh.600000", "浦发银行", "银行"},
		{"sh.600036", "招商银行", "银行"},
		{"sh.601398", "工商银行", "银行"},
		{"sh.600519", "贵州茅台", "白酒"},
	}
	if code == "" {
		return resultSet(fields, all...), nil
	}
	for _, row := range all {
		if row[0] == code {
			return resultSet(fields, row), nil
		}
	}
	return nil, datasource.ErrNoData
}

// peerQuotes scripts the latest valuation snapshot per peer code.
func peerQuotes(quotes map[string][]string) func(string, string, string, []string) (*datasource.ResultSet, error) {
	return func(code, startDate, endDate string, fields []string) (*datasource.ResultSet, error) {
		cells, ok := quotes[code]
		if !ok {
			return nil, datasource.ErrNoData
		}
		return resultSet([]string{"date", "code", "close", "peTTM", "pbMRQ", "psTTM"}, cells), nil
	}
}

func TestIndustryComparisonReport(t *testing.T) {
	src := &fakeSource{
		industry: bankIndustry,
		kdata: peerQuotes(map[string][]string{
			"sh.600000": {"2025-06-13", "sh.600000", "7.85", "4.00", "0.45", "1.20"},
			"sh.600036": {"2025-06-13", "sh.600036", "34.20", "6.00", "0.95", "3.10"},
			"sh.601398": {"2025-06-13", "sh.601398", "5.40", "8.00", "0.60", "1.90"},
		}),
	}
	svc := newTestService(src)

	report, err := svc.IndustryComparison(context.Background(), "sh.600000", "")
	if err != nil {
		t.Fatalf("IndustryComparison() error = %v", err)
	}

	for _, want := range []string{
		"# 浦发银行 (sh.600000) 行业估值比较",
		"**所属行业**: 银行",
		"**同行业公司数量**: 3 家",
		"**比较基准日**: 2025-06-16",
		"- **市盈率TTM**: 4.00",
		// PE values 4/6/8: mean 6, median 6, target deviates -33.3%.
		"- 行业均值: 6.00",
		"- 行业中位数: 6.00",
		"- 行业区间: 4.00 - 8.00",
		"- **相对均值**: -33.3%",
		// 4.00 is below 80% of the industry mean.
		"- **市盈率**: 明显低估（相对行业均值）",
		"| code | code_name | peTTM | pbMRQ | psTTM |",
		"| sh.600036 | 招商银行 | 6.00 | 0.95 | 3.10 |",
		"**说明**",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	// The off-industry company must not leak into the comparison.
	if strings.Contains(report, "贵州茅台") {
		t.Errorf("report includes company from another industry:\n%s", report)
	}
}

func TestIndustryComparisonPeerFailuresSkipped(t *testing.T) {
	// One peer has no quotes; comparison proceeds with the rest.
	src := &fakeSource{
		industry: bankIndustry,
		kdata: peerQuotes(map[string][]string{
			"sh.600000": {"2025-06-13", "sh.600000", "7.85", "4.00", "0.45", "1.20"},
			"sh.600036": {"2025-06-13", "sh.600036", "34.20", "6.00", "0.95", "3.10"},
		}),
	}
	svc := newTestService(src)

	report, err := svc.IndustryComparison(context.Background(), "sh.600000", "")
	if err != nil {
		t.Fatalf("IndustryComparison() error = %v", err)
	}
	if !strings.Contains(report, "**同行业公司数量**: 2 家") {
		t.Errorf("report should count only fetched peers:\n%s", report)
	}
}

func TestIndustryComparisonTargetDataMissing(t *testing.T) {
	// Peers resolve but the target itself has no quote rows.
	src := &fakeSource{
		industry: bankIndustry,
		kdata: peerQuotes(map[string][]string{
			"sh.600036": {"2025-06-13", "sh.600036", "34.20", "6.00", "0.95", "3.10"},
			"sh.601398": {"2025-06-13", "sh.601398", "5.40", "5.00", "0.60", "1.90"},
		}),
	}
	svc := newTestService(src)

	_, err := svc.IndustryComparison(context.Background(), "sh.600000", "")
	if err == nil || !strings.Contains(err.Error(), "not found in industry data") {
		t.Fatalf("IndustryComparison() error = %v, want target-not-found", err)
	}
}

func TestIndustryComparisonSmallIndustry(t *testing.T) {
	src := &fakeSource{
		industry: func(code, date string) (*datasource.ResultSet, error) {
			return resultSet([]string{"code", "code_name", "industry"},
				[]string{"sh.600519", "贵州茅台", "白酒"}), nil
		},
	}
	svc := newTestService(src)

	_, err := svc.IndustryComparison(context.Background(), "sh.600519", "")
	if err == nil || !strings.Contains(err.Error(), "insufficient companies") {
		t.Fatalf("IndustryComparison() error = %v, want insufficient companies", err)
	}
}

func TestIndustryComparisonExplicitDate(t *testing.T) {
	var gotStart, gotEnd string
	src := &fakeSource{
		industry: bankIndustry,
		kdata: func(code, startDate, endDate string, fields []string) (*datasource.ResultSet, error) {
			gotStart, gotEnd = startDate, endDate
			return peerQuotes(map[string][]string{
				"sh.600000": {"2025-03-06", "sh.600000", "7.85", "4.00", "0.45", "1.20"},
				"sh.600036": {"2025-03-06", "sh.600036", "34.20", "6.00", "0.95", "3.10"},
				"sh.601398": {"2025-03-06", "sh.601398", "5.40", "5.00", "0.60", "1.90"},
			})(code, startDate, endDate, fields)
		},
	}
	svc := newTestService(src)

	report, err := svc.IndustryComparison(context.Background(), "sh.600000", "2025-03-07")
	if err != nil {
		t.Fatalf("IndustryComparison() error = %v", err)
	}

	if gotEnd != "2025-03-07" || gotStart != "2025-02-28" {
		t.Errorf("date window = %s..%s, want 2025-02-28..2025-03-07", gotStart, gotEnd)
	}
	if !strings.Contains(report, "**比较基准日**: 2025-03-07") {
		t.Errorf("report missing explicit base date:\n%s", report)
	}
}
