package valuation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
)

func pegKData(peValues ...string) func(string, string, string, []string) (*datasource.ResultSet, error) {
	return func(code, startDate, endDate string, fields []string) (*datasource.ResultSet, error) {
		rs := &datasource.ResultSet{Fields: []string{"date", "close", "peTTM"}}
		for i, pe := range peValues {
			rs.Rows = append(rs.Rows, datasource.Record{
				"date":  "2025-06-0" + string(rune('1'+i)),
				"close": "10.00",
				"peTTM": pe,
			})
		}
		return rs, nil
	}
}

func TestPEGRatioReport(t *testing.T) {
	src := &fakeSource{
		basic: basicInfo("sh.600519", "贵州茅台"),
		kdata: pegKData("29.50", "30.00"),
		growth: func(code, year string, quarter int) (*datasource.ResultSet, error) {
			return resultSet([]string{"code", "YOYNI"}, []string{code, "15.00"}), nil
		},
	}
	svc := newTestService(src)

	report, err := svc.PEGRatio(context.Background(), "sh.600519", "2024", 4)
	if err != nil {
		t.Fatalf("PEGRatio() error = %v", err)
	}

	for _, want := range []string{
		"# 贵州茅台 (sh.600519) PEG比率分析",
		"**分析时点**: 2024年第4季度",
		"- **市盈率TTM**: 30.00",
		"- **净利润增长率**: 15.00%",
		"- **PEG比率**: 2.000",
		"🔴 **高估**",
		"本次计算基于YOYNI字段的增长率数据",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestPEGRatioInterpretationBands(t *testing.T) {
	tests := []struct {
		name   string
		pe     string
		growth string
		want   string
	}{
		{"negative growth", "20.00", "-5.00", "负增长"},
		{"deep undervalued", "4.00", "10.00", "低估"},
		{"fair", "8.00", "10.00", "合理"},
		{"slightly high", "12.00", "10.00", "偏高"},
		{"overvalued", "18.00", "10.00", "高估"},
		{"severely overvalued", "25.00", "10.00", "严重高估"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				kdata: pegKData(tt.pe),
				growth: func(code, year string, quarter int) (*datasource.ResultSet, error) {
					return resultSet([]string{"YOYNI"}, []string{tt.growth}), nil
				},
			}
			svc := newTestService(src)

			report, err := svc.PEGRatio(context.Background(), "sh.600000", "2024", 4)
			if err != nil {
				t.Fatalf("PEGRatio() error = %v", err)
			}
			if !strings.Contains(report, tt.want) {
				t.Errorf("report missing %q:\n%s", tt.want, report)
			}
		})
	}
}

func TestPEGRatioGrowthFieldFallback(t *testing.T) {
	// YOYNI missing and YOYProfit zero; the lookup must land on YOYEPSBasic.
	src := &fakeSource{
		kdata: pegKData("10.00"),
		growth: func(code, year string, quarter int) (*datasource.ResultSet, error) {
			return resultSet([]string{"YOYProfit", "YOYEPSBasic"}, []string{"0", "8.00"}), nil
		},
	}
	svc := newTestService(src)

	report, err := svc.PEGRatio(context.Background(), "sh.600000", "2024", 2)
	if err != nil {
		t.Fatalf("PEGRatio() error = %v", err)
	}
	if !strings.Contains(report, "本次计算基于YOYEPSBasic字段的增长率数据") {
		t.Errorf("report missing fallback field note:\n%s", report)
	}
	if !strings.Contains(report, "- **PEG比率**: 1.250") {
		t.Errorf("report missing PEG value:\n%s", report)
	}
}

func TestPEGRatioMissingInputsYieldExplanation(t *testing.T) {
	// PE present, growth row has no usable field: report explains instead of
	// failing.
	src := &fakeSource{
		kdata: pegKData("22.00"),
		growth: func(code, year string, quarter int) (*datasource.ResultSet, error) {
			return resultSet([]string{"code"}, []string{"sh.600000"}), nil
		},
	}
	svc := newTestService(src)

	report, err := svc.PEGRatio(context.Background(), "sh.600000", "2024", 4)
	if err != nil {
		t.Fatalf("PEGRatio() error = %v", err)
	}
	if !strings.Contains(report, "缺少有效的净利润增长率数据") {
		t.Errorf("report missing growth explanation:\n%s", report)
	}
	if !strings.Contains(report, "- 当前市盈率TTM: 22.00") {
		t.Errorf("report should still include the PE it found:\n%s", report)
	}

	// No PE at all: shorter explanation.
	src = &fakeSource{
		kdata: pegKData("None"),
		growth: func(code, year string, quarter int) (*datasource.ResultSet, error) {
			return resultSet([]string{"YOYNI"}, []string{"10.00"}), nil
		},
	}
	svc = newTestService(src)

	report, err = svc.PEGRatio(context.Background(), "sh.600000", "2024", 4)
	if err != nil {
		t.Fatalf("PEGRatio() error = %v", err)
	}
	if !strings.Contains(report, "缺少有效的市盈率数据") {
		t.Errorf("report missing PE explanation:\n%s", report)
	}
}

func TestPEGRatioFetchFailureIsError(t *testing.T) {
	svc := newTestService(&fakeSource{})

	_, err := svc.PEGRatio(context.Background(), "sh.600000", "2024", 4)
	if !errors.Is(err, datasource.ErrNoData) {
		t.Fatalf("PEGRatio() error = %v, want wrapped ErrNoData", err)
	}
}
