package valuation

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
	"github.com/RoacherM/a-share-mcp-server/internal/markdown"
	"github.com/RoacherM/a-share-mcp-server/internal/utils"
)

// Valuation ratio columns carried by daily bars, in report order.
var valuationMetricFields = []string{"peTTM", "pbMRQ", "psTTM", "pcfNcfTTM"}

var valuationMetricNames = map[string]string{
	"peTTM":     "市盈率TTM",
	"pbMRQ":     "市净率MRQ",
	"psTTM":     "市销率TTM",
	"pcfNcfTTM": "市现率TTM",
}

const recentTableRows = 30

// ValuationMetrics builds the valuation ratio trend report for a security.
// Empty dates default to the last year ending today.
func (s *Service) ValuationMetrics(ctx context.Context, code, startDate, endDate string) (string, error) {
	s.logger.Info().Str("code", code).Msg("Tool 'get_valuation_metrics' called")

	if endDate == "" {
		endDate = s.now().Format(dateLayout)
	}
	if startDate == "" {
		startDate = s.now().AddDate(0, 0, -365).Format(dateLayout)
	}

	fields := append([]string{"date", "code", "close"}, valuationMetricFields...)
	rs, err := s.source.GetHistoricalKData(ctx, code, startDate, endDate, "d", "3", fields)
	if err != nil {
		return "", fmt.Errorf("no valuation data found for %s: %w", code, err)
	}

	// Drop rows without a usable close, the way a coercing numeric
	// conversion would.
	rows := make([]datasource.Record, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if _, ok := utils.ParseFloat(row["close"]); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no valuation data found for %s: %w", code, datasource.ErrNoData)
	}

	name := s.stockDisplayName(ctx, code)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s) 估值指标分析\n\n", name, code)
	fmt.Fprintf(&sb, "**分析期间**: %s 至 %s\n", startDate, endDate)
	fmt.Fprintf(&sb, "**数据点数**: %d 个交易日\n\n", len(rows))

	// Latest snapshot
	latest := rows[len(rows)-1]
	sb.WriteString("## 最新估值指标\n")
	if close, ok := utils.ParseFloat(latest["close"]); ok {
		fmt.Fprintf(&sb, "- **收盘价**: %.2f\n", close)
	}
	for _, metric := range valuationMetricFields {
		if v, ok := utils.ParseFloat(latest[metric]); ok {
			fmt.Fprintf(&sb, "- **%s**: %.2f\n", valuationMetricNames[metric], v)
		}
	}

	// Per-metric trend statistics over the whole window
	sb.WriteString("\n## 估值指标趋势分析\n")
	for _, metric := range valuationMetricFields {
		values := parseColumn(rows, metric)
		if len(values) == 0 {
			continue
		}

		current := values[len(values)-1]
		avg := mean(values)
		lo, hi := minMax(values)

		fmt.Fprintf(&sb, "\n### %s\n", valuationMetricNames[metric])
		fmt.Fprintf(&sb, "- 当前值: %.2f\n", current)
		fmt.Fprintf(&sb, "- 历史均值: %.2f\n", avg)
		fmt.Fprintf(&sb, "- 历史区间: %.2f - %.2f\n", lo, hi)
		fmt.Fprintf(&sb, "- 相对均值: %+.1f%%\n", deviationFromMean(values, current))
		fmt.Fprintf(&sb, "- 历史分位: %.1f%%\n", percentileOfValue(values, current))
	}

	// Recent trading day table
	tableFields := []string{"date", "close", "peTTM", "pbMRQ", "psTTM"}
	recent := rows
	if len(recent) > recentTableRows {
		recent = recent[len(recent)-recentTableRows:]
	}
	tableRows := make([][]string, 0, len(recent))
	for _, row := range recent {
		cells := make([]string, len(tableFields))
		for i, f := range tableFields {
			if f == "date" {
				cells[i] = row[f]
				continue
			}
			if v, ok := utils.ParseFloat(row[f]); ok {
				cells[i] = fmt.Sprintf("%.4f", v)
			}
		}
		tableRows = append(tableRows, cells)
	}

	fmt.Fprintf(&sb, "\n## 最近%d个交易日估值数据\n", recentTableRows)
	sb.WriteString(markdown.FormatTable(tableFields, tableRows))

	s.logger.Info().Str("code", code).Msg("Successfully generated valuation metrics")
	return sb.String(), nil
}

// parseColumn extracts the numeric values of one field across rows, skipping
// cells that do not parse.
func parseColumn(rows []datasource.Record, field string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := utils.ParseFloat(row[field]); ok {
			values = append(values, v)
		}
	}
	return values
}
