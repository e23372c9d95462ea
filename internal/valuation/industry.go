package valuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RoacherM/a-share-mcp-server/internal/markdown"
	"github.com/RoacherM/a-share-mcp-server/internal/utils"
)

// Metrics compared across an industry, in report order.
var industryMetricFields = []string{"peTTM", "pbMRQ", "psTTM"}

var industryMetricNames = map[string]string{
	"peTTM": "市盈率TTM",
	"pbMRQ": "市净率MRQ",
	"psTTM": "市销率TTM",
}

var industryVerdictNames = map[string]string{
	"peTTM": "市盈率",
	"pbMRQ": "市净率",
	"psTTM": "市销率",
}

const industryTableRows = 10

// peerValuation holds the latest valuation snapshot of one industry peer.
type peerValuation struct {
	Code     string
	Name     string
	Metrics  map[string]float64 // only fields that parsed
	Price    float64
	HasPrice bool
	IsTarget bool
}

// IndustryComparison compares the target security's valuation ratios against
// all companies in its industry as of date (latest trading day when empty).
func (s *Service) IndustryComparison(ctx context.Context, code, date string) (string, error) {
	s.logger.Info().Str("code", code).Msg("Tool 'compare_industry_valuation' called")

	industryInfo, err := s.source.GetStockIndustry(ctx, code, date)
	if err != nil {
		return "", fmt.Errorf("unable to fetch industry information for %s: %w", code, err)
	}
	targetIndustry := industryInfo.Rows[0]["industry"]
	if targetIndustry == "" {
		return "", fmt.Errorf("no industry classification for %s", code)
	}

	allStocks, err := s.source.GetStockIndustry(ctx, "", date)
	if err != nil {
		return "", fmt.Errorf("unable to fetch industry constituents: %w", err)
	}

	var peers []struct{ Code, Name string }
	for _, row := range allStocks.Rows {
		if row["industry"] != targetIndustry {
			continue
		}
		name := row["code_name"]
		if name == "" {
			name = row["code"]
		}
		peers = append(peers, struct{ Code, Name string }{row["code"], name})
	}
	if len(peers) < 2 {
		return "", fmt.Errorf("insufficient companies in industry %q for comparison", targetIndustry)
	}

	endDate := date
	if endDate == "" {
		endDate = s.now().Format(dateLayout)
	}
	startDate, err := weekBefore(endDate)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}

	// Latest snapshot per peer; individual fetch failures are logged and
	// skipped so one suspended stock cannot sink the whole comparison.
	fields := append([]string{"date", "code", "close"}, industryMetricFields...)
	var valuations []peerValuation
	for _, peer := range peers {
		rs, err := s.source.GetHistoricalKData(ctx, peer.Code, startDate, endDate, "d", "3", fields)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", peer.Code).Msg("Failed to fetch peer valuation data")
			continue
		}

		latest := rs.Rows[len(rs.Rows)-1]
		pv := peerValuation{
			Code:     peer.Code,
			Name:     peer.Name,
			Metrics:  make(map[string]float64, len(industryMetricFields)),
			IsTarget: peer.Code == code,
		}
		for _, metric := range industryMetricFields {
			if v, ok := utils.ParseFloat(latest[metric]); ok {
				pv.Metrics[metric] = v
			}
		}
		if v, ok := utils.ParseFloat(latest["close"]); ok {
			pv.Price = v
			pv.HasPrice = true
		}
		valuations = append(valuations, pv)
	}
	if len(valuations) < 2 {
		return "", fmt.Errorf("unable to fetch sufficient valuation data for industry comparison")
	}

	var target *peerValuation
	for i := range valuations {
		if valuations[i].IsTarget {
			target = &valuations[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("target company %s not found in industry data", code)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s) 行业估值比较\n\n", target.Name, code)
	fmt.Fprintf(&sb, "**所属行业**: %s\n", targetIndustry)
	fmt.Fprintf(&sb, "**同行业公司数量**: %d 家\n", len(valuations))
	fmt.Fprintf(&sb, "**比较基准日**: %s\n\n", endDate)

	sb.WriteString("## 目标公司当前估值\n")
	for _, metric := range industryMetricFields {
		if v, ok := target.Metrics[metric]; ok {
			fmt.Fprintf(&sb, "- **%s**: %.2f\n", industryMetricNames[metric], v)
		}
	}

	fmt.Fprintf(&sb, "\n## %s行业估值统计\n", targetIndustry)
	industryMeans := make(map[string]float64)
	for _, metric := range industryMetricFields {
		values := peerMetricValues(valuations, metric)
		if len(values) == 0 {
			continue
		}
		industryMeans[metric] = mean(values)
		lo, hi := minMax(values)

		fmt.Fprintf(&sb, "\n### %s\n", industryMetricNames[metric])
		fmt.Fprintf(&sb, "- 行业均值: %.2f\n", industryMeans[metric])
		fmt.Fprintf(&sb, "- 行业中位数: %.2f\n", median(values))
		fmt.Fprintf(&sb, "- 行业区间: %.2f - %.2f\n", lo, hi)

		if v, ok := target.Metrics[metric]; ok {
			fmt.Fprintf(&sb, "- **目标公司**: %.2f\n", v)
			fmt.Fprintf(&sb, "- **相对均值**: %+.1f%%\n", deviationFromMean(values, v))
			fmt.Fprintf(&sb, "- **行业排名**: 第%.0f分位\n", percentileOfValue(values, v))
		}
	}

	sb.WriteString("\n## 估值水平评价\n")
	for _, metric := range industryMetricFields {
		meanValue, haveMean := industryMeans[metric]
		v, haveTarget := target.Metrics[metric]
		if !haveMean || !haveTarget || meanValue == 0 {
			continue
		}

		var level string
		switch {
		case v < meanValue*0.8:
			level = "明显低估"
		case v < meanValue*0.95:
			level = "轻微低估"
		case v <= meanValue*1.05:
			level = "估值合理"
		case v <= meanValue*1.2:
			level = "轻微高估"
		default:
			level = "明显高估"
		}
		fmt.Fprintf(&sb, "- **%s**: %s（相对行业均值）\n", industryVerdictNames[metric], level)
	}

	// Peer comparison table, first N companies
	tableFields := []string{"code", "code_name", "peTTM", "pbMRQ", "psTTM"}
	display := valuations
	if len(display) > industryTableRows {
		display = display[:industryTableRows]
	}
	tableRows := make([][]string, 0, len(display))
	for _, pv := range display {
		row := []string{pv.Code, pv.Name}
		for _, metric := range industryMetricFields {
			if v, ok := pv.Metrics[metric]; ok {
				row = append(row, fmt.Sprintf("%.2f", v))
			} else {
				row = append(row, "")
			}
		}
		tableRows = append(tableRows, row)
	}

	fmt.Fprintf(&sb, "\n## 行业主要公司估值对比（前%d家）\n", industryTableRows)
	sb.WriteString(markdown.FormatTable(tableFields, tableRows))

	sb.WriteString("\n**说明**: 以上比较基于公开市场数据，实际投资决策还需考虑公司基本面、成长性等因素。")

	s.logger.Info().Str("code", code).Msg("Successfully completed industry valuation comparison")
	return sb.String(), nil
}

func peerMetricValues(valuations []peerValuation, metric string) []float64 {
	values := make([]float64, 0, len(valuations))
	for _, pv := range valuations {
		if v, ok := pv.Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	return values
}

// weekBefore returns the date seven days before an ISO date string.
func weekBefore(date string) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -7).Format(dateLayout), nil
}
