package valuation

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoacherM/a-share-mcp-server/internal/utils"
)

// PEGRatio computes PE / net-profit growth for one reporting period and
// renders the interpretation report. Missing inputs produce an explanatory
// report rather than an error, since "not computable" is a valid answer.
func (s *Service) PEGRatio(ctx context.Context, code, year string, quarter int) (string, error) {
	s.logger.Info().Str("code", code).Str("year", year).Int("quarter", quarter).Msg("Tool 'calculate_peg_ratio' called")

	endDate := s.now().Format(dateLayout)
	startDate := s.now().AddDate(0, 0, -30).Format(dateLayout)

	kdata, err := s.source.GetHistoricalKData(ctx, code, startDate, endDate, "d", "3", []string{"date", "close", "peTTM"})
	if err != nil {
		return "", fmt.Errorf("unable to fetch valuation data for PEG calculation: %w", err)
	}

	growth, err := s.source.GetGrowthData(ctx, code, year, quarter)
	if err != nil {
		return "", fmt.Errorf("unable to fetch growth data for PEG calculation: %w", err)
	}

	name := s.stockDisplayName(ctx, code)

	// Latest usable PE over the lookback window
	var latestPE float64
	havePE := false
	for i := len(kdata.Rows) - 1; i >= 0; i-- {
		if v, ok := utils.ParseFloat(kdata.Rows[i]["peTTM"]); ok {
			latestPE = v
			havePE = true
			break
		}
	}

	growthField, growthRate, haveGrowth := utils.FirstNonZeroNumeric(growth.Rows[0], growthFieldCandidates)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s) PEG比率分析\n\n", name, code)
	fmt.Fprintf(&sb, "**分析时点**: %s年第%d季度\n\n", year, quarter)

	if !havePE {
		sb.WriteString("❌ **无法计算PEG**: 缺少有效的市盈率数据\n")
		return sb.String(), nil
	}
	if !haveGrowth {
		sb.WriteString("❌ **无法计算PEG**: 缺少有效的净利润增长率数据\n")
		fmt.Fprintf(&sb, "- 当前市盈率TTM: %.2f\n", latestPE)
		return sb.String(), nil
	}

	pegRatio := latestPE / growthRate

	sb.WriteString("## PEG比率计算结果\n")
	fmt.Fprintf(&sb, "- **市盈率TTM**: %.2f\n", latestPE)
	fmt.Fprintf(&sb, "- **净利润增长率**: %.2f%%\n", growthRate)
	fmt.Fprintf(&sb, "- **PEG比率**: %.3f\n\n", pegRatio)

	sb.WriteString("## PEG比率解读\n")
	switch {
	case pegRatio < 0:
		sb.WriteString("⚠️ **负增长**: 公司净利润出现负增长，PEG比率失去参考意义\n")
	case pegRatio < 0.5:
		sb.WriteString("🟢 **低估**: PEG < 0.5，股票可能被严重低估\n")
	case pegRatio <= 1.0:
		sb.WriteString("🟡 **合理**: 0.5 ≤ PEG ≤ 1.0，估值相对合理\n")
	case pegRatio <= 1.5:
		sb.WriteString("🟠 **偏高**: 1.0 < PEG ≤ 1.5，估值偏高但可接受\n")
	case pegRatio <= 2.0:
		sb.WriteString("🔴 **高估**: 1.5 < PEG ≤ 2.0，股票可能被高估\n")
	default:
		sb.WriteString("🔴 **严重高估**: PEG > 2.0，股票可能被严重高估\n")
	}

	sb.WriteString("\n## 说明\n")
	sb.WriteString("- PEG比率结合了估值和成长性，比单纯的PE更全面\n")
	sb.WriteString("- 一般认为PEG=1为合理估值的分水岭\n")
	fmt.Fprintf(&sb, "- 本次计算基于%s字段的增长率数据\n", growthField)
	sb.WriteString("- PEG分析应结合行业特点和市场环境综合判断\n")

	s.logger.Info().Str("code", code).Msg("Successfully calculated PEG ratio")
	return sb.String(), nil
}
