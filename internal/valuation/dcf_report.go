package valuation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RoacherM/a-share-mcp-server/internal/dcf"
	"github.com/RoacherM/a-share-mcp-server/internal/utils"
)

// DefaultDCFYearsBack is how many historical fiscal years feed the cash flow
// extrapolation when the caller does not override it.
const DefaultDCFYearsBack = 5

type annualCashFlow struct {
	Year  string
	Value float64 // 万元
}

// DCFValuation gathers annual operating cash flows, runs the DCF engine and
// renders the valuation report. Zero-valued parameters fall back to the model
// defaults.
func (s *Service) DCFValuation(ctx context.Context, code string, yearsBack int, discountRate, terminalGrowthRate float64) (string, error) {
	s.logger.Info().Str("code", code).Msg("Tool 'calculate_dcf_valuation' called")

	if yearsBack <= 0 {
		yearsBack = DefaultDCFYearsBack
	}
	if discountRate == 0 {
		discountRate = dcf.DefaultDiscountRate
	}
	if terminalGrowthRate == 0 {
		terminalGrowthRate = dcf.DefaultTerminalGrowthRate
	}

	name := s.stockDisplayName(ctx, code)

	// Collect annual operating cash flow, most recent completed year first.
	// Q4 data represents the full fiscal year. A year that fails to fetch or
	// parse is skipped, not fatal.
	currentYear := s.now().Year()
	var history []annualCashFlow
	for i := 0; i < yearsBack; i++ {
		year := strconv.Itoa(currentYear - i - 1)

		cfData, err := s.source.GetCashFlowData(ctx, code, year, 4)
		if err != nil {
			s.logger.Debug().Err(err).Str("year", year).Msg("Skipping year without cash flow data")
			continue
		}

		if _, value, ok := utils.FirstNumeric(cfData.Rows[0], cashFlowFieldCandidates); ok {
			history = append(history, annualCashFlow{Year: year, Value: value})
		}
	}

	if len(history) < 2 {
		return "", fmt.Errorf("insufficient cash flow data for DCF calculation (need at least 2 years, got %d)", len(history))
	}

	// Reverse into chronological order for the growth estimate.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	cashFlows := make([]float64, len(history))
	for i, h := range history {
		cashFlows[i] = h.Value
	}

	result, err := dcf.Compute(cashFlows, dcf.Params{
		TerminalGrowthRate: terminalGrowthRate,
		DiscountRate:       discountRate,
		ForecastYears:      dcf.DefaultForecastYears,
	})
	if err != nil {
		return "", fmt.Errorf("DCF calculation failed: %w", err)
	}

	// Current price for context; absence is not fatal.
	currentPrice, havePrice := s.latestClose(ctx, code)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s) DCF估值分析\n\n", name, code)

	sb.WriteString("## 模型参数\n")
	fmt.Fprintf(&sb, "- **折现率 (WACC)**: %.1f%%\n", discountRate*100)
	fmt.Fprintf(&sb, "- **永续增长率**: %.1f%%\n", terminalGrowthRate*100)
	fmt.Fprintf(&sb, "- **预测期**: %d年\n", dcf.DefaultForecastYears)
	fmt.Fprintf(&sb, "- **历史数据期**: %d年\n\n", len(history))

	sb.WriteString("## 历史现金流数据\n")
	for _, h := range history {
		fmt.Fprintf(&sb, "- %s年: %s 万元\n", h.Year, formatAmount(h.Value))
	}

	sb.WriteString("\n## 增长率分析\n")
	fmt.Fprintf(&sb, "- **历史复合增长率**: %.1f%%\n", result.HistoricalGrowthRate*100)
	fmt.Fprintf(&sb, "- **预测增长率**: %.1f%% (保守取值)\n\n", result.ForecastGrowthRate*100)

	sb.WriteString("## DCF估值结果\n")
	fmt.Fprintf(&sb, "- **预测期现金流现值**: %s 万元\n", formatAmount(result.PVForecast))
	fmt.Fprintf(&sb, "- **终值现值**: %s 万元\n", formatAmount(result.PVTerminal))
	fmt.Fprintf(&sb, "- **企业价值**: %s 万元\n\n", formatAmount(result.EnterpriseValue))

	if havePrice {
		sb.WriteString("## 估值比较\n")
		fmt.Fprintf(&sb, "- **当前股价**: %.2f 元\n", currentPrice)
		sb.WriteString("- **DCF理论价值**: 需要股本数据计算每股价值\n")
		sb.WriteString("- **说明**: DCF计算得出的是企业整体价值，需要除以总股本得到每股价值\n\n")
	}

	sb.WriteString("## 重要假设与局限性\n")
	sb.WriteString("1. **现金流预测**: 基于历史数据的外推，实际业务发展可能偏离预测\n")
	sb.WriteString("2. **折现率假设**: 使用固定折现率，实际WACC可能随市场变化\n")
	sb.WriteString("3. **永续增长率**: 假设企业能够永续经营并保持稳定增长\n")
	sb.WriteString("4. **不包含债务**: 当前计算为企业价值，未扣除净债务得出股权价值\n\n")

	sb.WriteString("**免责声明**: DCF估值高度依赖假设条件，仅供参考，不构成投资建议。")

	s.logger.Info().Str("code", code).Msg("Successfully calculated DCF valuation")
	return sb.String(), nil
}

// latestClose fetches the most recent close within the last week.
func (s *Service) latestClose(ctx context.Context, code string) (float64, bool) {
	endDate := s.now().Format(dateLayout)
	startDate := s.now().AddDate(0, 0, -7).Format(dateLayout)

	rs, err := s.source.GetHistoricalKData(ctx, code, startDate, endDate, "d", "3", []string{"date", "close"})
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Failed to fetch current price")
		return 0, false
	}

	for i := len(rs.Rows) - 1; i >= 0; i-- {
		if v, ok := utils.ParseFloat(rs.Rows[i]["close"]); ok {
			return v, true
		}
	}
	return 0, false
}

// formatAmount renders a currency amount rounded to whole units with
// thousands separators.
func formatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := strconv.FormatFloat(v, 'f', 0, 64)

	var sb strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		sb.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(whole[i : i+3])
	}

	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
