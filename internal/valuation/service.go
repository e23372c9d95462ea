package valuation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
	"github.com/RoacherM/a-share-mcp-server/internal/utils"
)

// Field candidate lists for figures whose column name varies across listing
// boards. Probed in priority order via utils.FirstNumeric and friends.
var (
	// Net profit growth rate, percent.
	growthFieldCandidates = []string{"YOYNI", "YOYProfit", "YOYEPSBasic"}

	// Operating cash flow, 万元 (ten-thousand yuan).
	cashFlowFieldCandidates = []string{"manageCashFlow", "operatingCashFlow", "NCFFromOA"}
)

const dateLayout = "2006-01-02"

// Service implements the valuation report tools on top of a financial data
// source. All methods return the finished report text; callers decide how to
// render errors (the MCP layer converts them to "Error: ..." strings).
type Service struct {
	source datasource.FinancialDataSource
	logger zerolog.Logger
	now    func() time.Time // injectable for date-defaulting tests
}

// NewService creates a valuation service backed by the given data source.
func NewService(source datasource.FinancialDataSource) *Service {
	return &Service{
		source: source,
		logger: log.With().Str("component", "valuation_service").Logger(),
		now:    time.Now,
	}
}

// stockDisplayName resolves the security display name, falling back to the
// raw code when metadata is unavailable. Metadata failures are never fatal
// for a report.
func (s *Service) stockDisplayName(ctx context.Context, code string) string {
	info, err := s.source.GetStockBasicInfo(ctx, code)
	if err != nil || info.Empty() {
		return code
	}
	if _, name, ok := utils.FirstPresent(info.Rows[0], []string{"code_name", "codeName", "name"}); ok {
		return name
	}
	return code
}
