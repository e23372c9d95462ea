package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/RoacherM/a-share-mcp-server/internal/valuation"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleValuationMetrics implements the get_valuation_metrics tool
func handleValuationMetrics(svc *valuation.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return textResult("Error: code parameter is required"), nil
		}

		startDate := request.GetString("start_date", "")
		endDate := request.GetString("end_date", "")

		report, err := svc.ValuationMetrics(ctx, code, startDate, endDate)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("Valuation metrics failed")
			return textResult(fmt.Sprintf("Error: Failed to generate valuation metrics: %v", err)), nil
		}

		return textResult(report), nil
	}
}

// handlePEGRatio implements the calculate_peg_ratio tool
func handlePEGRatio(svc *valuation.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return textResult("Error: code parameter is required"), nil
		}

		year, err := request.RequireString("year")
		if err != nil || year == "" {
			return textResult("Error: year parameter is required"), nil
		}

		quarter := request.GetInt("quarter", 0)
		if quarter < 1 || quarter > 4 {
			return textResult("Error: quarter must be 1, 2, 3 or 4"), nil
		}

		report, err := svc.PEGRatio(ctx, code, year, quarter)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("PEG calculation failed")
			return textResult(fmt.Sprintf("Error: Failed to calculate PEG ratio: %v", err)), nil
		}

		return textResult(report), nil
	}
}

// handleDCFValuation implements the calculate_dcf_valuation tool
func handleDCFValuation(svc *valuation.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return textResult("Error: code parameter is required"), nil
		}

		yearsBack := request.GetInt("years_back", 0)
		discountRate := request.GetFloat("discount_rate", 0)
		terminalGrowthRate := request.GetFloat("terminal_growth_rate", 0)

		report, err := svc.DCFValuation(ctx, code, yearsBack, discountRate, terminalGrowthRate)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("DCF valuation failed")
			return textResult(fmt.Sprintf("Error: Failed to calculate DCF valuation: %v", err)), nil
		}

		return textResult(report), nil
	}
}

// handleIndustryComparison implements the compare_industry_valuation tool
func handleIndustryComparison(svc *valuation.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return textResult("Error: code parameter is required"), nil
		}

		date := request.GetString("date", "")

		report, err := svc.IndustryComparison(ctx, code, date)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("Industry comparison failed")
			return textResult(fmt.Sprintf("Error: Failed to complete industry valuation comparison: %v", err)), nil
		}

		return textResult(report), nil
	}
}
