package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createValuationMetricsTool returns the get_valuation_metrics tool definition
func createValuationMetricsTool() mcp.Tool {
	return mcp.NewTool("get_valuation_metrics",
		mcp.WithDescription("获取股票的估值指标数据，包括市盈率(P/E)、市净率(P/B)、市销率(P/S)等的实时数据和历史趋势"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("股票代码，如'sh.600000'"),
		),
		mcp.WithString("start_date",
			mcp.Description("开始日期，格式'YYYY-MM-DD'，默认为最近1年"),
		),
		mcp.WithString("end_date",
			mcp.Description("结束日期，格式'YYYY-MM-DD'，默认为当前日期"),
		),
	)
}

// createPEGRatioTool returns the calculate_peg_ratio tool definition
func createPEGRatioTool() mcp.Tool {
	return mcp.NewTool("calculate_peg_ratio",
		mcp.WithDescription("计算PEG比率（市盈率相对盈利增长比率），PEG = PE / 净利润增长率"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("股票代码，如'sh.600000'"),
		),
		mcp.WithString("year",
			mcp.Required(),
			mcp.Description("4位数字年份，如'2024'"),
		),
		mcp.WithNumber("quarter",
			mcp.Required(),
			mcp.Description("季度，1、2、3或4"),
		),
	)
}

// createDCFValuationTool returns the calculate_dcf_valuation tool definition
func createDCFValuationTool() mcp.Tool {
	return mcp.NewTool("calculate_dcf_valuation",
		mcp.WithDescription("计算DCF（现金流贴现）估值，基于历史现金流数据进行未来现金流预测和贴现"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("股票代码，如'sh.600000'"),
		),
		mcp.WithNumber("years_back",
			mcp.Description("用于分析的历史年份数，默认5年"),
		),
		mcp.WithNumber("discount_rate",
			mcp.Description("折现率/WACC，默认10%"),
		),
		mcp.WithNumber("terminal_growth_rate",
			mcp.Description("永续增长率，默认2.5%"),
		),
	)
}

// createIndustryComparisonTool returns the compare_industry_valuation tool definition
func createIndustryComparisonTool() mcp.Tool {
	return mcp.NewTool("compare_industry_valuation",
		mcp.WithDescription("进行同行业估值比较分析，对比目标股票与同行业其他公司的估值水平"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("目标股票代码，如'sh.600000'"),
		),
		mcp.WithString("date",
			mcp.Description("比较基准日期，格式'YYYY-MM-DD'，默认为最新交易日"),
		),
	)
}
