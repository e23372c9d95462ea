package main

import (
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RoacherM/a-share-mcp-server/internal/config"
	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
	"github.com/RoacherM/a-share-mcp-server/internal/valuation"
)

const serverVersion = "1.0.0"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging. Stdout carries the MCP protocol, so logs go to
	// stderr and default to warn to keep the stream quiet.
	setupLogging(cfg.LogLevel)

	// 3. Setup data gateway client
	source := datasource.NewClient(datasource.ClientOptions{
		BaseURL:        cfg.DataAPIURL,
		Token:          cfg.DataAPIToken,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	// 4. Setup valuation service
	svc := valuation.NewService(source)

	// 5. Create MCP server
	mcpServer := server.NewMCPServer(
		"a-share-valuation",
		serverVersion,
		server.WithToolCapabilities(true),
	)

	// Register valuation tools
	mcpServer.AddTool(createValuationMetricsTool(), handleValuationMetrics(svc))
	mcpServer.AddTool(createPEGRatioTool(), handlePEGRatio(svc))
	mcpServer.AddTool(createDCFValuationTool(), handleDCFValuation(svc))
	mcpServer.AddTool(createIndustryComparisonTool(), handleIndustryComparison(svc))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	log.Logger = log.Logger.Level(level)
}
