package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RoacherM/a-share-mcp-server/internal/config"
	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
	"github.com/RoacherM/a-share-mcp-server/internal/valuation"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting valuation analyzer")

	// 3. Resolve target security (first CLI argument overrides config)
	code := cfg.DefaultStockCode
	if len(os.Args) > 1 {
		code = os.Args[1]
	}
	printConfig(cfg, code)

	// 4. Setup data gateway client
	source := datasource.NewClient(datasource.ClientOptions{
		BaseURL:        cfg.DataAPIURL,
		Token:          cfg.DataAPIToken,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	// 5. Run all valuation reports
	svc := valuation.NewService(source)
	runReports(ctx, svc, cfg, code)
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
		os.Exit(0)
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config, code string) {
	log.Info().
		Str("StockCode", code).
		Str("DataAPIURL", cfg.DataAPIURL).
		Int("DCFYearsBack", cfg.DCFYearsBack).
		Float64("DCFDiscountRate", cfg.DCFDiscountRate).
		Float64("DCFTerminalGrowth", cfg.DCFTerminalGrowth).
		Int("MetricsHistoryDays", cfg.MetricsHistoryDays).
		Msg("Configuration loaded")
}

// runReports generates and prints every valuation report for the security
func runReports(ctx context.Context, svc *valuation.Service, cfg *config.Config, code string) {
	endDate := time.Now().Format("2006-01-02")
	startDate := time.Now().AddDate(0, 0, -cfg.MetricsHistoryDays).Format("2006-01-02")

	log.Info().Str("code", code).Msg("Generating valuation metrics report...")
	if report, err := svc.ValuationMetrics(ctx, code, startDate, endDate); err != nil {
		log.Error().Err(err).Msg("Valuation metrics failed")
	} else {
		fmt.Println(report)
	}

	// PEG uses the most recent completed annual report
	year := fmt.Sprintf("%d", time.Now().Year()-1)
	log.Info().Str("code", code).Str("year", year).Msg("Generating PEG ratio report...")
	if report, err := svc.PEGRatio(ctx, code, year, 4); err != nil {
		log.Error().Err(err).Msg("PEG calculation failed")
	} else {
		fmt.Println(report)
	}

	log.Info().Str("code", code).Msg("Generating DCF valuation report...")
	report, err := svc.DCFValuation(ctx, code, cfg.DCFYearsBack, cfg.DCFDiscountRate, cfg.DCFTerminalGrowth)
	if err != nil {
		log.Error().Err(err).Msg("DCF valuation failed")
	} else {
		fmt.Println(report)
	}

	log.Info().Str("code", code).Msg("Generating industry comparison report...")
	if report, err = svc.IndustryComparison(ctx, code, ""); err != nil {
		log.Error().Err(err).Msg("Industry comparison failed")
	} else {
		fmt.Println(report)
	}
}
