package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/restockwatch/dropstats/internal/config"
	"github.com/restockwatch/dropstats/internal/extract"
	"github.com/restockwatch/dropstats/internal/logger"
	"github.com/restockwatch/dropstats/internal/models"
	"github.com/restockwatch/dropstats/internal/pipeline"
	"github.com/restockwatch/dropstats/internal/resolver"
	"github.com/restockwatch/dropstats/internal/sheets"
	"github.com/restockwatch/dropstats/internal/storage"
	"github.com/restockwatch/dropstats/internal/telegram"
	"github.com/restockwatch/dropstats/internal/twitter"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	runOnce    = flag.Bool("once", false, "Run a single cycle and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	searchClient := twitter.NewClient(twitter.Config{
		APIURL:         cfg.Twitter.APIURL,
		Username:       cfg.Twitter.Username,
		BearerToken:    cfg.Twitter.BearerToken,
		MaxResults:     cfg.Twitter.MaxResults,
		Timeout:        cfg.Twitter.Timeout,
		MaxRetries:     cfg.Twitter.MaxRetries,
		RetryDelayBase: cfg.Twitter.RetryDelayBase,
	})

	extractor := extract.New(extract.Config{
		Categories:      cfg.Extractor.Categories,
		LinkPrefix:      cfg.Extractor.LinkPrefix,
		RetailHost:      cfg.Extractor.RetailHost,
		ProductIDLength: cfg.Extractor.ProductIDLength,
		ProductIDPrefix: cfg.Extractor.ProductIDPrefix,
		NameDelimiters:  cfg.Extractor.NameDelimiters,
	}, resolver.New(cfg.Resolver.Timeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exporter pipeline.Exporter
	if cfg.Export.Enabled {
		sheetsClient, err := sheets.NewClient(ctx, sheets.Config{
			SpreadsheetID:   cfg.Export.SpreadsheetID,
			SheetName:       cfg.Export.SheetName,
			CredentialsFile: cfg.Export.CredentialsFile,
		})
		if err != nil {
			logger.Fatal("Failed to initialize Sheets client: %v", err)
		}
		exporter = sheetsClient
		logger.Info("Sheets exporter initialized for spreadsheet %s", cfg.Export.SpreadsheetID)
	} else {
		logger.Debug("Spreadsheet export disabled, runs will not deliver reports")
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	pipe := pipeline.New(pipeline.Config{
		Categories:        cfg.Extractor.Categories,
		BadPostThreshold:  cfg.Quality.BadPostThreshold,
		BadEventThreshold: cfg.Quality.BadEventThreshold,
		CSVPath:           cfg.Export.CSVPath,
	}, store, searchClient, extractor, exporter)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	consecutiveFailures := 0

	handleRunResult := func(summary *models.RunSummary, err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Run failed: %v", err)
			if consecutiveFailures == 1 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}

		if consecutiveFailures > 0 && cfg.Telegram.Enabled && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0

		if cfg.Telegram.Enabled && telegramClient != nil {
			if sendErr := telegramClient.SendSummary(summary); sendErr != nil {
				logger.Warn("Failed to send run summary to Telegram: %v", sendErr)
			}
		}
	}

	logger.Debug("Running initial cycle")
	summary, runErr := pipe.Run(ctx)
	handleRunResult(summary, runErr)

	if *runOnce {
		if runErr != nil {
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting drop statistics service (interval: %v, categories: %v)",
		cfg.Pipeline.Interval, cfg.Extractor.Categories)

	ticker := time.NewTicker(cfg.Pipeline.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled cycle")
			summary, err := pipe.Run(ctx)
			handleRunResult(summary, err)
		}
	}
}
