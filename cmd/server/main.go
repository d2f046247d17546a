package main

import (
	"fmt"
	"log"

	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer"
	"github.com/ridwanfathin/quote-ingestion-service/internal/analyzer/openrouter"
	"github.com/ridwanfathin/quote-ingestion-service/internal/config"
	"github.com/ridwanfathin/quote-ingestion-service/internal/database"
	"github.com/ridwanfathin/quote-ingestion-service/internal/extractor"
	"github.com/ridwanfathin/quote-ingestion-service/internal/handler"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
	"github.com/ridwanfathin/quote-ingestion-service/internal/server"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// @title Quote Ingestion Service API
// @version 1.0
// @description Ingests supplier quotation PDFs, extracts their text, analyzes them into structured quotes and stores them for search and export.
// @BasePath /
func main() {
	// Load configuration
	log.Println("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to the database
	log.Println("Connecting to database...")
	db, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := repository.NewPostgresQuoteRepository(db.GetPool())

	// Build the document extractor with OCR fallback
	recognizer := extractor.NewTesseractRecognizer(extractor.TesseractConfig{
		Binary:   cfg.TesseractPath,
		Language: cfg.TesseractLang,
		TempDir:  cfg.TempDir,
	})
	docExtractor := extractor.New(extractor.Config{
		MinContentChars: cfg.MinContentChars,
		MaxPages:        cfg.MaxPages,
		Timeout:         cfg.ExtractTimeout,
		TempDir:         cfg.TempDir,
	}, recognizer)

	// Build the analyzer. Without a key, ingestion degrades to text
	// extraction only.
	var quoteAnalyzer analyzer.Analyzer
	openRouterClient := openrouter.NewClient(&openrouter.Config{
		APIKey:         cfg.OpenRouterAPIKey,
		BaseURL:        cfg.OpenRouterBaseURL,
		ModelID:        cfg.OpenRouterModelID,
		Timeout:        cfg.OpenRouterTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	})
	if openRouterClient.Configured() {
		quoteAnalyzer = openRouterClient
	}

	// Create services
	log.Println("Creating ingestion pipeline...")
	ingestionService := service.NewIngestionService(repo, docExtractor, quoteAnalyzer, cfg.AmountTolerance, cfg.MaxWorkers)
	quoteService := service.NewQuoteService(repo, cfg.RecentLimit, cfg.RecentWithinDays)

	// Create handlers
	ingestHandler := handler.NewIngestHandler(ingestionService)
	quoteHandler := handler.NewQuoteHandler(quoteService)
	statsHandler := handler.NewStatsHandler(quoteService)
	exportHandler := handler.NewExportHandler(quoteService)

	// Create and configure server
	log.Println("Configuring server...")
	appServer := server.NewServer(cfg, ingestHandler, quoteHandler, statsHandler, exportHandler)

	// Start server (blocking call)
	log.Printf("Starting server on port %d...", cfg.Port)
	if err := appServer.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server shutdown complete")
}
