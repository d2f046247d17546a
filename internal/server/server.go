package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ridwanfathin/quote-ingestion-service/internal/config"
	"github.com/ridwanfathin/quote-ingestion-service/internal/handler"
	"github.com/ridwanfathin/quote-ingestion-service/internal/middleware"
)

// Server represents the HTTP server for the quote ingestion service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config

	ingestHandler *handler.IngestHandler
	quoteHandler  *handler.QuoteHandler
	statsHandler  *handler.StatsHandler
	exportHandler *handler.ExportHandler
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config, ingestHandler *handler.IngestHandler, quoteHandler *handler.QuoteHandler, statsHandler *handler.StatsHandler, exportHandler *handler.ExportHandler) *Server {
	// Create router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.RequestResponseLogger(middleware.LoggerConfig{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	}))

	// Create server
	server := &Server{
		router: router,
		config: cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		ingestHandler: ingestHandler,
		quoteHandler:  quoteHandler,
		statsHandler:  statsHandler,
		exportHandler: exportHandler,
	}

	// Configure routes
	server.setupRoutes()

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API documentation endpoints
	// Access the Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})

	v1 := s.router.Group("/v1")
	{
		quotes := v1.Group("/quotes")
		{
			quotes.POST("/ingest", s.ingestHandler.IngestQuotes)
			quotes.POST("/extract-text", s.ingestHandler.ExtractText)

			quotes.GET("", s.quoteHandler.SearchQuotes)
			quotes.GET("/recent", s.quoteHandler.RecentQuotes)
			quotes.GET("/export", s.exportHandler.ExportQuotes)
			quotes.GET("/:id", s.quoteHandler.GetQuote)
			quotes.GET("/:id/export", s.exportHandler.ExportQuote)
			quotes.PATCH("/:id/status", s.quoteHandler.UpdateQuoteStatus)
			quotes.DELETE("/:id", s.quoteHandler.DeleteQuote)
			quotes.DELETE("", s.quoteHandler.ClearAllQuotes)
		}

		v1.GET("/stats", s.statsHandler.GetStats)
	}
}

// Start begins listening for requests and handles graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server gracefully
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
