package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port               int
	MaxWorkers         int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LogFormat          string // "json" or "pretty"
	LogLevel           string // "debug", "info", "warn", "error"
	CORSAllowedOrigins []string

	// Extraction configuration
	MinContentChars int
	MaxPages        int
	ExtractTimeout  time.Duration
	TempDir         string
	TesseractPath   string
	TesseractLang   string

	// Analysis configuration
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModelID string
	OpenRouterTimeout time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration

	// Validation configuration
	AmountTolerance float64

	// Query configuration
	RecentLimit      int
	RecentWithinDays int
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Get the executable directory
	execPath, err := os.Executable()
	if err != nil {
		log.Printf("Warning: Could not determine executable path: %v", err)
	}

	// Determine project root directory
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(execPath)))
	envPath := filepath.Join(projectRoot, ".env")

	// Load .env file if it exists
	if err := godotenv.Load(envPath); err != nil {
		// Try loading from current directory as fallback
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading .env file. Using environment variables.")
		} else {
			log.Println("Loaded environment variables from current directory .env file")
		}
	} else {
		log.Printf("Loaded environment variables from %s", envPath)
	}

	// Create and populate config
	config := &Config{
		// Server configuration
		Port:               getEnvInt("PORT", 8080),
		MaxWorkers:         getEnvInt("MAX_WORKERS", 5),
		ReadTimeout:        time.Duration(getEnvInt("READ_TIMEOUT", 120)) * time.Second,
		WriteTimeout:       time.Duration(getEnvInt("WRITE_TIMEOUT", 120)) * time.Second,
		LogFormat:          getEnvString("LOG_FORMAT", "json"),
		LogLevel:           getEnvString("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		// Extraction configuration
		MinContentChars: getEnvInt("MIN_CONTENT_CHARS", 32),
		MaxPages:        getEnvInt("MAX_PAGES", 100),
		ExtractTimeout:  time.Duration(getEnvInt("EXTRACT_TIMEOUT", 60)) * time.Second,
		TempDir:         getEnvString("TEMP_DIR", os.TempDir()),
		TesseractPath:   getEnvString("TESSERACT_PATH", "tesseract"),
		TesseractLang:   getEnvString("TESSERACT_LANG", "eng"),

		// Analysis configuration
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnvString("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModelID: getEnvString("OPENROUTER_MODEL_ID", "meta-llama/llama-3.2-11b-vision-instruct:free"),
		OpenRouterTimeout: time.Duration(getEnvInt("OPENROUTER_TIMEOUT", 60)) * time.Second,
		MaxRetries:        getEnvInt("OPENROUTER_MAX_RETRIES", 3),
		RetryBaseDelay:    time.Duration(getEnvInt("OPENROUTER_RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,

		// Validation configuration
		AmountTolerance: getEnvFloat("AMOUNT_TOLERANCE", 0.05),

		// Query configuration
		RecentLimit:      getEnvInt("RECENT_LIMIT", 10),
		RecentWithinDays: getEnvInt("RECENT_WITHIN_DAYS", 7),
	}

	// Validate critical configuration
	validateConfig(config)

	return config, nil
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	// Check if OpenRouter API key is provided
	if config.OpenRouterAPIKey == "" {
		log.Println("Warning: No OpenRouter API key provided. Ingestion will degrade to text extraction only.")
	}

	// Check if the database URL is provided
	if os.Getenv("POSTGRES_DB_URL") == "" {
		log.Println("Warning: No POSTGRES_DB_URL provided. Database connection will fail.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvFloat gets a float from an environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %g", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice gets a string slice from a comma-separated environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	return strings.Split(valueStr, ",")
}
