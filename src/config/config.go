package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Batch policies applied when an extraction contains records that fail validation.
const (
	BatchPolicyDrop   = "drop"
	BatchPolicyStrict = "strict"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port           string
	DatabasePath   string
	MigrationsPath string
	LogLevel       string

	// Security settings
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	MaxUploadSizeBytes int64
	AllowedOrigins     []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Reconciliation settings
	AmountTolerance       decimal.Decimal
	ExtractionBatchPolicy string
	ReportCacheTTL        time.Duration

	// Extraction service settings
	DefaultExtractionSource string
	ExtractionChunkSize     int
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	LLMModel                string
	LLMTimeout              time.Duration
	LLMMaxRetries           int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getRequiredEnv("JWT_SECRET")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760") // 10MB default
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	batchPolicy := strings.ToLower(getEnv("EXTRACTION_BATCH_POLICY", BatchPolicyDrop))
	if batchPolicy != BatchPolicyDrop && batchPolicy != BatchPolicyStrict {
		log.Printf("WARNING: Unknown EXTRACTION_BATCH_POLICY '%s', using '%s'", batchPolicy, BatchPolicyDrop)
		batchPolicy = BatchPolicyDrop
	}

	Cfg = &AppConfig{
		Port:           getEnv("PORT", "8080"),
		DatabasePath:   getEnv("DATABASE_PATH", "./chequetally.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		JWTSecret:          jwtSecret,
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),
		RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 168*time.Hour), // 7 days
		MaxUploadSizeBytes: maxUploadSizeBytes,
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),

		AmountTolerance:       getEnvAsDecimal("AMOUNT_TOLERANCE", decimal.New(1, -2)),
		ExtractionBatchPolicy: batchPolicy,
		ReportCacheTTL:        getEnvAsDuration("REPORT_CACHE_TTL", 15*time.Minute),

		DefaultExtractionSource: strings.ToLower(getEnv("DEFAULT_EXTRACTION_SOURCE", "llm")),
		ExtractionChunkSize:     getEnvAsInt("EXTRACTION_CHUNK_SIZE", 4000),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", ""),
		LLMModel:                getEnv("LLM_MODEL", "gpt-4o"),
		LLMTimeout:              getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxRetries:           getEnvAsInt("LLM_MAX_RETRIES", 2),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Tolerance=%s, BatchPolicy=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.AmountTolerance.String(), Cfg.ExtractionBatchPolicy)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsDecimal parses a non-negative decimal, e.g. AMOUNT_TOLERANCE=0.01.
func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
	if err != nil || value.IsNegative() {
		log.Printf("Invalid decimal value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
		return fallback
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
