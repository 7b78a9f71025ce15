package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chequetally/backend/src/config"
	"github.com/chequetally/backend/src/database"
	"github.com/chequetally/backend/src/handlers"
	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/parsers"
	"github.com/chequetally/backend/src/parsers/delimited"
	"github.com/chequetally/backend/src/parsers/llm"
	"github.com/chequetally/backend/src/processors"
	"github.com/chequetally/backend/src/security"
	"github.com/chequetally/backend/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Cheque tally backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid: must be at least 32 characters")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.MigrationsPath)
	defer database.DB.Close()

	reportCache := cache.New(config.Cfg.ReportCacheTTL, services.CacheCleanupInterval)

	extractors := parsers.Registry{
		parsers.SourceCSV: delimited.NewParser(),
		parsers.SourceLLM: llm.NewExtractor(llm.Config{
			APIKey:     config.Cfg.OpenAIAPIKey,
			BaseURL:    config.Cfg.OpenAIBaseURL,
			Model:      config.Cfg.LLMModel,
			Timeout:    config.Cfg.LLMTimeout,
			MaxRetries: config.Cfg.LLMMaxRetries,
			ChunkSize:  config.Cfg.ExtractionChunkSize,
		}),
	}
	if config.Cfg.OpenAIAPIKey == "" {
		logger.L.Warn("OPENAI_API_KEY not set; uploads with source=llm will fail until it is configured")
	}
	defaultSource := config.Cfg.DefaultExtractionSource
	if _, ok := extractors[defaultSource]; !ok {
		logger.L.Warn("Default extraction source unavailable, falling back to csv", "configured", defaultSource, "available", extractors.Sources())
		defaultSource = parsers.SourceCSV
	}

	engine := processors.NewEngine(processors.WithTolerance(config.Cfg.AmountTolerance))
	reconciliationService := services.NewReconciliationService(database.DB, engine, extractors, reportCache, services.ServiceConfig{
		BatchPolicy:   config.Cfg.ExtractionBatchPolicy,
		DefaultSource: defaultSource,
		CacheTTL:      config.Cfg.ReportCacheTTL,
	})

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)

	router := handlers.NewRouter(handlers.RouterConfig{
		Users:          handlers.NewUserHandler(database.DB, authService, config.Cfg.RefreshTokenExpiry),
		Sessions:       handlers.NewSessionHandler(reconciliationService),
		Uploads:        handlers.NewUploadHandler(reconciliationService, config.Cfg.MaxUploadSizeBytes),
		Tally:          handlers.NewTallyHandler(reconciliationService),
		Health:         handlers.NewHealthHandler(database.DB, "Cheque Tally API"),
		AllowedOrigins: config.Cfg.AllowedOrigins,
		Limiter:        rate.NewLimiter(rate.Limit(config.Cfg.RateLimitRPS), config.Cfg.RateLimitBurst),
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: config.Cfg.LLMTimeout*2 + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", serverAddr, "extractionSources", extractors.Sources(), "defaultSource", defaultSource)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
}
