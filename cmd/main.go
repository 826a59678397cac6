package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"net/http"

	"studysync-backend/internal/ai"
	"studysync-backend/internal/config"
	"studysync-backend/internal/logger"
	"studysync-backend/internal/telemetry"
	"studysync-backend/internal/vector"
	"studysync-backend/middleware"
	"studysync-backend/routes"
	"studysync-backend/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)
	logKeyStatus(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("studysync-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracer", "error", err)
		} else {
			defer shutdown()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Rate limiting degrades to off when Redis is unreachable.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting disabled", "error", err)
		rdb = nil
	}

	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	retriever := vector.NewClient(cfg, func(ctx context.Context, text string) ([]float32, error) {
		return ai.GenerateEmbedding(ctx, cfg, text)
	})
	extractor := services.NewTextExtractionService(cfg)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	// Multipart overhead on top of the PDF itself.
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize + 1<<20))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	db := mongoClient.Database(cfg.DBName)
	authMiddleware := middleware.NewAuthMiddleware(cfg, db)
	chatStore := services.NewChatStore(db)

	routes.SetupAuthRoutes(router, cfg, mongoClient)
	routes.SetupPDFRoutes(router, cfg, extractor, retriever, geminiClient)
	routes.SetupChatbotRoutes(router, cfg, chatStore, authMiddleware.RequireAuth(), retriever, geminiClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

// logKeyStatus reports at startup which upstream credentials are configured.
// The OCR key falls back to the provider's shared demo key, so missing is a
// warning rather than an error.
func logKeyStatus(cfg *config.Config) {
	logger.Info("API key status",
		"pinecone", keyStatus(cfg.PineconeAPIKey),
		"gemini", keyStatus(cfg.GeminiAPIKey),
		"ocr", keyStatus(cfg.OCRAPIKey),
	)
}

func keyStatus(key string) string {
	if key == "" {
		return "missing"
	}
	return "set"
}
