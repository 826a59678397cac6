package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	JWTSecret    string
	JWTExpiresIn string
	Port         string
	GinMode      string
	BcryptCost   int
	CORSOrigins  []string
	MaxFileSize  int64
	MaxPDFPages  int

	// Gemini Configuration
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTier    string
	AllowedModels []string

	// OCR.space Configuration
	OCRAPIKey  string
	OCRAPIURL  string
	OCREngine  string
	OCRTimeout int

	// Pinecone Configuration
	PineconeAPIKey    string
	PineconeIndexHost string
	PineconeNamespace string

	// Embeddings configuration
	EmbeddingsProvider    string // "google" (default), "ollama"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	OllamaURL             string
	OllamaEmbedModel      string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/studysync"),
		DBName:       getEnv("DB_NAME", "studysync"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),
		Port:         getEnv("PORT", "3001"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 26214400), // 25MB upload ceiling
		MaxPDFPages:  getEnvInt("MAX_PDF_PAGES", 50), // OCR runs one request per page

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:    getEnv("GEMINI_TIER", "free"),
		AllowedModels: strings.Split(getEnv("GEMINI_ALLOWED_MODELS", "gemini-2.0-flash,gemini-2.5-flash,gemini-2.5-pro"), ","),

		OCRAPIKey:  getEnv("OCR_API_KEY", ""),
		OCRAPIURL:  getEnv("OCR_API_URL", "https://api.ocr.space/parse/image"),
		OCREngine:  getEnv("OCR_ENGINE", "2"),
		OCRTimeout: getEnvInt("OCR_TIMEOUT", 60), // seconds, per page

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexHost: getEnv("PINECONE_INDEX_HOST", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "example-namespace"),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OllamaURL:             getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel:      getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text:v1.5"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is required - set it in .env file")
	}

	if cfg.PineconeIndexHost == "" {
		return nil, fmt.Errorf("PINECONE_INDEX_HOST is required - set it in .env file")
	}

	return cfg, nil
}

// ModelAllowed reports whether a client-requested Gemini model name is on the
// allow list. An empty name resolves to the configured default.
func (c *Config) ModelAllowed(name string) bool {
	if name == "" {
		return true
	}
	for _, m := range c.AllowedModels {
		if strings.TrimSpace(m) == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
