package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueName     string
	MaxAttempts   int

	StorageBackend string // "local" or "s3"
	UploadDir      string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	ChunkSize    int
	ChunkOverlap int
	WorkerCount  int
	EmbedRPS     int

	JWTSecret   string
	Port        string
	MetricsPort string
	LogLevel    string
	LogFormat   string
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		QueueName:     getEnv("QUEUE_NAME", "documents"),
		MaxAttempts:   getEnvInt("QUEUE_MAX_ATTEMPTS", 3),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "chatpdf-docs"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-1.5-flash"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		WorkerCount:  getEnvInt("WORKER_COUNT", 4),
		EmbedRPS:     getEnvInt("EMBED_RPS", 5),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8000"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
