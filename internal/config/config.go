package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Sources: either a manifest file or a single source.
	SourcesFile    string
	SourcePath     string
	SourceSchema   string
	SourceOperator string
	SourceEncoding string

	OutputPath     string
	OutputXLSXPath string

	HTTPAddr        string
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Workers         int

	MinRadius float64
	MaxRadius float64

	ProjectionCacheSize int

	// PDF extraction.
	PDFPassword     string
	PDFMaxPages     int
	PDFRowTolerance float64

	// Snapshot store. Empty DBDriver disables it.
	DBDriver string
	DBDSN    string

	// Kafka record publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	BatchSize    int

	// S3-compatible upload of the canonical CSV. Empty S3Endpoint disables it.
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Prefix    string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("PROJECTION_CACHE_SIZE", 10000)
	if err != nil {
		return nil, err
	}
	maxPages, err := parseNonNegativeInt("PDF_MAX_PAGES", 0)
	if err != nil {
		return nil, err
	}
	rowTolerance, err := parseFloat("PDF_ROW_TOLERANCE", 2)
	if err != nil {
		return nil, err
	}
	minRadius, err := parseFloat("MIN_RADIUS", 5)
	if err != nil {
		return nil, err
	}
	maxRadius, err := parseFloat("MAX_RADIUS", 25)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourcesFile:    os.Getenv("SOURCES_FILE"),
		SourcePath:     sharedcfg.EnvOrDefault("SOURCE_PATH", "atasco.pdf"),
		SourceSchema:   sharedcfg.EnvOrDefault("SOURCE_SCHEMA", "demand-v1"),
		SourceOperator: os.Getenv("SOURCE_OPERATOR"),
		SourceEncoding: strings.ToLower(sharedcfg.EnvOrDefault("SOURCE_ENCODING", "utf-8")),

		OutputPath:     sharedcfg.EnvOrDefault("OUTPUT_PATH", "data.csv"),
		OutputXLSXPath: os.Getenv("OUTPUT_XLSX_PATH"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSOrigins:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Workers:         workers,

		MinRadius: minRadius,
		MaxRadius: maxRadius,

		ProjectionCacheSize: cacheSize,

		PDFPassword:     os.Getenv("PDF_PASSWORD"),
		PDFMaxPages:     maxPages,
		PDFRowTolerance: rowTolerance,

		DBDriver: os.Getenv("DB_DRIVER"),
		DBDSN:    os.Getenv("DB_DSN"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "grid-capacity-records"),
		BatchSize:    batchSize,

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Bucket:    sharedcfg.EnvOrDefault("S3_BUCKET", "grid-capacity"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:    os.Getenv("S3_USE_SSL") == "true",
		S3Prefix:    os.Getenv("S3_PREFIX"),
	}

	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}
	if cfg.SourcesFile == "" && cfg.SourcePath == "" {
		return nil, errors.New("SOURCES_FILE or SOURCE_PATH is required")
	}
	if cfg.SourceEncoding != "utf-8" && cfg.SourceEncoding != "latin-1" {
		return nil, fmt.Errorf("invalid SOURCE_ENCODING %q: want utf-8 or latin-1", cfg.SourceEncoding)
	}
	if cfg.MinRadius <= 0 || cfg.MaxRadius < cfg.MinRadius {
		return nil, errors.New("invalid MIN_RADIUS/MAX_RADIUS: want 0 < MIN_RADIUS <= MAX_RADIUS")
	}
	if cfg.DBDriver != "" && cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite or postgres", cfg.DBDriver)
	}
	if cfg.DBDriver != "" && cfg.DBDSN == "" {
		return nil, errors.New("DB_DRIVER is set but DB_DSN is not")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.S3Endpoint != "" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, errors.New("S3_ENDPOINT is set but S3_ACCESS_KEY or S3_SECRET_KEY is not")
	}

	return cfg, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, s)
	}
	return n, nil
}

func parseNonNegativeInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}
