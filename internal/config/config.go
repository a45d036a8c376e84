package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// Data source kinds.
const (
	SourceDir     = "dir"
	SourceS3      = "s3"
	SourceSummary = "summary"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Dataset source.
	DataSource  string
	DataDir     string
	DataGlob    string
	SummaryPath string
	S3Bucket    string
	S3Region    string
	S3Prefix    string

	HTTPAddr        string
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dashboard defaults. DefaultPercentile is a fraction.
	DefaultScope      domain.Scope
	DefaultPercentile float64
	DefaultTopN       int
	DJTopK            int
	ExclusionsFile    string
	Exclusions        domain.ExclusionList

	// Optional backends; empty disables.
	ViewCacheSize int
	RedisURL      string
	DatabaseURL   string
	ReportDir     string

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration

	// SnapshotPublishInterval coalesces snapshots triggered by stream ingest;
	// zero publishes after every batch.
	SnapshotPublishInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first if present;
// it never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	scope, err := domain.ParseScope(strings.ToLower(sharedcfg.EnvOrDefault("DEFAULT_SCOPE", "all")))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_SCOPE: %w", err)
	}

	pct, err := parsePercent("DEFAULT_PERCENTILE", 90)
	if err != nil {
		return nil, err
	}

	topN, err := parsePositiveInt("DEFAULT_TOP_N", 15)
	if err != nil {
		return nil, err
	}

	djTopK, err := parsePositiveInt("DJ_TOP_K", 5)
	if err != nil {
		return nil, err
	}

	viewCacheSize, err := parseNonNegativeInt("VIEW_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	publishInterval, err := parseDuration("SNAPSHOT_PUBLISH_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataSource:  strings.ToLower(sharedcfg.EnvOrDefault("DATA_SOURCE", SourceDir)),
		DataDir:     sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		DataGlob:    sharedcfg.EnvOrDefault("DATA_GLOB", "annual_aqi_by_county_*.csv"),
		SummaryPath: sharedcfg.EnvOrDefault("SUMMARY_PATH", "data/dashboard_data.json"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3Prefix:    sharedcfg.EnvOrDefault("S3_PREFIX", "annual/"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSOrigins:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultScope:      scope,
		DefaultPercentile: pct,
		DefaultTopN:       topN,
		DJTopK:            djTopK,
		ExclusionsFile:    os.Getenv("EXCLUSIONS_FILE"),
		Exclusions:        domain.DefaultExclusions,

		ViewCacheSize: viewCacheSize,
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ReportDir:     os.Getenv("REPORT_DIR"),

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "aqi-observations"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "aqi-county-risk"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "county-aqi-risk"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SnapshotPublishInterval: publishInterval,
	}

	switch cfg.DataSource {
	case SourceDir, SourceSummary:
	case SourceS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("DATA_SOURCE is s3 but S3_BUCKET is not set")
		}
	default:
		return nil, fmt.Errorf("invalid DATA_SOURCE %q: want dir, s3, or summary", cfg.DataSource)
	}

	if cfg.KafkaEnabled {
		// A precomputed summary has no per-year tallies to fold rows into.
		if cfg.DataSource == SourceSummary {
			return nil, errors.New("KAFKA_ENABLED requires DATA_SOURCE dir or s3")
		}
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	if cfg.ExclusionsFile != "" {
		excl, err := LoadExclusions(cfg.ExclusionsFile)
		if err != nil {
			return nil, fmt.Errorf("EXCLUSIONS_FILE: %w", err)
		}
		cfg.Exclusions = excl
	}

	return cfg, nil
}

// parsePercent reads a 0-100 percentage and returns it as a fraction.
func parsePercent(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def / 100, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return 0, fmt.Errorf("invalid %s %q: want a number between 0 and 100", key, s)
	}
	return v / 100, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err == nil && n <= 0 {
		return 0, fmt.Errorf("invalid %s %d: must be positive", key, n)
	}
	return n, err
}

func parseNonNegativeInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err == nil && n < 0 {
		return 0, fmt.Errorf("invalid %s %d: must not be negative", key, n)
	}
	return n, err
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, s)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
