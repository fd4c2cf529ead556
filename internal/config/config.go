/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL (e.g., http://192.168.195.6:8080)
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Sequencing tunables
	ExactBoostThreshold float64 // closeness cutoff for exact-mode boosts
	MaxSnapshotSize     int     // catalog snapshot cap, 0 = unlimited

	// Sequence archive (object storage) configuration
	ArchiveBackend    string // "s3", "fs", or "" to disable
	ArchiveDir        string // filesystem archive root
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSAddr      string
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"BRAGI_ENV", "SEQ_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"BRAGI_HTTP_BIND", "SEQ_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"BRAGI_HTTP_PORT", "SEQ_HTTP_PORT"}, 8080),
		BaseURL:       getEnvAny([]string{"BRAGI_BASE_URL", "SEQ_BASE_URL"}, ""),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"BRAGI_DB_BACKEND", "SEQ_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"BRAGI_DB_DSN", "SEQ_DB_DSN"}, ""),
		JWTSigningKey: getEnvAny([]string{"BRAGI_JWT_SIGNING_KEY", "SEQ_JWT_SIGNING_KEY"}, ""),
		MetricsBind:   getEnvAny([]string{"BRAGI_METRICS_BIND", "SEQ_METRICS_BIND"}, "127.0.0.1:9000"),

		// Sequencing tunables
		ExactBoostThreshold: getEnvFloatAny([]string{"BRAGI_EXACT_BOOST_THRESHOLD"}, 0.95),
		MaxSnapshotSize:     getEnvIntAny([]string{"BRAGI_MAX_SNAPSHOT_SIZE"}, 0),

		// Sequence archive configuration
		ArchiveBackend:    getEnvAny([]string{"BRAGI_ARCHIVE_BACKEND"}, ""),
		ArchiveDir:        getEnvAny([]string{"BRAGI_ARCHIVE_DIR"}, "./archive"),
		S3AccessKeyID:     getEnvAny([]string{"BRAGI_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"BRAGI_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"BRAGI_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"BRAGI_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"BRAGI_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"BRAGI_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"BRAGI_TRACING_ENABLED", "SEQ_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"BRAGI_OTLP_ENDPOINT", "SEQ_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"BRAGI_TRACING_SAMPLE_RATE", "SEQ_TRACING_SAMPLE_RATE"}, 1.0),

		// Multi-instance configuration
		RedisAddr:     getEnvAny([]string{"BRAGI_REDIS_ADDR", "SEQ_REDIS_ADDR"}, ""),
		RedisPassword: getEnvAny([]string{"BRAGI_REDIS_PASSWORD", "SEQ_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"BRAGI_REDIS_DB", "SEQ_REDIS_DB"}, 0),
		NATSAddr:      getEnvAny([]string{"BRAGI_NATS_ADDR", "SEQ_NATS_ADDR"}, ""),
		InstanceID:    getEnvAny([]string{"BRAGI_INSTANCE_ID", "SEQ_INSTANCE_ID"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("BRAGI_DB_DSN or SEQ_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("BRAGI_JWT_SIGNING_KEY or SEQ_JWT_SIGNING_KEY must be provided")
	}

	if cfg.ExactBoostThreshold <= 0 || cfg.ExactBoostThreshold > 1 {
		return nil, fmt.Errorf("BRAGI_EXACT_BOOST_THRESHOLD must be in (0, 1], got %v", cfg.ExactBoostThreshold)
	}

	switch cfg.ArchiveBackend {
	case "", "fs":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("BRAGI_S3_BUCKET must be set when BRAGI_ARCHIVE_BACKEND is s3")
		}
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.ArchiveBackend)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use BRAGI_ENV (or SEQ_ENV)",
		"JWT_SIGNING_KEY":     "use BRAGI_JWT_SIGNING_KEY (or SEQ_JWT_SIGNING_KEY)",
		"TRACING_ENABLED":     "use BRAGI_TRACING_ENABLED (or SEQ_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use BRAGI_OTLP_ENDPOINT (or SEQ_OTLP_ENDPOINT)",
		"TRACING_SAMPLE_RATE": "use BRAGI_TRACING_SAMPLE_RATE (or SEQ_TRACING_SAMPLE_RATE)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
