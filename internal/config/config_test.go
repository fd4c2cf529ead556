package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("BRAGI_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadAcceptsPreviousPrefix(t *testing.T) {
	t.Setenv("SEQ_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("SEQ_JWT_SIGNING_KEY", "supersecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("HTTPPort=%d, want 8080", cfg.HTTPPort)
	}
	if cfg.ExactBoostThreshold != 0.95 {
		t.Fatalf("ExactBoostThreshold=%v, want 0.95", cfg.ExactBoostThreshold)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("DBBackend=%q, want postgres", cfg.DBBackend)
	}
}

func TestLoadRejectsInvalidExactBoostThreshold(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")

	for _, raw := range []string{"0", "-0.5", "1.5"} {
		t.Setenv("BRAGI_EXACT_BOOST_THRESHOLD", raw)
		if _, err := Load(); err == nil {
			t.Fatalf("expected load to fail for threshold %q", raw)
		}
	}
}

func TestLoadRejectsUnknownDatabaseBackend(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "file:test.db")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("BRAGI_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail for unknown backend")
	}
}

func TestLoadRequiresBucketForS3Archive(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("BRAGI_ARCHIVE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail without an S3 bucket")
	}

	t.Setenv("BRAGI_S3_BUCKET", "sequences")
	if _, err := Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("BRAGI_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("BRAGI_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("JWT_SIGNING_KEY", "legacy")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}
