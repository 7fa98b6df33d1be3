package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "REDIS_ADDR", "AUTH_SECRET",
		"TOKEN_TTL", "HOLD_TTL", "REPORT_CACHE_TTL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("Address = %q", cfg.Address())
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("TokenTTL = %s", cfg.TokenTTL)
	}
	if cfg.HoldTTL != 24*time.Hour {
		t.Fatalf("HoldTTL = %s", cfg.HoldTTL)
	}
	if cfg.ReportCacheTTL != time.Minute {
		t.Fatalf("ReportCacheTTL = %s", cfg.ReportCacheTTL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HOLD_TTL", "2h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.HoldTTL != 2*time.Hour {
		t.Fatalf("HoldTTL = %s", cfg.HoldTTL)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("RedisDB = %d", cfg.RedisDB)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("HOLD_TTL", "not-a-duration")
	t.Setenv("TOKEN_TTL", "-5m")
	t.Setenv("REDIS_DB", "three")

	cfg := Load()
	if cfg.HoldTTL != 24*time.Hour {
		t.Fatalf("HoldTTL = %s, want default", cfg.HoldTTL)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("TokenTTL = %s, want default", cfg.TokenTTL)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("RedisDB = %d, want default", cfg.RedisDB)
	}
}
