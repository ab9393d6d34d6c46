package config

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("TRYON_SECRET_KEY", "")

		if _, err := Load(); err == nil {
			t.Error("expected an error without a secret key")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("TRYON_SECRET_KEY", testSecret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Addr != DefaultAddr {
			t.Errorf("expected %s, got %s", DefaultAddr, cfg.Addr)
		}
		if cfg.MaxUploadBytes != DefaultMaxUploadBytes {
			t.Errorf("expected %d, got %d", DefaultMaxUploadBytes, cfg.MaxUploadBytes)
		}
		if cfg.RateLimit != DefaultRateLimit || cfg.RateWindow != DefaultRateWindow {
			t.Errorf("unexpected rate settings: %d per %s", cfg.RateLimit, cfg.RateWindow)
		}
		if cfg.TokenTTL != DefaultTokenTTL {
			t.Errorf("expected %s, got %s", DefaultTokenTTL, cfg.TokenTTL)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("TRYON_SECRET_KEY", testSecret)
		t.Setenv("TRYON_ADDR", ":9999")
		t.Setenv("TRYON_TOKEN_TTL", "2h")
		t.Setenv("TRYON_MAX_UPLOAD_BYTES", "1024")
		t.Setenv("TRYON_RATE_LIMIT", "10")
		t.Setenv("TRYON_RATE_WINDOW", "10s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Addr != ":9999" {
			t.Errorf("expected :9999, got %s", cfg.Addr)
		}
		if cfg.TokenTTL != 2*time.Hour {
			t.Errorf("expected 2h, got %s", cfg.TokenTTL)
		}
		if cfg.MaxUploadBytes != 1024 {
			t.Errorf("expected 1024, got %d", cfg.MaxUploadBytes)
		}
		if cfg.RateLimit != 10 || cfg.RateWindow != 10*time.Second {
			t.Errorf("unexpected rate settings: %d per %s", cfg.RateLimit, cfg.RateWindow)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("TRYON_SECRET_KEY", testSecret)
		t.Setenv("TRYON_TOKEN_TTL", "soon")

		if _, err := Load(); err == nil {
			t.Error("expected an error for a bad duration")
		}
	})

	t.Run("invalid upload cap", func(t *testing.T) {
		t.Setenv("TRYON_SECRET_KEY", testSecret)
		t.Setenv("TRYON_MAX_UPLOAD_BYTES", "-5")

		if _, err := Load(); err == nil {
			t.Error("expected an error for a negative cap")
		}
	})
}
