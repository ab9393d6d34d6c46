// Package config loads server configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for optional settings.
const (
	DefaultAddr           = ":8080"
	DefaultDBPath         = "tryon.db"
	DefaultImageDir       = "images"
	DefaultThumbDir       = "thumbnails"
	DefaultMaxUploadBytes = 10 << 20
	DefaultRateLimit      = 2000
	DefaultRateWindow     = time.Minute
	DefaultTokenTTL       = 30 * time.Minute
)

// Config holds everything the server binary needs to start.
type Config struct {
	// Addr is the listen address.
	Addr string

	// DBPath is the SQLite database file.
	DBPath string

	// ImageDir holds product images; ThumbDir holds the rendered thumbnails.
	ImageDir string
	ThumbDir string

	// StaticDir, when set, is served at the web root.
	StaticDir string

	// SecretKey signs session tokens. Must be at least 32 characters.
	SecretKey string

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration

	// MaxUploadBytes caps request bodies on the upload endpoints.
	MaxUploadBytes int64

	// RateLimit allows this many requests per client IP per RateWindow.
	RateLimit  int
	RateWindow time.Duration

	// DetectorScript and SegmenterScript override the bundled service script
	// locations; PythonPath overrides the interpreter.
	DetectorScript  string
	SegmenterScript string
	PythonPath      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            envOr("TRYON_ADDR", DefaultAddr),
		DBPath:          envOr("TRYON_DB_PATH", DefaultDBPath),
		ImageDir:        envOr("TRYON_IMAGE_DIR", DefaultImageDir),
		ThumbDir:        envOr("TRYON_THUMB_DIR", DefaultThumbDir),
		StaticDir:       os.Getenv("TRYON_STATIC_DIR"),
		SecretKey:       os.Getenv("TRYON_SECRET_KEY"),
		TokenTTL:        DefaultTokenTTL,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		RateLimit:       DefaultRateLimit,
		RateWindow:      DefaultRateWindow,
		DetectorScript:  os.Getenv("TRYON_DETECTOR_SCRIPT"),
		SegmenterScript: os.Getenv("TRYON_SEGMENTER_SCRIPT"),
		PythonPath:      os.Getenv("TRYON_PYTHON"),
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("TRYON_SECRET_KEY is required")
	}

	if v := os.Getenv("TRYON_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TRYON_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}

	if v := os.Getenv("TRYON_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("TRYON_MAX_UPLOAD_BYTES: invalid value %q", v)
		}
		cfg.MaxUploadBytes = n
	}

	if v := os.Getenv("TRYON_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("TRYON_RATE_LIMIT: invalid value %q", v)
		}
		cfg.RateLimit = n
	}

	if v := os.Getenv("TRYON_RATE_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TRYON_RATE_WINDOW: %w", err)
		}
		cfg.RateWindow = window
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
