package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	ViewerAPIKey string

	// Summit backend
	BackendURL       string
	DocumentEndpoint string // template, {id} is replaced with the document id
	ProgressEndpoint string // template, {id} is replaced with the reading id
	StatusEndpoint   string // template, {id} is replaced with the course id

	// Render policy
	MaxScale float64
	MinScale float64 // <= 0 disables the floor

	// Viewport
	ResizeThresholdPx int
	ResizeDebounce    time.Duration
	DefaultWidthPx    int
	DefaultPixelRatio float64

	// Sessions
	SessionTTL  time.Duration
	MaxSessions int

	// Document fetch
	MaxDocumentBytes int64
	FetchTimeout     time.Duration

	// Status polling
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		ViewerAPIKey: os.Getenv("VIEWER_API_KEY"),

		BackendURL:       envOr("SUMMIT_BACKEND_URL", "http://localhost:8000"),
		DocumentEndpoint: envOr("DOCUMENT_ENDPOINT", "/courses/{id}/pdf"),
		ProgressEndpoint: envOr("PROGRESS_ENDPOINT", "/courses/readings/{id}/progress"),
		StatusEndpoint:   envOr("STATUS_ENDPOINT", "/courses/{id}/status"),

		MaxScale: envFloat("MAX_SCALE", 2.5),
		MinScale: envFloat("MIN_SCALE", 0),

		ResizeThresholdPx: envInt("RESIZE_THRESHOLD_PX", 5),
		ResizeDebounce:    envDuration("RESIZE_DEBOUNCE", 150*time.Millisecond),
		DefaultWidthPx:    envInt("DEFAULT_WIDTH_PX", 800),
		DefaultPixelRatio: envFloat("DEFAULT_PIXEL_RATIO", 1.0),

		SessionTTL:  envDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions: envInt("MAX_SESSIONS", 200),

		MaxDocumentBytes: envInt64("MAX_DOCUMENT_BYTES", 104857600), // 100MB
		FetchTimeout:     envDuration("FETCH_TIMEOUT", 60*time.Second),

		PollInterval: envDuration("POLL_INTERVAL", 2*time.Second),
		PollTimeout:  envDuration("POLL_TIMEOUT", 5*time.Minute),
	}

	if cfg.ResizeThresholdPx < 0 {
		cfg.ResizeThresholdPx = 5
	}
	if cfg.DefaultWidthPx <= 0 {
		cfg.DefaultWidthPx = 800
	}
	if cfg.DefaultPixelRatio <= 0 {
		cfg.DefaultPixelRatio = 1.0
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 200
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 104857600
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ViewerAPIKey == "" {
		return fmt.Errorf("VIEWER_API_KEY is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("SUMMIT_BACKEND_URL is required")
	}
	if !strings.Contains(c.DocumentEndpoint, "{id}") {
		return fmt.Errorf("DOCUMENT_ENDPOINT must contain an {id} placeholder")
	}
	if !strings.Contains(c.ProgressEndpoint, "{id}") {
		return fmt.Errorf("PROGRESS_ENDPOINT must contain an {id} placeholder")
	}
	if c.MaxScale < 1 {
		return fmt.Errorf("MAX_SCALE must be at least 1, got %g", c.MaxScale)
	}
	if c.MinScale > c.MaxScale {
		return fmt.Errorf("MIN_SCALE (%g) exceeds MAX_SCALE (%g)", c.MinScale, c.MaxScale)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
