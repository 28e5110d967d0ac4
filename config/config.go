package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent is sent on every fetch attempt unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Requester RequesterConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Sink      SinkConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// RequestTimeout bounds one synchronous extraction.
	RequestTimeout time.Duration // default: 60s
}

// RequesterConfig controls document fetching.
type RequesterConfig struct {
	// MaxAttempts is the total number of fetch attempts per run.
	MaxAttempts int // default: 5

	// RetryDelay is the fixed wait between failed attempts.
	RetryDelay time.Duration // default: 3s

	// ProxyHost and ProxyPort locate the local SOCKS5 proxy used in
	// anonymized mode.
	ProxyHost string // default: "127.0.0.1"
	ProxyPort int    // default: 9050

	UserAgent string

	// InvalidMarkers are body substrings that mark a response as unusable
	// even when the status is 200.
	InvalidMarkers []string // default: ["502 Bad Gateway"]

	// Timeout bounds a single attempt.
	Timeout time.Duration // default: 30s

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MB
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// SinkConfig controls where the CLI writes record files.
type SinkConfig struct {
	Dir string // default: "data"
}

// DefaultRequester returns the fetch settings used when nothing is configured.
func DefaultRequester() RequesterConfig {
	return RequesterConfig{
		MaxAttempts:    5,
		RetryDelay:     3 * time.Second,
		ProxyHost:      "127.0.0.1",
		ProxyPort:      9050,
		UserAgent:      DefaultUserAgent,
		InvalidMarkers: []string{"502 Bad Gateway"},
		Timeout:        30 * time.Second,
		MaxBodyBytes:   10 << 20,
	}
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	def := DefaultRequester()
	return &Config{
		Server: ServerConfig{
			Host:           envOr("BLOCKCRAWL_HOST", "0.0.0.0"),
			Port:           envIntOr("BLOCKCRAWL_PORT", 8080),
			Mode:           envOr("BLOCKCRAWL_MODE", "release"),
			RequestTimeout: envDurationOr("BLOCKCRAWL_REQUEST_TIMEOUT", 60*time.Second),
		},
		Requester: RequesterConfig{
			MaxAttempts:    envIntOr("BLOCKCRAWL_MAX_ATTEMPTS", def.MaxAttempts),
			RetryDelay:     envDurationOr("BLOCKCRAWL_RETRY_DELAY", def.RetryDelay),
			ProxyHost:      envOr("BLOCKCRAWL_PROXY_HOST", def.ProxyHost),
			ProxyPort:      envIntOr("BLOCKCRAWL_PROXY_PORT", def.ProxyPort),
			UserAgent:      envOr("BLOCKCRAWL_USER_AGENT", def.UserAgent),
			InvalidMarkers: envSliceOr("BLOCKCRAWL_INVALID_MARKERS", def.InvalidMarkers),
			Timeout:        envDurationOr("BLOCKCRAWL_FETCH_TIMEOUT", def.Timeout),
			MaxBodyBytes:   envInt64Or("BLOCKCRAWL_MAX_BODY_BYTES", def.MaxBodyBytes),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("BLOCKCRAWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("BLOCKCRAWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("BLOCKCRAWL_RATE_RPS", 5.0),
			Burst:             envIntOr("BLOCKCRAWL_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("BLOCKCRAWL_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("BLOCKCRAWL_LOG_LEVEL", "info"),
			Format: envOr("BLOCKCRAWL_LOG_FORMAT", "json"),
		},
		Sink: SinkConfig{
			Dir: envOr("BLOCKCRAWL_OUTPUT_DIR", "data"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
