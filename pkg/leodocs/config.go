package leodocs

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all configuration options for the engine.
type Config struct {
	// CacheMaxSize is the maximum number of prepared templates to cache. 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off).
	LogLevel string
	// StartDelimiter and EndDelimiter enclose template tags.
	StartDelimiter string
	EndDelimiter   string
	// DateLayout formats time values substituted into placeholders.
	DateLayout string
	// ParagraphLoops repeats the paragraphs between two tag-only paragraphs
	// instead of expanding the section inline.
	ParagraphLoops bool
	// MaxImageBytes caps the size of a single embedded image. 0 means no limit.
	MaxImageBytes int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		CacheTTL:       0,
		LogLevel:       "info",
		StartDelimiter: "{",
		EndDelimiter:   "}",
		DateLayout:     "January 2, 2006",
		ParagraphLoops: true,
		MaxImageBytes:  10 << 20,
	}
}

// ConfigFromEnvironment creates a configuration from LEODOCS_* environment variables.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("LEODOCS_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("LEODOCS_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("LEODOCS_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// LEODOCS_DELIMITERS holds both delimiters separated by a space, e.g. "{{ }}".
	if val := os.Getenv("LEODOCS_DELIMITERS"); val != "" {
		if fields := strings.Fields(val); len(fields) == 2 {
			config.StartDelimiter, config.EndDelimiter = fields[0], fields[1]
		}
	}

	if val := os.Getenv("LEODOCS_DATE_LAYOUT"); val != "" {
		config.DateLayout = val
	}

	if val := os.Getenv("LEODOCS_PARAGRAPH_LOOPS"); val != "" {
		config.ParagraphLoops = parseBool(val)
	}

	if val := os.Getenv("LEODOCS_MAX_IMAGE_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.MaxImageBytes = n
		}
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to
// unset string fields. Numeric and boolean fields are taken as given.
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()
	if overrides == nil {
		return defaults
	}

	config := *overrides
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.StartDelimiter == "" {
		config.StartDelimiter = defaults.StartDelimiter
	}
	if config.EndDelimiter == "" {
		config.EndDelimiter = defaults.EndDelimiter
	}
	if config.DateLayout == "" {
		config.DateLayout = defaults.DateLayout
	}
	return &config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.StartDelimiter == "" || c.EndDelimiter == "" {
		return errors.New("delimiters cannot be empty")
	}
	if c.StartDelimiter == c.EndDelimiter {
		return errors.New("start and end delimiters must differ")
	}
	if strings.ContainsAny(c.StartDelimiter+c.EndDelimiter, "<>&") {
		return errors.New("delimiters cannot contain XML markup characters")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("max image bytes cannot be negative")
	}
	return nil
}

// parseBool parses a boolean value from a string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
