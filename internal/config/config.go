// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP adapter, logging, persistence drivers, the completion endpoint, web
// protection and observability.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// StoreConfig selects and configures the key/value persistence driver.
type StoreConfig struct {
	Driver        string        `env:"STORE_DRIVER" envDefault:"sqlite"` // memory|sqlite|redis
	DBPath        string        `env:"DB_PATH" envDefault:"assistant.db"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"portfolio:"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"0s"` // 0 = keep forever
}

// OpenAIConfig configures the chat completion endpoint.
type OpenAIConfig struct {
	APIKey    string        `env:"OPENAI_API_KEY"`
	BaseURL   string        `env:"OPENAI_BASE_URL"`
	Model     string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	MaxTokens int           `env:"OPENAI_MAX_TOKENS" envDefault:"150"`
	Timeout   time.Duration `env:"OPENAI_TIMEOUT" envDefault:"20s"`
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS and the
// pages allowed to embed the widget in a frame.
type SecurityConfig struct {
	EnableHSTS     bool          `env:"ENABLE_HSTS" envDefault:"false"`
	HSTSMaxAge     time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
	FrameAncestors []string      `env:"FRAME_ANCESTORS" envSeparator:","` // empty = deny framing
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool              `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	HeadersRaw  string            `env:"OTEL_EXPORTER_OTLP_HEADERS"` // k1:v1,k2:v2 (k=v also accepted)
	Headers     map[string]string // parsed from HeadersRaw by Load
	ServiceName string            `env:"OTEL_SERVICE_NAME" envDefault:"portfolio-assistant"`
	SampleRatio float64           `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" envDefault:"1048576"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"` // debug|release|test

	// Logging
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"` // debug|info|warn|error|fatal|panic
	LogPretty   bool   `env:"LOG_PRETTY" envDefault:"false"`
	APIBasePath string `env:"API_BASE_PATH" envDefault:"/api/v1"`

	// Persistence
	Store StoreConfig

	// Assistant
	KnowledgePath   string  `env:"KNOWLEDGE_PATH"` // empty = embedded corpus
	MatchThreshold  float64 `env:"MATCH_THRESHOLD" envDefault:"0.3"`
	MaxInputRunes   int     `env:"MAX_INPUT_RUNES" envDefault:"500"`
	DefaultLanguage string  `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	LanguagePolicy  string  `env:"ANALYTICS_LANGUAGE_POLICY" envDefault:"mode"` // mode|last
	VoiceEnabled    bool    `env:"VOICE_ENABLED" envDefault:"true"`
	OpenAI          OpenAIConfig

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" envDefault:"1"`
	RateBurst int     `env:"RATE_BURST" envDefault:"5"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Scheduled analytics report (cron spec, empty = disabled)
	ReportCron string `env:"REPORT_CRON"`

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	// --- normalization ---
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(strings.TrimSpace(cfg.GinMode))
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.LanguagePolicy = strings.ToLower(strings.TrimSpace(cfg.LanguagePolicy))
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins)
	cfg.Security.FrameAncestors = cleanList(cfg.Security.FrameAncestors)

	headers, err := parseHeaders(cfg.OTEL.HeadersRaw)
	if err != nil {
		return cfg, err
	}
	cfg.OTEL.Headers = headers

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "redis":
		if strings.TrimSpace(cfg.Store.RedisAddr) == "" {
			return errors.New("REDIS_ADDR must not be empty")
		}
		if cfg.Store.RedisDB < 0 || cfg.Store.RedisTTL < 0 {
			return errors.New("REDIS_DB and REDIS_TTL must be >= 0")
		}
	default:
		return errors.New("STORE_DRIVER must be one of: memory, sqlite, redis")
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		return errors.New("MATCH_THRESHOLD must be in (0,1]")
	}
	if cfg.MaxInputRunes < 0 {
		return errors.New("MAX_INPUT_RUNES must be >= 0")
	}
	switch cfg.LanguagePolicy {
	case "mode", "last":
	default:
		return errors.New("ANALYTICS_LANGUAGE_POLICY must be one of: mode, last")
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		return errors.New("OPENAI_MAX_TOKENS must be > 0")
	}
	if cfg.OpenAI.Timeout < 0 {
		return errors.New("OPENAI_TIMEOUT must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseHeaders splits "k1:v1,k2:v2" into a map. Each entry is cut at its
// first ':' or '=', whichever comes first; keys must be non-empty.
func parseHeaders(raw string) (map[string]string, error) {
	var out map[string]string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexAny(part, ":=")
		if i <= 0 {
			return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_HEADERS: entry %q must be key:value", part)
		}
		k := strings.TrimSpace(part[:i])
		if k == "" {
			return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_HEADERS: entry %q has an empty key", part)
		}
		if out == nil {
			out = map[string]string{}
		}
		out[k] = strings.TrimSpace(part[i+1:])
	}
	return out, nil
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
