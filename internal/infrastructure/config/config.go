package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultTargetURL is streamed when TARGET_URL is not set.
const DefaultTargetURL = "https://whitebit.com/trade/XTZ-USDT"

// DefaultUserAgent is presented by the headless browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Target    TargetConfig
	Stream    StreamConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"3000"`
	StaticDir       string        `envconfig:"STATIC_DIR" default:""`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// TargetConfig describes the page rendered by the headless browser.
type TargetConfig struct {
	URL               string        `envconfig:"TARGET_URL" default:"https://whitebit.com/trade/XTZ-USDT"`
	UserAgent         string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	AcceptLanguage    string        `envconfig:"ACCEPT_LANGUAGE" default:"en-US,en;q=0.9"`
	NavigationTimeout time.Duration `envconfig:"NAV_TIMEOUT" default:"120s"`
	ViewportWidth     int           `envconfig:"VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight    int           `envconfig:"VIEWPORT_HEIGHT" default:"800"`
	DeviceScale       float64       `envconfig:"DEVICE_SCALE" default:"1"`
	Headless          bool          `envconfig:"HEADLESS" default:"true"`
	NoSandbox         bool          `envconfig:"NO_SANDBOX" default:"true"`
	Preflight         bool          `envconfig:"PREFLIGHT" default:"true"`
}

// StreamConfig controls the capture-and-broadcast loop.
type StreamConfig struct {
	FPS              int           `envconfig:"FPS" default:"10"`
	Quality          int           `envconfig:"JPEG_QUALITY" default:"60"`
	EnableInput      bool          `envconfig:"ENABLE_INPUT" default:"false"`
	IdleInterval     time.Duration `envconfig:"IDLE_INTERVAL" default:"300ms"`
	FrameFloor       time.Duration `envconfig:"FRAME_FLOOR" default:"10ms"`
	ErrorBackoff     time.Duration `envconfig:"ERROR_BACKOFF" default:"500ms"`
	CaptureTimeout   time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"5s"`
	BreakerThreshold int           `envconfig:"BREAKER_THRESHOLD" default:"10"`
	BreakerCooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"5s"`
	WriteTimeout     time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`
	MaxViewers       int           `envconfig:"MAX_VIEWERS" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "3000",
			ShutdownTimeout: 5 * time.Second,
		},
		Target: TargetConfig{
			URL:               DefaultTargetURL,
			UserAgent:         DefaultUserAgent,
			AcceptLanguage:    "en-US,en;q=0.9",
			NavigationTimeout: 120 * time.Second,
			ViewportWidth:     1280,
			ViewportHeight:    800,
			DeviceScale:       1,
			Headless:          true,
			NoSandbox:         true,
			Preflight:         true,
		},
		Stream: StreamConfig{
			FPS:              10,
			Quality:          60,
			EnableInput:      false,
			IdleInterval:     300 * time.Millisecond,
			FrameFloor:       10 * time.Millisecond,
			ErrorBackoff:     500 * time.Millisecond,
			CaptureTimeout:   5 * time.Second,
			BreakerThreshold: 10,
			BreakerCooldown:  5 * time.Second,
			WriteTimeout:     5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid TARGET_URL %q", c.Target.URL)
	}
	if c.Server.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Stream.FPS <= 0 {
		return fmt.Errorf("FPS must be positive, got %d", c.Stream.FPS)
	}
	if c.Stream.Quality < 0 || c.Stream.Quality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be within 0-100, got %d", c.Stream.Quality)
	}
	if c.Stream.IdleInterval <= 0 || c.Stream.ErrorBackoff <= 0 {
		return errors.New("IDLE_INTERVAL and ERROR_BACKOFF must be positive")
	}
	if c.Target.ViewportWidth <= 0 || c.Target.ViewportHeight <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.Target.ViewportWidth, c.Target.ViewportHeight)
	}
	if c.Stream.MaxViewers < 0 {
		return fmt.Errorf("MAX_VIEWERS must not be negative, got %d", c.Stream.MaxViewers)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
