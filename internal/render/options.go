package render

import (
	"time"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
)

// Viewport is the emulated device screen.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

// Options configures Launch.
type Options struct {
	URL               string
	Viewport          Viewport
	UserAgent         string
	Headers           map[string]string
	NavigationTimeout time.Duration
	Headless          bool
	NoSandbox         bool
	// ExecPath overrides browser discovery. Empty uses chromedp's lookup.
	ExecPath string
}

// OptionsFromConfig maps the target section of the service configuration.
func OptionsFromConfig(cfg config.TargetConfig) Options {
	headers := map[string]string{}
	if cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = cfg.AcceptLanguage
	}
	return Options{
		URL: cfg.URL,
		Viewport: Viewport{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
			Scale:  cfg.DeviceScale,
		},
		UserAgent:         cfg.UserAgent,
		Headers:           headers,
		NavigationTimeout: cfg.NavigationTimeout,
		Headless:          cfg.Headless,
		NoSandbox:         cfg.NoSandbox,
	}
}
