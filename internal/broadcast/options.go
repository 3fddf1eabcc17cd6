package broadcast

import (
	"time"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
)

// Options tunes loop pacing.
type Options struct {
	FPS          int
	FrameFloor   time.Duration
	IdleInterval time.Duration
	ErrorBackoff time.Duration
	// BreakerThreshold is the number of consecutive capture failures that
	// open the breaker. Zero disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Stream)
}

// OptionsFromConfig maps the stream section of the service configuration.
func OptionsFromConfig(cfg config.StreamConfig) Options {
	return Options{
		FPS:              cfg.FPS,
		FrameFloor:       cfg.FrameFloor,
		IdleInterval:     cfg.IdleInterval,
		ErrorBackoff:     cfg.ErrorBackoff,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
	}
}

// FramePeriod is the pause after a delivered frame: max(1s/fps, floor).
func (o Options) FramePeriod() time.Duration {
	period := o.FrameFloor
	if o.FPS > 0 {
		if p := time.Second / time.Duration(o.FPS); p > period {
			period = p
		}
	}
	return period
}
