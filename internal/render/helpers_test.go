package render

import (
	"time"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
)

func testTargetConfig() config.TargetConfig {
	cfg := config.Default().Target
	cfg.URL = "https://example.com/"
	cfg.NavigationTimeout = 2 * time.Minute
	return cfg
}
