package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
)

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--fps", "5", "--target", "https://example.com", "--dev"}))

	cfg := config.Default()
	require.NoError(t, applyFlags(cmd.Flags(), cfg))

	assert.Equal(t, 5, cfg.Stream.FPS)
	assert.Equal(t, "https://example.com", cfg.Target.URL)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 60, cfg.Stream.Quality)
}

func TestApplyFlagsNoneSet(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg := config.Default()
	require.NoError(t, applyFlags(cmd.Flags(), cfg))

	assert.Equal(t, config.Default(), cfg)
}

func TestRootRejectsInvalidQuality(t *testing.T) {
	t.Setenv("PREFLIGHT", "false")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--quality", "150"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JPEG_QUALITY")
}
