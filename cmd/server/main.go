package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagecast",
		Short: "Stream a live view of a web page to WebSocket viewers",
		Long: `Stream a live view of a web page to WebSocket viewers.

A headless Chrome renders the target page; while at least one viewer is
connected, JPEG frames are captured and pushed to every viewer on /ws.`,
		Example: `
  # Stream the default page on :3000.
  pagecast

  # Stream another page at 5 fps with colored debug logs.
  pagecast --target https://example.com --fps 5 --dev`[1:],
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("PageCast exited with error", zap.Error(err))
				_ = logger.Sync()
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.String("port", "", "listen port (overrides PORT)")
	flags.String("target", "", "page to stream (overrides TARGET_URL)")
	flags.Int("fps", 0, "target frame rate (overrides FPS)")
	flags.Int("quality", 0, "JPEG quality 0-100 (overrides JPEG_QUALITY)")
	flags.Bool("dev", false, "development logging: debug level, colored console")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, c.UsageString())
	})
	return cmd
}

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	if flags.Changed("port") {
		if cfg.Server.Port, err = flags.GetString("port"); err != nil {
			return err
		}
	}
	if flags.Changed("target") {
		if cfg.Target.URL, err = flags.GetString("target"); err != nil {
			return err
		}
	}
	if flags.Changed("fps") {
		if cfg.Stream.FPS, err = flags.GetInt("fps"); err != nil {
			return err
		}
	}
	if flags.Changed("quality") {
		if cfg.Stream.Quality, err = flags.GetInt("quality"); err != nil {
			return err
		}
	}
	if flags.Changed("dev") {
		dev, err := flags.GetBool("dev")
		if err != nil {
			return err
		}
		cfg.Logging.Development = dev
		if dev {
			cfg.Logging.Level = "debug"
		}
	}
	return nil
}

// run serves until SIGINT or SIGTERM, then shuts down cleanly. Only a failed
// launch or a Serve error is reported; shutdown after a signal always succeeds.
func run(parent context.Context, cfg *config.Config, logger *logging.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start render surface: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
		return srv.Close()
	case err := <-errCh:
		_ = srv.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
