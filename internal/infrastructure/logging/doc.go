// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans (LOG_DEV=true)
//
// Components receive a named child logger:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	log := logger.Component("broadcast")
//	log.Info("loop started", zap.Int("fps", 10))
package logging
