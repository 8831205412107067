// Package logging provides structured logging for DevSpace Core.
//
// It wraps log/slog so every component logs in the same shape:
// JSON for production, text for development, with service and version
// attached to each entry.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device added", "id", "LED1")
//	logger.Error("connect failed", "error", err)
package logging
