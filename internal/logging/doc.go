// Package logging provides structured logging utilities for lexsync.
//
// All components log through log/slog. This package keeps attribute names
// consistent and makes sure credentials never reach a log line in clear text.
//
// # Key Features
//
//   - Logger construction with JSON or text output (text on terminals)
//   - Token masking and email anonymization
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "drive.list")
//	logger.Info("listing files",
//	    logging.Status("success"))
//
// Mask secrets before logging:
//
//	logger.Debug("token refreshed",
//	    logging.Token("access_token", tok.AccessToken))
package logging
