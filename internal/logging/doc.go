// Package logging provides structured logging utilities for the inboxdraft add-on backend.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog (JSON in production, text for local debugging)
//   - PII sanitization (email anonymization, token masking)
//   - Request id propagation through context.Context
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithAction(slog.Default(), "generateReply")
//	logger.Info("reply generated",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("user operation",
//	    logging.UserHash(email))
//
// # Security Considerations
//
// The add-on receives user OAuth tokens and Gmail access tokens on every request.
// They are never logged directly; use SanitizeToken when their presence matters.
package logging
