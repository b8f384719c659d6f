// Package logging provides structured logging utilities for inboxscan.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction from --log-level / --log-format
//   - PII sanitization (mailbox address hashing)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface so the scanner core stays handler-agnostic
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "scan.account")
//	logger.Info("mailbox scanned",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("mailbox resolved",
//	    logging.UserHash(address))
//
// # Security Considerations
//
// Operational logs never carry the content that matched. Mailbox addresses are
// hashed unless the operator explicitly asks for PII in the compliance report.
package logging
