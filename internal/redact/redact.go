// Package redact masks secrets and personal contact details in chat text
// before it is written to the learning history or the audit log.
package redact

import (
	"regexp"
)

var sensitivePatterns = []*regexp.Regexp{
	// AWS
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),

	// Model provider keys
	regexp.MustCompile(`sk-(proj-|ant-)?[A-Za-z0-9_-]{20,}`),

	// Generic API keys
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),

	// Private keys
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Credentials in URLs (http, redis, ...), user part optional
	regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://[^:/\s@]*:[^@\s]+@`),

	// Passwords typed into a chat
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*(is|[=:])\s*['"]?[^\s'"]{6,}['"]?`),

	// Email addresses
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),

	// Payment card numbers (13-19 digits, optional separators)
	regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every sensitive match in input with a placeholder.
func Redact(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// RedactAll redacts each element of items into a new slice.
func RedactAll(items []string) []string {
	if items == nil {
		return nil
	}
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = Redact(item)
	}
	return result
}
