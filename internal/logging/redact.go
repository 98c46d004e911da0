package logging

import (
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"auth",
	"credential",
}

// Patterns for secrets that should be redacted before a log line or error
// message leaves the process. Operator tokens show up in request dumps and
// websocket handshake errors.
var secretPatterns = []*regexp.Regexp{
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	// token/cursor query parameters
	regexp.MustCompile(`(?i)(token|access_token)=[a-zA-Z0-9._-]{8,}`),

	// Generic long values assigned to secret-looking keys
	regexp.MustCompile(`(?i)(key|token|secret|password|auth)[=:]["']?([a-zA-Z0-9+/=_-]{32,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a map.
func RedactMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))

	for k, v := range m {
		if IsSensitiveField(k) {
			result[k] = RedactedValue
		} else if nested, ok := v.(map[string]interface{}); ok {
			result[k] = RedactMap(nested)
		} else if str, ok := v.(string); ok {
			result[k] = Redact(str)
		} else {
			result[k] = v
		}
	}

	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
