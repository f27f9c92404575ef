// Package redact scrubs credentials from strings before they are
// logged or stored in task results. Provider errors sometimes echo the
// request back, API key included, and task results are returned to API
// clients verbatim.
package redact

import "regexp"

// RedactedKeyPlaceholder replaces anything that looks like a credential.
const RedactedKeyPlaceholder = "[REDACTED_KEY]"

var (
	// key=... query parameters, the way the Gemini REST API carries the
	// API key.
	keyParamRegex = regexp.MustCompile(`(?i)([?&](?:api[_-]?key|key|token|access_token)=)[^&\s"']+`)

	// api_key: value / token = value style assignments in error text.
	keyAssignRegex = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|authorization)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// Bearer tokens in echoed headers.
	bearerRegex = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{8,}`)
)

// String returns s with anything credential-shaped replaced by a
// placeholder.
func String(s string) string {
	s = keyParamRegex.ReplaceAllString(s, "${1}"+RedactedKeyPlaceholder)
	s = keyAssignRegex.ReplaceAllString(s, "${1}${2}"+RedactedKeyPlaceholder)
	s = bearerRegex.ReplaceAllString(s, "${1}"+RedactedKeyPlaceholder)
	return s
}

// Error returns the redacted message of err, or "" for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
