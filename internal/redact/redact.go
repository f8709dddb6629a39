// Package redact masks credentials in strings before they are logged or
// printed in a run summary. Generation errors routinely echo request URLs
// (with their key= query parameter) and connection strings, and those end up
// in progress lines and failed-item reasons.
package redact

import (
	"regexp"
)

// Placeholders substituted for the redacted fragments.
const (
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order; the more specific patterns come first.
var rules = []rule{
	// Google API keys, as used by the Gemini API.
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	// key=... query parameters in request URLs.
	{regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|access_token)=)[^&\s"']+`), "${1}" + RedactedKeyPlaceholder},
	// Authorization headers.
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]+=*`), "${1}" + RedactedTokenPlaceholder},
	// user:password@ in connection strings and URLs.
	{regexp.MustCompile(`(?i)([a-z][a-z0-9+.\-]*://)[^/@\s:]+:[^/@\s]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	// api_key: value, secret=value, password = value and similar pairs.
	{
		regexp.MustCompile(`(?i)\b(api[_-]?key|secret|password|passwd|token)(\s*[:=]\s*["']?)[^\s"'&,]{4,}`),
		"${1}${2}" + RedactedCredentialPlaceholder,
	},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
