// Package redact removes credentials from strings before they are logged or
// returned in error responses. Upstream provider errors routinely echo the
// request URL, which for the Gemini API can carry the API key.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedKeyPlaceholder   = "[REDACTED_KEY]"
	RedactedJWTPlaceholder   = "[REDACTED_JWT]"
	RedactedTokenPlaceholder = "[REDACTED_TOKEN]"
	RedactedEmailPlaceholder = "[REDACTED_EMAIL]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// rules are applied in order; URL query keys go first so the parameter name
// survives while its value is masked.
var rules = []rule{
	{regexp.MustCompile(`(?i)([?&](?:key|api_key|access_token)=)[^&\s"']+`), "${1}" + RedactedKeyPlaceholder},
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]+=*`), "${1}" + RedactedTokenPlaceholder},
	{regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password)["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-.~+/]{8,}`), "${1}" + RedactedKeyPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.re.ReplaceAllString(input, r.replacement)
	}
	return input
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
