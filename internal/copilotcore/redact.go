package copilotcore

import (
	"regexp"
	"strings"
)

const (
	// MaxFreeTextChars is the hard clamp applied to all free-text node/edge
	// fields after PII redaction.
	MaxFreeTextChars = 100

	// MaxTags is the per-node tag count limit.
	MaxTags = 10

	// MaxTagChars is the per-tag character limit.
	MaxTagChars = 50

	// MaxMetaKeys is the per-node/edge metadata key count limit.
	MaxMetaKeys = 10

	// MaxMetaBytes is the total metadata size limit in bytes.
	MaxMetaBytes = 2 * 1024
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?\d{1,3}[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)
	urlPattern   = regexp.MustCompile(`\bhttps?://\S+`)
)

const redactedPlaceholder = "[REDACTED]"

// RedactPII replaces emails, IPv4 addresses, phone numbers, and URLs in
// free text with "[REDACTED]", then clamps the result to MaxFreeTextChars.
func RedactPII(s string) string {
	s = urlPattern.ReplaceAllString(s, redactedPlaceholder)
	s = emailPattern.ReplaceAllString(s, redactedPlaceholder)
	s = ipv4Pattern.ReplaceAllString(s, redactedPlaceholder)
	s = phonePattern.ReplaceAllString(s, redactedPlaceholder)
	return ClampText(s, MaxFreeTextChars)
}

// ClampText truncates a string to at most n runes.
func ClampText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ClampTags enforces MaxTags count and MaxTagChars per tag, redacting PII
// in each tag along the way.
func ClampTags(tags []string) []string {
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = ClampText(RedactPII(t), MaxTagChars)
	}
	return out
}

// ClampMeta enforces MaxMetaKeys and a MaxMetaBytes total size budget,
// redacting PII in values. Keys beyond the budget are dropped in map
// iteration order (maps are unordered; callers needing determinism should
// pre-sort keys before calling this).
func ClampMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	total := 0
	count := 0
	for k, v := range meta {
		if count >= MaxMetaKeys {
			break
		}
		rv := RedactPII(v)
		size := len(k) + len(rv)
		if total+size > MaxMetaBytes {
			continue
		}
		out[k] = rv
		total += size
		count++
	}
	return out
}

// IsRedactable reports whether s contains a PII pattern this package knows
// how to redact, without mutating it. Useful for tests and audits.
func IsRedactable(s string) bool {
	return emailPattern.MatchString(s) || ipv4Pattern.MatchString(s) ||
		phonePattern.MatchString(s) || urlPattern.MatchString(s)
}

// NormalizeLabel is a convenience wrapper combining redaction and clamping
// for the common case of a single free-text label field.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(RedactPII(s))
}
