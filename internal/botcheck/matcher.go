package botcheck

import (
	"strings"
	"unicode/utf8"

	"ipwarden/internal/domain"
)

// Result of classifying one user-agent string. UserAgent carries the
// normalized form that is persisted and used as the cache key.
type Result struct {
	IsBot     bool
	Reason    string
	UserAgent string
}

// Normalize trims, coerces unusable input to the empty string, and truncates
// to the persisted maximum so storage and comparisons stay bounded.
func Normalize(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if len(userAgent) > domain.MaxUserAgentLength {
		// Back off to a rune boundary so the stored value stays valid UTF-8.
		cut := domain.MaxUserAgentLength
		for cut > 0 && !utf8.RuneStart(userAgent[cut]) {
			cut--
		}
		userAgent = userAgent[:cut]
	}
	return userAgent
}

// Classify runs the local signature table against a user-agent string. It is
// pure and total: no I/O, never fails. First matching table entry supplies
// the reason; there is no scoring across entries.
func Classify(userAgent string) Result {
	normalized := Normalize(userAgent)
	if normalized == "" {
		return Result{UserAgent: ""}
	}

	// "-" is the conventional access-log placeholder for a request that sent
	// no User-Agent header at all; that absence is itself a bot signal.
	if normalized == "-" {
		return Result{IsBot: true, Reason: "no user agent supplied", UserAgent: normalized}
	}

	lowered := strings.ToLower(normalized)
	for _, sig := range signatures {
		if sig.Pattern.MatchString(lowered) {
			return Result{IsBot: true, Reason: sig.Reason, UserAgent: normalized}
		}
	}

	return Result{UserAgent: normalized}
}
