package security

import (
	"context"
	"log/slog"
	"strings"
)

// DenylistScreener is the in-process sanctions collaborator: a hit is any
// extracted name containing a denylisted token (case-insensitive). A real
// deployment would swap this for a screening vendor adapter behind the same
// port; the denylist always contains the TEST_BLOCKED marker used by
// compliance smoke checks.
type DenylistScreener struct {
	logger *slog.Logger
	tokens []string
}

func NewDenylistScreener(logger *slog.Logger, extraTokens []string) *DenylistScreener {
	tokens := []string{"TEST_BLOCKED"}
	for _, t := range extraTokens {
		t = strings.TrimSpace(t)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return &DenylistScreener{logger: logger, tokens: tokens}
}

func (s *DenylistScreener) Screen(ctx context.Context, fullName, idNumber, countryCode string) (bool, error) {
	haystack := strings.ToUpper(fullName)
	for _, token := range s.tokens {
		if strings.Contains(haystack, strings.ToUpper(token)) {
			s.logger.WarnContext(ctx, "sanctions screening hit",
				"module", "security",
				"layer", "adapter",
				"operation", "screen",
				"outcome", "hit",
				"country_code", countryCode,
			)
			return true, nil
		}
	}
	return false, nil
}
