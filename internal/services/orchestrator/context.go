package orchestrator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Context keys accepted from users.
const (
	ContextTimeframe   = "timeframe"
	ContextAsset       = "asset"
	ContextDescription = "description"
)

const maxContextValueLen = 200

var (
	allowedContextKeys = map[string]bool{
		ContextTimeframe:   true,
		ContextAsset:       true,
		ContextDescription: true,
	}
	unsafeContextChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_/.,():]`)
)

// SanitizeContext keeps whitelisted keys only, truncates each value to 200
// characters and strips everything outside a conservative character set.
// Values that end up blank are dropped.
func SanitizeContext(logger *zap.Logger, raw map[string]string) map[string]string {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if !allowedContextKeys[key] {
			logger.Warn("ignoring unknown context key", zap.String("key", key))
			continue
		}

		if utf8.RuneCountInString(value) > maxContextValueLen {
			logger.Warn("truncating long context value", zap.String("key", key))
			value = string([]rune(value)[:maxContextValueLen])
		}

		value = strings.TrimSpace(unsafeContextChars.ReplaceAllString(value, ""))
		if value != "" {
			out[key] = value
		}
	}
	return out
}
