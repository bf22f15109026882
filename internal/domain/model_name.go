package domain

import "strings"

// NormalizeModelName strips routing decorations from a model identifier so that
// metadata and journal entries carry a stable name.
// "gpt://b1g8t5pmnjifaov0paff/yandexgpt/rc" becomes "yandexgpt",
// "Qwen/Qwen2.5-VL-7B-Instruct:hyperbolic" becomes "Qwen/Qwen2.5-VL-7B-Instruct".
func NormalizeModelName(model string) string {
	normalized := strings.TrimSpace(model)
	if idx := strings.Index(normalized, "gpt://"); idx >= 0 {
		remainder := normalized[idx+len("gpt://"):]
		if slashIdx := strings.Index(remainder, "/"); slashIdx >= 0 {
			normalized = remainder[slashIdx+1:]
			if nextSlashIdx := strings.Index(normalized, "/"); nextSlashIdx >= 0 {
				normalized = normalized[:nextSlashIdx]
			}
		}
		return normalized
	}

	// router provider suffix, e.g. ":together" or ":fastest"; ":free" is part of the name on openrouter
	if colonIdx := strings.LastIndex(normalized, ":"); colonIdx > 0 {
		suffix := normalized[colonIdx+1:]
		if suffix != "free" && !strings.Contains(suffix, "/") {
			normalized = normalized[:colonIdx]
		}
	}
	return normalized
}
