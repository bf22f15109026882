package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Standard model name",
			input:    "gpt-4o",
			expected: "gpt-4o",
		},
		{
			name:     "YandexGPT with folder ID and version",
			input:    "gpt://b1g8t5pmnjifaov0paff/yandexgpt/rc",
			expected: "yandexgpt",
		},
		{
			name:     "HF model with provider suffix",
			input:    "Qwen/Qwen2.5-VL-7B-Instruct:hyperbolic",
			expected: "Qwen/Qwen2.5-VL-7B-Instruct",
		},
		{
			name:     "HF model without suffix",
			input:    "deepseek-ai/DeepSeek-R1",
			expected: "deepseek-ai/DeepSeek-R1",
		},
		{
			name:     "OpenRouter free tier keeps suffix",
			input:    "tngtech/deepseek-r1t2-chimera:free",
			expected: "tngtech/deepseek-r1t2-chimera:free",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  meta-llama/Llama-3.3-70B-Instruct  ",
			expected: "meta-llama/Llama-3.3-70B-Instruct",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeModelName(tt.input))
		})
	}
}
