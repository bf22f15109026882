package promptbuilder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Chat roles accepted in a follow-up conversation.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatTurn one earlier message of a follow-up conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalysisSummary the analysis fields a follow-up question is answered against.
type AnalysisSummary struct {
	ChartType      string
	Timeframe      string
	PriceStructure string
	Trend          string
	Momentum       string
	Regime         string
	Bias           string
	Confidence     string
}

// IsEmpty reports whether no field is set.
func (s AnalysisSummary) IsEmpty() bool {
	return s == AnalysisSummary{}
}

const chatRules = `You are a technical market analyst answering follow-up questions for educational purposes.

Rules:
- Use probabilistic language ("suggests", "may", "could")
- Explain what the chart analysis shows, not what to trade
- Never give buy/sell instructions, price targets, stop-loss or position sizes
- Never promise outcomes
- Say so when the analysis does not cover the question`

// BuildChatSystemPrompt frames the chat model with the analysis under discussion.
func (pb *PromptBuilder) BuildChatSystemPrompt(summary AnalysisSummary) string {
	if summary.IsEmpty() {
		return chatRules
	}

	var sb strings.Builder
	sb.WriteString("You are discussing a trading chart with the following analysis:\n\n")
	sb.WriteString("Chart Information:\n")
	sb.WriteString(fmt.Sprintf("- Type: %s\n", orUnknown(summary.ChartType)))
	sb.WriteString(fmt.Sprintf("- Timeframe: %s\n", orUnknown(summary.Timeframe)))
	sb.WriteString(fmt.Sprintf("- Price Structure: %s\n\n", orUnknown(summary.PriceStructure)))
	sb.WriteString("Market Analysis:\n")
	sb.WriteString(fmt.Sprintf("- Trend: %s\n", orUnknown(summary.Trend)))
	sb.WriteString(fmt.Sprintf("- Momentum: %s\n", orUnknown(summary.Momentum)))
	sb.WriteString(fmt.Sprintf("- Market Regime: %s\n", orUnknown(summary.Regime)))
	sb.WriteString(fmt.Sprintf("- Strategy Bias: %s (Confidence: %s)\n\n", orUnknown(summary.Bias), orUnknown(summary.Confidence)))
	sb.WriteString(chatRules)
	return sb.String()
}

// BuildChatPrompt renders earlier turns as a transcript ending with the new question.
func (pb *PromptBuilder) BuildChatPrompt(history []ChatTurn, message string) string {
	var sb strings.Builder
	for _, turn := range history {
		label := "User"
		if turn.Role == ChatRoleAssistant {
			label = "Assistant"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n\n", label, strings.TrimSpace(turn.Content)))
	}
	sb.WriteString(fmt.Sprintf("User: %s\n\nAssistant:", strings.TrimSpace(message)))

	prompt := sb.String()
	pb.logger.Debug("chat prompt built", zap.Int("chars", len(prompt)), zap.Int("turns", len(history)))
	return prompt
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
