// Package promptbuilder builds the vision and reasoning prompts sent to the models.
package promptbuilder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Context is optional, already sanitized user context for one chart.
type Context struct {
	Asset       string
	Timeframe   string
	Description string
}

// IsEmpty reports whether no context field is set.
func (c Context) IsEmpty() bool {
	return c.Asset == "" && c.Timeframe == "" && c.Description == ""
}

// PromptBuilder constructs prompts for the two model stages.
type PromptBuilder struct {
	logger *zap.Logger
}

// NewPromptBuilder creates a new PromptBuilder instance.
func NewPromptBuilder(logger *zap.Logger) *PromptBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptBuilder{logger: logger}
}

// BuildVisionPrompt returns the user prompt accompanying the chart image.
func (pb *PromptBuilder) BuildVisionPrompt(ctx Context) string {
	var sb strings.Builder
	sb.WriteString(visionInstructions)

	if !ctx.IsEmpty() {
		sb.WriteString("\n\nAdditional Context:\n")
		sb.WriteString(fmt.Sprintf("- Timeframe: %s\n", orNotSpecified(ctx.Timeframe)))
		sb.WriteString(fmt.Sprintf("- Asset: %s\n", orNotSpecified(ctx.Asset)))
		if ctx.Description != "" {
			sb.WriteString(fmt.Sprintf("- Notes: %s\n", ctx.Description))
		}
	}

	sb.WriteString("\nProvide your analysis in a structured format using the five headings above.")

	prompt := sb.String()
	pb.logger.Debug("vision prompt built", zap.Int("chars", len(prompt)), zap.Bool("with_context", !ctx.IsEmpty()))
	return prompt
}

// BuildReasoningPrompt embeds the vision description and asks for the seven sections.
func (pb *PromptBuilder) BuildReasoningPrompt(visionOutput string, ctx Context) string {
	var sb strings.Builder

	sb.WriteString("Based on the following technical chart description, provide a structured market analysis.\n\n")
	sb.WriteString("## Chart Description\n")
	sb.WriteString(strings.TrimSpace(visionOutput))
	sb.WriteString("\n\n")

	if ctx.Asset != "" || ctx.Timeframe != "" {
		sb.WriteString(fmt.Sprintf("Asset: %s, timeframe: %s\n\n", orNotSpecified(ctx.Asset), orNotSpecified(ctx.Timeframe)))
	}

	sb.WriteString("## Your Analysis\n\n")
	sb.WriteString("Provide a clear, structured analysis with exactly these sections:\n\n")
	sb.WriteString(reasoningSections)
	sb.WriteString("\n\n")
	sb.WriteString(reasoningReminders)
	sb.WriteString("\n\nProvide your analysis now:")

	prompt := sb.String()
	pb.logger.Debug("reasoning prompt built", zap.Int("chars", len(prompt)))
	return prompt
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
