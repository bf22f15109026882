// Package render formats analysis results for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/orchestrator"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warnColor = lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#E5C07B"}
	errColor  = lipgloss.AdaptiveColor{Light: "#CC3300", Dark: "#FF6B5B"}
	subtle    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#777777"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(highlight).
			Padding(0, 2).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errColor).
			Padding(0, 1)
)

func levelStyle(level domain.SafetyLevel) lipgloss.Style {
	switch level {
	case domain.SafetyBlocked:
		return lipgloss.NewStyle().Foreground(errColor).Bold(true)
	case domain.SafetyWarning:
		return lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(special).Bold(true)
	}
}

// Result renders an orchestrator result. Blocked results show only the notice.
func Result(res *orchestrator.Result) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("CHART ANALYSIS"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s  %s %.2f\n",
		labelStyle.Render("Safety:"), levelStyle(res.Level).Render(string(res.Level)),
		labelStyle.Render("Confidence:"), res.Confidence)

	for _, w := range res.Warnings {
		b.WriteString(lipgloss.NewStyle().Foreground(warnColor).Render("! " + w))
		b.WriteString("\n")
	}

	if !res.Success || res.Analysis == nil {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(res.Message))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(Analysis(res.Analysis))
	return b.String()
}

// Analysis renders a display tree as produced by CompleteAnalysis.ToDisplayFormat.
func Analysis(display map[string]any) string {
	var b strings.Builder

	vision := child(display, "vision")
	info := child(vision, "chart_info")
	section(&b, "Chart")
	field(&b, "Type", str(info, "type"))
	field(&b, "Timeframe", str(info, "timeframe"))
	field(&b, "Price structure", str(vision, "price_structure"))
	list(&b, "Indicators", strs(vision, "indicators"))
	list(&b, "Patterns", strs(vision, "patterns"))
	field(&b, "Momentum", str(vision, "momentum"))

	analysis := child(display, "analysis")

	ms := child(analysis, "market_structure")
	section(&b, "Market Structure")
	field(&b, "Trend", str(ms, "trend"))
	list(&b, "Key levels", strs(ms, "key_levels"))
	list(&b, "Notes", strs(ms, "notes"))

	mom := child(analysis, "momentum")
	section(&b, "Momentum")
	field(&b, "Strength", str(mom, "strength"))
	field(&b, "Assessment", str(mom, "assessment"))
	list(&b, "Indicators", strs(mom, "indicators"))
	list(&b, "Divergences", strs(mom, "divergences"))

	regime := child(analysis, "regime")
	section(&b, "Market Regime")
	field(&b, "Classification", str(regime, "classification"))
	field(&b, "Volatility", str(regime, "volatility"))
	field(&b, "Reasoning", str(regime, "reasoning"))

	bias := child(analysis, "strategy_bias")
	section(&b, "Strategy Bias")
	field(&b, "Bias", str(bias, "bias"))
	field(&b, "Confidence", str(bias, "confidence"))
	list(&b, "Reasoning", strs(bias, "reasoning"))

	approaches := child(analysis, "approaches")
	section(&b, "Suitable Approaches")
	recommended := str(approaches, "recommended")
	for _, ap := range approachList(approaches["options"]) {
		line := ap["name"]
		if ap["rationale"] != "" {
			line += ": " + ap["rationale"]
		}
		if recommended != "" && ap["name"] == recommended {
			line += " " + levelStyle(domain.SafetySafe).Render("(recommended)")
		}
		fmt.Fprintf(&b, "  - %s\n", line)
	}

	inv := child(analysis, "invalidation")
	section(&b, "Invalidation")
	list(&b, "Bullish view fails if", strs(inv, "bullish"))
	list(&b, "Bearish view fails if", strs(inv, "bearish"))
	list(&b, "Decision levels", strs(inv, "key_levels"))

	risks := child(analysis, "risks")
	section(&b, "Risks")
	list(&b, "Risks", strs(risks, "risks"))
	list(&b, "Conflicting signals", strs(risks, "conflicts"))
	list(&b, "Monitor", strs(risks, "monitor"))
	field(&b, "Uncertainty", str(risks, "uncertainty"))

	meta := child(display, "metadata")
	if id := str(meta, "analysis_id"); id != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("analysis %s · %s · %s",
			id, str(meta, "vision_model"), str(meta, "reasoning_model"))))
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func list(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s\n", labelStyle.Render(label+":"))
	for _, item := range items {
		fmt.Fprintf(b, "    - %s\n", item)
	}
}

func child(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	c, _ := m[key].(map[string]any)
	return c
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return ""
}

func strs(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func approachList(v any) []map[string]string {
	switch options := v.(type) {
	case []map[string]string:
		return options
	case []any:
		out := make([]map[string]string, 0, len(options))
		for _, o := range options {
			switch m := o.(type) {
			case map[string]string:
				out = append(out, m)
			case map[string]any:
				out = append(out, map[string]string{"name": str(m, "name"), "rationale": str(m, "rationale")})
			}
		}
		return out
	}
	return nil
}
