package safety

import (
	"strings"

	"github.com/vadiminshakov/chartsense/internal/domain"
)

var categoryWarnings = map[domain.Category]string{
	domain.CategoryFinancialAdvice:    "Output contains language that may be interpreted as financial advice",
	domain.CategoryTradeInstruction:   "Output contains specific trade instructions",
	domain.CategoryPricePrediction:    "Output contains price predictions",
	domain.CategoryGuaranteedOutcome:  "Output contains language suggesting guaranteed outcomes",
	domain.CategoryUnhedgedPrediction: "Output states future moves without hedging",
	domain.CategoryCertaintyLanguage:  "Output uses certainty language",
	domain.CategoryLowConfidence:      "Analysis confidence is too low for safe display",
}

// Warnings returns one human readable warning per category, in category order.
func Warnings(categories domain.CategorySet) []string {
	out := []string{}
	for _, c := range categories.Sorted() {
		if w, ok := categoryWarnings[c]; ok {
			out = append(out, w)
			continue
		}
		out = append(out, c.Title())
	}
	return out
}

// NoticeFor returns the message shown instead of a blocked output.
func NoticeFor(result domain.SafetyResult) string {
	if len(result.TriggeredCategories) == 1 && result.TriggeredCategories.Has(domain.CategoryLowConfidence) {
		return LowConfidenceMessage()
	}
	return BlockedMessage(result.TriggeredCategories.Sorted())
}

// LowConfidenceMessage is shown when an analysis falls under the confidence floor.
func LowConfidenceMessage() string {
	return `## Analysis Unavailable

This chart's analysis did not reach the confidence required for display.

**Possible reasons:**
- The chart image is blurry or cropped
- Indicators or patterns are hard to read
- Signals conflict too much for a reliable reading
- Timeframe or asset context is missing

**What you can do:**
1. Upload a clearer chart image
2. Make sure all indicators are visible
3. Add context such as timeframe and asset
4. Try another chart or timeframe`
}

// ErrorMessage is shown when the analysis could not be produced at all.
func ErrorMessage() string {
	return `## Analysis Error

Something went wrong while analyzing this chart. Please try again.

**If the problem persists:**
- Check that the image is a PNG, JPEG, WEBP or GIF file
- Make sure the image is a trading chart screenshot
- Keep the file under the upload size limit
- Try a different chart image

This tool is for educational purposes only and must not be relied upon for trading decisions.`
}

// BlockedMessage is shown instead of output that broke a hard rule. It names
// the categories only and never repeats the blocked text.
func BlockedMessage(categories []domain.Category) string {
	var b strings.Builder
	b.WriteString("## Analysis Blocked\n\n")
	b.WriteString("The generated analysis was withheld by the safety filter.\n\n")
	b.WriteString("**Detected issues:**\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c.Title())
		b.WriteByte('\n')
	}
	b.WriteString("\nThe model produced language that could read as financial advice, trade instructions " +
		"or guaranteed predictions. This is a protective measure, not an error. You can try analyzing a different chart.")
	return b.String()
}
