package safety

import (
	"strings"

	"github.com/pkg/errors"
)

// Position where a disclaimer is placed.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
	PositionBoth   Position = "both"
)

const (
	// MandatoryDisclaimer full disclaimer attached below an analysis.
	MandatoryDisclaimer = `⚠️ **IMPORTANT DISCLAIMER**

This analysis is for **educational and informational purposes only**. It is NOT financial advice, investment advice, or a recommendation to buy, sell, or hold any asset.

**Key points:**
- This is a decision-support tool, not a trading system
- No predictions or guarantees are made about future price movements
- Past patterns do not guarantee future results
- Trading involves substantial risk of loss
- Always do your own research and consult qualified financial professionals`

	// ShortDisclaimer one-line disclaimer placed above an analysis.
	ShortDisclaimer = `⚠️ **Educational purposes only. Not financial advice. Trading involves substantial risk.**`

	// FooterDisclaimer closes an analysis that starts with ShortDisclaimer.
	FooterDisclaimer = `---
*This analysis is provided for educational purposes only and should not be considered financial advice. Always do your own research before making trading decisions.*`
)

var disclaimerMarkers = []string{
	"disclaimer",
	"not financial advice",
	"educational purposes only",
	"not investment advice",
}

// ErrUnknownPosition returned by ParsePosition.
var ErrUnknownPosition = errors.New("unknown disclaimer position")

// ParsePosition parses "top", "bottom" or "both".
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case PositionTop, PositionBottom, PositionBoth:
		return p, nil
	default:
		return "", errors.Wrapf(ErrUnknownPosition, "%q", s)
	}
}

// Inject wraps text in disclaimers. Each call adds another copy, so inject
// exactly once per output. Unknown positions behave like PositionBoth.
func Inject(text string, position Position) string {
	switch position {
	case PositionTop:
		return ShortDisclaimer + "\n\n" + text + "\n\n" + FooterDisclaimer
	case PositionBottom:
		return text + "\n\n" + MandatoryDisclaimer
	default:
		return ShortDisclaimer + "\n\n" + text + "\n\n" + MandatoryDisclaimer
	}
}

// HasDisclaimer reports whether text already carries disclaimer wording.
func HasDisclaimer(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range disclaimerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
