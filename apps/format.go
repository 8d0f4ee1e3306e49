package apps

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatAmount renders v with grouped thousands and two decimals.
func formatAmount(prefix string, v float64) string {
	return prefix + printer.Sprintf("%.2f", v)
}

// FormatPercent renders a probability in [0, 1] as a percentage.
func FormatPercent(p float64) string {
	return printer.Sprintf("%.2f%%", p*100)
}

// confidenceBand grades a classification confidence in [0, 1].
func confidenceBand(p float64) string {
	switch {
	case p > 0.85:
		return "high"
	case p > 0.60:
		return "medium"
	default:
		return "low"
	}
}
