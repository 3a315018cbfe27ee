package presenter

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unavailable marks a value the gateway did not provide.
const Unavailable = "—"

var printer = message.NewPrinter(language.English)

func formatPrice(v *float64) string {
	if v == nil || *v <= 0 {
		return Unavailable
	}

	return printer.Sprintf("$%.2f", *v)
}

func formatCount(v *float64) string {
	if v == nil || *v <= 0 {
		return Unavailable
	}

	return printer.Sprintf("%d", int64(*v))
}

func formatDelta(v *float64) string {
	if v == nil {
		return Unavailable
	}

	return printer.Sprintf("%.4f", *v)
}

// formatIV takes a fraction, e.g. 0.312 renders as 31.20%.
func formatIV(v *float64) string {
	if v == nil || *v <= 0 {
		return Unavailable
	}

	return printer.Sprintf("%.2f%%", *v*100)
}

func formatMoneyness(pct float64) string {
	return printer.Sprintf("%+.2f%%", pct)
}
