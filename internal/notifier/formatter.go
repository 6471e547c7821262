package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockLens/internal/stock"
)

// DigestLine is one watchlist entry in the growth digest.
type DigestLine struct {
	Ticker    string
	Company   string
	Type      stock.InstrumentType
	LastClose float64
	Panel     []stock.Growth
	Err       error
}

// FormatDigest renders the watchlist growth digest as Telegram HTML.
func FormatDigest(date time.Time, lines []DigestLine) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>StockLens | Crescimento Percentual</b> | %s\n", date.Format("02/01/2006")))

	for _, l := range lines {
		b.WriteString("\n")
		name := l.Ticker
		if l.Company != "" {
			name = fmt.Sprintf("%s (%s)", l.Ticker, html.EscapeString(l.Company))
		}
		if l.Err != nil {
			b.WriteString(fmt.Sprintf("❌ <b>%s</b>: %s\n", name, html.EscapeString(l.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> [%s] R$ %.2f\n", name, l.Type, l.LastClose))
		parts := make([]string, 0, len(l.Panel))
		for _, g := range l.Panel {
			parts = append(parts, fmt.Sprintf("%s %s: %s", marker(g), horizon(g.Months), growthText(g)))
		}
		b.WriteString("  " + strings.Join(parts, " | ") + "\n")
	}
	return b.String()
}

func marker(g stock.Growth) string {
	if g.Positive() {
		return "🟢"
	}
	return "🔴"
}

func horizon(months int) string {
	switch months {
	case 1:
		return "1M"
	case 12:
		return "1A"
	default:
		return fmt.Sprintf("%dM", months)
	}
}

func growthText(g stock.Growth) string {
	if g.Value == nil {
		return "n/d"
	}
	return fmt.Sprintf("%+.2f%%", *g.Value)
}
