package service

import (
	"fmt"
	"strconv"

	"spreadwatch/internal/domain"
)

// FormatAlert renders an event for the sinks: a short title and a body with
// the direction, reference prices, and detection time.
func FormatAlert(ev *domain.OpportunityEvent) (title, body string) {
	title = fmt.Sprintf("%s spread %.2f%%", ev.Instrument, ev.SpreadPct)
	body = fmt.Sprintf("buy %s @ %s, sell %s @ %s\nspread %.2f%%, detected %s",
		ev.BuyVenue, formatPrice(ev.LowPrice),
		ev.SellVenue, formatPrice(ev.HighPrice),
		ev.SpreadPct, ev.DetectedAt.UTC().Format("2006-01-02 15:04:05")+" UTC")
	return title, body
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
