package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders one fill as an org-mode heading with a property
// drawer and empty review sections.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Side, t.Symbol, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ID: %s\n", t.TradeID)
	if t.RunID != "" {
		fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	}
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", t.Quantity)
	fmt.Fprintf(&b, ":PRICE: %.4f\n", t.Price)
	fmt.Fprintf(&b, ":AVG_COST: %.4f\n", t.AvgCost)
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")

	b.WriteString("*** Thesis\n\n")
	b.WriteString("*** Execution\n\n")
	b.WriteString("*** Review\n")
	return b.String()
}

// FormatTradesOrg renders trades separated by a blank line.
func FormatTradesOrg(trades []TradeRecord) string {
	parts := make([]string, 0, len(trades))
	for _, t := range trades {
		parts = append(parts, FormatTradeOrg(t))
	}
	return strings.Join(parts, "\n\n")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
