package bot

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

func title(s string) string { return titleCaser.String(s) }

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

// amount renders a tier as "3.5 grams", falling back to the bare label
// when the tier has no unit.
func amount(label string, t catalog.PriceTier) string {
	if t.Unit == "" {
		return label
	}
	return label + " " + t.Unit
}

var statusIcon = map[orders.Status]string{
	orders.StatusPending:    "⏳",
	orders.StatusProcessing: "🔄",
	orders.StatusShipped:    "🚚",
	orders.StatusDelivered:  "✅",
	orders.StatusCancelled:  "❌",
}

// writeSummary lists cart lines grouped under their product.
func writeSummary(b *strings.Builder, sum cart.Summary) {
	last := ""
	for _, l := range sum.Lines {
		if l.Product != last {
			if last != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(b, "%s:\n", l.Product)
			last = l.Product
		}
		if l.Unavailable {
			fmt.Fprintf(b, "   • %s × %d (no longer available)\n", l.Tier, l.Qty)
			continue
		}
		fmt.Fprintf(b, "   • %s × %d = %s\n", amount(l.Tier, l.PriceTier), l.Qty, money(l.Subtotal))
	}
}

// writeItems lists an order's items. Orders keep no prices per line, so
// only the unit comes from the catalog, when it still has the tier.
func (s *Service) writeItems(b *strings.Builder, items cart.Cart) {
	sum := cart.Summarize(items, s.Catalog)
	for _, l := range sum.Lines {
		if l.Unavailable {
			fmt.Fprintf(b, "• %s %s × %d\n", l.Product, l.Tier, l.Qty)
			continue
		}
		fmt.Fprintf(b, "• %s %s × %d\n", l.Product, amount(l.Tier, l.PriceTier), l.Qty)
	}
}

func (s *Service) writeOrder(b *strings.Builder, o orders.Order, withShipping bool) {
	fmt.Fprintf(b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(b, "Date: %s\n", o.CreatedAt.Format(orders.TimestampLayout))
	fmt.Fprintf(b, "Status: %s %s\n", statusIcon[o.Status], title(string(o.Status)))
	fmt.Fprintf(b, "Total: %s\n", money(o.Total))
	fmt.Fprintf(b, "Payment: %s\n\n", title(string(o.PaymentMethod)))
	s.writeItems(b, o.Items)
	if withShipping {
		fmt.Fprintf(b, "\nShipping Info:\n%s\n", o.ShippingAddress)
	}
}

// pager adds previous/next buttons when there is somewhere to go.
func pager[T any](p orders.Page[T], prev, next Kind) []Button {
	var nav []Button
	if p.HasPrev() {
		nav = append(nav, btn("⬅️ Previous", kind(prev)))
	}
	if p.HasNext() {
		nav = append(nav, btn("Next ➡️", kind(next)))
	}
	return nav
}

func appendRow(rows [][]Button, r []Button) [][]Button {
	if len(r) == 0 {
		return rows
	}
	return append(rows, r)
}
