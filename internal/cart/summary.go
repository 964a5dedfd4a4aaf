package cart

import (
	"fmt"
	"sort"

	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/shopspring/decimal"
)

// PriceLookup resolves a tier against the live catalog.
type PriceLookup interface {
	Tier(product, label string) (catalog.PriceTier, error)
}

type Line struct {
	Key
	Qty       int
	PriceTier catalog.PriceTier
	Subtotal  decimal.Decimal

	// Unavailable lines point at a product or tier that no longer exists.
	// They carry no price and are left out of the total.
	Unavailable bool
}

type Summary struct {
	Lines []Line
	Total decimal.Decimal
}

// Err reports ErrDanglingReference when any line is unavailable.
func (s Summary) Err() error {
	var missing []string
	for _, l := range s.Lines {
		if l.Unavailable {
			missing = append(missing, l.Key.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrDanglingReference, missing)
	}
	return nil
}

// Summarize prices every line at call time. Lines are ordered by product
// then by numeric tier weight.
func Summarize(c Cart, prices PriceLookup) Summary {
	sum := Summary{Total: decimal.Zero, Lines: make([]Line, 0, len(c))}
	for k, qty := range c {
		line := Line{Key: k, Qty: qty}
		tier, err := prices.Tier(k.Product, k.Tier)
		if err != nil {
			line.Unavailable = true
		} else {
			line.PriceTier = tier
			line.Subtotal = tier.Price.Mul(decimal.NewFromInt(int64(qty)))
			sum.Total = sum.Total.Add(line.Subtotal)
		}
		sum.Lines = append(sum.Lines, line)
	}
	sort.Slice(sum.Lines, func(i, j int) bool {
		a, b := sum.Lines[i].Key, sum.Lines[j].Key
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return tierLess(a.Tier, b.Tier)
	})
	return sum
}

func tierLess(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil || da.Equal(db) {
		return a < b
	}
	return da.LessThan(db)
}
