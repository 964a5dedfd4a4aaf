package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePriceList parses "weight,price,unit,description; ..." into a tier
// map keyed by the weight text as written. Any bad entry rejects the whole
// list.
func ParsePriceList(text string) (map[string]PriceTier, error) {
	out := make(map[string]PriceTier)
	for i, entry := range strings.Split(text, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: entry %d %q: want 4 fields weight,price,unit,description, got %d",
				ErrInvalidPriceList, i+1, entry, len(fields))
		}
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		label, priceText, unit, desc := fields[0], fields[1], fields[2], fields[3]

		weight, err := parseNonNegative(label)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d %q: weight %v", ErrInvalidPriceList, i+1, entry, err)
		}
		price, err := parseNonNegative(priceText)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d %q: price %v", ErrInvalidPriceList, i+1, entry, err)
		}
		if unit == "" {
			return nil, fmt.Errorf("%w: entry %d %q: empty unit", ErrInvalidPriceList, i+1, entry)
		}
		if _, dup := out[label]; dup {
			return nil, fmt.Errorf("%w: entry %d %q: duplicate weight %s", ErrInvalidPriceList, i+1, entry, label)
		}
		out[label] = PriceTier{Weight: weight, Price: price, Unit: unit, Description: desc}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidPriceList)
	}
	return out, nil
}

func parseNonNegative(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%q is negative", s)
	}
	return d, nil
}

func ValidateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidImage, raw)
	}
	return nil
}
