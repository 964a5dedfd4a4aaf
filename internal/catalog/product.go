package catalog

import (
	"errors"
	"maps"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrDuplicateName    = errors.New("product name already exists")
	ErrInvalidName      = errors.New("invalid product name")
	ErrInvalidPriceList = errors.New("invalid price list")
	ErrInvalidImage     = errors.New("invalid image url")
)

// PriceTier is one weight bracket of a product. It is keyed in
// Product.Prices by the weight label exactly as the admin typed it.
type PriceTier struct {
	Weight      decimal.Decimal `json:"weight"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
}

type Product struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        string               `json:"type"`
	Potency     string               `json:"thc"`
	Prices      map[string]PriceTier `json:"prices"`

	// Image lives in the catalog's separate image map and is filled on read.
	Image string `json:"-"`
}

func (p Product) clone() Product {
	p.Prices = maps.Clone(p.Prices)
	return p
}

// SortedTiers returns the tier labels ordered by numeric weight.
func SortedTiers(p Product) []string {
	labels := make([]string, 0, len(p.Prices))
	for k := range p.Prices {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		wi, wj := p.Prices[labels[i]].Weight, p.Prices[labels[j]].Weight
		if wi.Equal(wj) {
			return labels[i] < labels[j]
		}
		return wi.LessThan(wj)
	})
	return labels
}
