package catalog

import "github.com/shopspring/decimal"

type tierSpec struct {
	label, price, unit, desc string
}

var standardTiers = []tierSpec{
	{"0.5", "5.00", "gram", "Perfect sample size for first-time buyers"},
	{"1", "9.00", "gram", "Our most popular personal size"},
	{"3.5", "30.00", "grams", "Classic eighth, ideal for regular users"},
	{"7", "55.00", "grams", "Quarter size, great value for money"},
	{"14", "100.00", "grams", "Half-size portion with premium savings"},
	{"28", "180.00", "grams", "Full size with maximum value"},
	{"56", "340.00", "grams", "Bulk purchase with extra savings"},
	{"112", "650.00", "grams", "Wholesale quantity for serious buyers"},
	{"224", "1200.00", "grams", "Premium bulk package with major savings"},
	{"448", "2200.00", "grams", "Maximum quantity with best value"},
}

func standardPrices() map[string]PriceTier {
	out := make(map[string]PriceTier, len(standardTiers))
	for _, t := range standardTiers {
		out[t.label] = PriceTier{
			Weight:      decimal.RequireFromString(t.label),
			Price:       decimal.RequireFromString(t.price),
			Unit:        t.unit,
			Description: t.desc,
		}
	}
	return out
}

// Defaults is the built-in catalog used when no catalog document exists.
func Defaults() Document {
	doc := Document{
		Catalog: []Product{
			{Name: "Blue Dream", Type: "Hybrid", Potency: "18-24%",
				Description: "Sweet berry aroma with balanced full body relaxation"},
			{Name: "OG Kush", Type: "Hybrid", Potency: "20-25%",
				Description: "Classic strain with earthy pine and sour lemon notes"},
			{Name: "Purple Haze", Type: "Sativa", Potency: "16-20%",
				Description: "Sweet and earthy with berry and grape notes"},
			{Name: "Northern Lights", Type: "Indica", Potency: "16-21%",
				Description: "Sweet and spicy with crystal trichomes"},
		},
		Images: map[string]string{
			"Blue Dream":      "https://i.imgur.com/CsY7GcA.png",
			"OG Kush":         "https://i.imgur.com/47uY36h.png",
			"Purple Haze":     "https://i.imgur.com/N9QS7tq.png",
			"Northern Lights": "https://i.imgur.com/pZEcGUf.png",
		},
	}
	for i := range doc.Catalog {
		doc.Catalog[i].Prices = standardPrices()
	}
	return doc
}
