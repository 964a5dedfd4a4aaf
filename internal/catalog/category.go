package catalog

// Category groups tiers for browsing.
type Category string

const (
	CategoryPersonal  Category = "personal"
	CategoryBulk      Category = "bulk"
	CategoryWholesale Category = "wholesale"
)

var Categories = []Category{CategoryPersonal, CategoryBulk, CategoryWholesale}

var categoryTiers = map[Category][]string{
	CategoryPersonal:  {"0.5", "1", "3.5", "7"},
	CategoryBulk:      {"14", "28", "56"},
	CategoryWholesale: {"112", "224", "448"},
}

func (c Category) Valid() bool {
	_, ok := categoryTiers[c]
	return ok
}

// TiersIn returns the labels of p that belong to c. A product with none of
// the category's standard tiers (a custom product) shows all of its tiers.
func TiersIn(p Product, c Category) []string {
	var out []string
	for _, label := range categoryTiers[c] {
		if _, ok := p.Prices[label]; ok {
			out = append(out, label)
		}
	}
	if len(out) == 0 {
		return SortedTiers(p)
	}
	return out
}
