package orders

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

type Share struct {
	Count   int
	Percent float64 // of all orders, one decimal place
}

type ProductSales struct {
	Product string
	Units   int
	Weight  decimal.Decimal // tier weight times quantity
}

type Statistics struct {
	Count     int
	Revenue   decimal.Decimal
	ByStatus  map[Status]Share
	ByPayment map[PaymentMethod]Share
	Products  []ProductSales // most units first
}

// ComputeStatistics aggregates orders. Revenue counts every order
// regardless of status.
func ComputeStatistics(orders []Order) Statistics {
	st := Statistics{
		Count:     len(orders),
		Revenue:   decimal.Zero,
		ByStatus:  make(map[Status]Share),
		ByPayment: make(map[PaymentMethod]Share),
	}
	statusN := make(map[Status]int)
	paymentN := make(map[PaymentMethod]int)
	sales := make(map[string]*ProductSales)

	for _, o := range orders {
		st.Revenue = st.Revenue.Add(o.Total)
		statusN[o.Status]++
		paymentN[o.PaymentMethod]++
		for k, qty := range o.Items {
			ps, ok := sales[k.Product]
			if !ok {
				ps = &ProductSales{Product: k.Product, Weight: decimal.Zero}
				sales[k.Product] = ps
			}
			ps.Units += qty
			if w, err := decimal.NewFromString(k.Tier); err == nil {
				ps.Weight = ps.Weight.Add(w.Mul(decimal.NewFromInt(int64(qty))))
			}
		}
	}

	for s, n := range statusN {
		st.ByStatus[s] = Share{Count: n, Percent: percent(n, st.Count)}
	}
	for m, n := range paymentN {
		st.ByPayment[m] = Share{Count: n, Percent: percent(n, st.Count)}
	}
	for _, ps := range sales {
		st.Products = append(st.Products, *ps)
	}
	sort.Slice(st.Products, func(i, j int) bool {
		a, b := st.Products[i], st.Products[j]
		if a.Units != b.Units {
			return a.Units > b.Units
		}
		return a.Product < b.Product
	})
	return st
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}
