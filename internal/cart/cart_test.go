package cart

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices map[Key]string

func (f fakePrices) Tier(product, label string) (catalog.PriceTier, error) {
	p, ok := f[Key{product, label}]
	if !ok {
		return catalog.PriceTier{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, product)
	}
	return catalog.PriceTier{Price: decimal.RequireFromString(p), Unit: "grams"}, nil
}

func TestAddItemSumsQuantities(t *testing.T) {
	s := NewStore(0)
	adds := []struct {
		product, tier string
		qty           int
	}{
		{"A", "3.5", 1}, {"A", "7", 2}, {"A", "3.5", 3}, {"B", "1", 1}, {"A", "3.5", 2},
	}
	for _, a := range adds {
		_, err := s.AddItem(42, a.product, a.tier, a.qty)
		require.NoError(t, err)
	}
	c := s.Get(42)
	assert.Equal(t, 6, c[Key{"A", "3.5"}])
	assert.Equal(t, 2, c[Key{"A", "7"}])
	assert.Equal(t, 1, c[Key{"B", "1"}])
	assert.Equal(t, 9, c.Units())
}

func TestGetUnknownUserIsEmpty(t *testing.T) {
	s := NewStore(0)
	c := s.Get(7)
	assert.NotNil(t, c)
	assert.True(t, c.Empty())
}

func TestClearThenGetIsEmpty(t *testing.T) {
	s := NewStore(0)
	_, err := s.AddItem(1, "A", "1", 4)
	require.NoError(t, err)
	s.Clear(1)
	assert.Empty(t, s.Get(1))
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(0)
	_, _ = s.AddItem(1, "A", "1", 1)
	c := s.Get(1)
	c[Key{"A", "1"}] = 99
	assert.Equal(t, 1, s.Get(1)[Key{"A", "1"}])
}

func TestQuantityLimit(t *testing.T) {
	s := NewStore(3)
	_, err := s.AddItem(1, "A", "1", 2)
	require.NoError(t, err)
	qty, err := s.AddItem(1, "A", "1", 2)
	require.ErrorIs(t, err, ErrQuantityLimit)
	assert.Equal(t, 2, qty)
	assert.Equal(t, 2, s.Get(1)[Key{"A", "1"}])

	_, err = s.AddItem(1, "A", "1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestKeyTextSplitsOnLastUnderscore(t *testing.T) {
	k, err := ParseKey("Super_Lemon_Haze_3.5")
	require.NoError(t, err)
	assert.Equal(t, Key{"Super_Lemon_Haze", "3.5"}, k)

	_, err = ParseKey("nounderscore")
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParseKey("trailing_")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestCartJSON(t *testing.T) {
	in := Cart{{"Blue Dream", "3.5"}: 2, {"Og_Kush", "7"}: 1}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Blue Dream_3.5":2,"Og_Kush_7":1}`, string(b))

	var out Cart
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestSummarizeLivePricing(t *testing.T) {
	prices := fakePrices{{"A", "3.5"}: "30.00", {"A", "7"}: "55.00"}
	c := Cart{{"A", "3.5"}: 2, {"A", "7"}: 1}

	sum := Summarize(c, prices)
	require.NoError(t, sum.Err())
	assert.Equal(t, "115.00", sum.Total.StringFixed(2))
	require.Len(t, sum.Lines, 2)
	assert.Equal(t, "3.5", sum.Lines[0].Tier)
	assert.Equal(t, "60.00", sum.Lines[0].Subtotal.StringFixed(2))

	prices[Key{"A", "7"}] = "60.00"
	assert.Equal(t, "120.00", Summarize(c, prices).Total.StringFixed(2))
}

func TestSummarizeFlagsDanglingLines(t *testing.T) {
	prices := fakePrices{{"A", "1"}: "9.00"}
	c := Cart{{"A", "1"}: 1, {"Gone", "1"}: 3}

	sum := Summarize(c, prices)
	require.ErrorIs(t, sum.Err(), ErrDanglingReference)
	assert.Equal(t, "9.00", sum.Total.StringFixed(2))
	require.Len(t, sum.Lines, 2)
	assert.True(t, sum.Lines[1].Unavailable)
	assert.Equal(t, "Gone", sum.Lines[1].Product)
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStore(0)
	_, _ = s.AddItem(1, "A", "1", 2)
	s.Clear(2)

	snap := s.Snapshot()
	other := NewStore(0)
	other.Restore(snap)
	assert.Equal(t, s.Get(1), other.Get(1))
	assert.Contains(t, other.Snapshot(), int64(2))
}
