package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.Restore(Defaults())
	return s
}

func TestParsePriceList(t *testing.T) {
	tiers, err := ParsePriceList("0.5,5.00,gram,sample; 1,9.00,gram,personal")
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.True(t, tiers["0.5"].Price.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, tiers["1"].Price.Equal(decimal.RequireFromString("9.00")))
	assert.True(t, tiers["0.5"].Weight.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "sample", tiers["0.5"].Description)
}

func TestParsePriceListRejects(t *testing.T) {
	cases := map[string]string{
		"three fields":   "0.5,5.00,gram,sample; 1,9.00,gram",
		"bad weight":     "abc,5.00,gram,sample",
		"negative price": "1,-2,gram,sample",
		"empty unit":     "1,2,,sample",
		"duplicate":      "1,2,gram,a;1,3,gram,b",
		"empty":          " ; ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			tiers, err := ParsePriceList(in)
			require.ErrorIs(t, err, ErrInvalidPriceList)
			assert.Nil(t, tiers)
		})
	}
}

func TestRenameMigratesImageAndOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Rename("Blue Dream", "Blue Dream XL"))

	_, err := s.Get("Blue Dream")
	require.ErrorIs(t, err, ErrNotFound)

	p, err := s.Get("Blue Dream XL")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/CsY7GcA.png", p.Image)

	list := s.List()
	assert.Equal(t, "Blue Dream XL", list[len(list)-1].Name)
	assert.NotContains(t, s.Document().Images, "Blue Dream")
}

func TestRenameConflicts(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.Rename("Blue Dream", "OG Kush"), ErrDuplicateName)
	require.ErrorIs(t, s.Rename("Nope", "Other"), ErrNotFound)

	_, err := s.Get("Blue Dream")
	require.NoError(t, err, "failed rename must leave the product in place")
}

func TestCreate(t *testing.T) {
	s := newTestStore(t)
	tiers, err := ParsePriceList("1,10,gram,one")
	require.NoError(t, err)

	p, err := s.Create(Product{Name: "Gelato", Description: "d", Prices: tiers, Image: "https://example.com/g.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/g.png", p.Image)

	_, err = s.Create(Product{Name: "Gelato", Prices: tiers})
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = s.Create(Product{Name: "Bad", Prices: tiers, Image: "ftp://x"})
	require.ErrorIs(t, err, ErrInvalidImage)
	assert.Equal(t, 5, s.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Get("OG Kush")
	require.NoError(t, err)
	delete(p.Prices, "1")

	_, err = s.Tier("OG Kush", "1")
	require.NoError(t, err)
}

func TestSetImageAndDescription(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.SetImage("OG Kush", "not a url"), ErrInvalidImage)
	require.ErrorIs(t, s.SetImage("Nope", "https://x.io/a.png"), ErrNotFound)
	require.NoError(t, s.SetImage("OG Kush", "https://x.io/a.png"))
	require.NoError(t, s.SetDescription("OG Kush", "new"))

	p, _ := s.Get("OG Kush")
	assert.Equal(t, "https://x.io/a.png", p.Image)
	assert.Equal(t, "new", p.Description)
	require.ErrorIs(t, s.SetDescription("Nope", "x"), ErrNotFound)
}

func TestDocumentJSONKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Rename("OG Kush", "Alpha"))

	b, err := json.MarshalIndent(s.Document(), "", "  ")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(b, &doc))

	names := make([]string, 0, len(doc.Catalog))
	for _, p := range doc.Catalog {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Blue Dream", "Purple Haze", "Northern Lights", "Alpha"}, names)
	assert.Equal(t, "https://i.imgur.com/47uY36h.png", doc.Images["Alpha"])
	assert.True(t, doc.Catalog[0].Prices["3.5"].Price.Equal(decimal.NewFromInt(30)))
}

func TestDocumentAcceptsNumericPrices(t *testing.T) {
	raw := `{"catalog":{"X":{"name":"old","description":"d","type":"t","thc":"1%",
		"prices":{"3.5":{"weight":3.5,"price":30.0,"unit":"grams","description":"e"}}}},
		"images":{"X":"https://a.b/c.png"}}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Len(t, doc.Catalog, 1)
	assert.Equal(t, "X", doc.Catalog[0].Name)
	assert.True(t, doc.Catalog[0].Prices["3.5"].Price.Equal(decimal.NewFromInt(30)))
}

func TestTiersIn(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.Get("Purple Haze")
	assert.Equal(t, []string{"0.5", "1", "3.5", "7"}, TiersIn(p, CategoryPersonal))
	assert.Equal(t, []string{"112", "224", "448"}, TiersIn(p, CategoryWholesale))

	tiers, _ := ParsePriceList("10,1,g,a;2,1,g,b")
	custom := Product{Name: "c", Prices: tiers}
	assert.Equal(t, []string{"2", "10"}, TiersIn(custom, CategoryBulk))
}
