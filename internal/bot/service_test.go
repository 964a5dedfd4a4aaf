package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/admin"
	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/checkout"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/logx"
	"github.com/ariefcatur/go-storefront-bot/internal/notify"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	customer  int64 = 42
	adminID   int64 = 1
	adminName       = "CrackerJackson"
)

type recorder struct {
	mu     sync.Mutex
	saved  []persist.Document
	notes  []notify.Message
	events []string
	panic  bool
}

func (r *recorder) Save(_ context.Context, docs ...persist.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panic {
		panic("disk on fire")
	}
	r.saved = append(r.saved, docs...)
	return nil
}

func (r *recorder) Notify(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, m)
	return nil
}

func (r *recorder) Emit(_ context.Context, _, eventType, _ string, _ []byte, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

type harness struct {
	svc     *Service
	catalog *catalog.Store
	carts   *cart.Store
	orders  *orders.Store
	rec     *recorder
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logx.Discard()
	h := &harness{
		catalog: catalog.NewStore(),
		carts:   cart.NewStore(100),
		orders:  orders.NewStore(),
		rec:     &recorder{},
		now:     time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC),
	}
	h.catalog.Restore(catalog.Defaults())
	clock := func() time.Time { return h.now }

	co := checkout.New(h.carts, h.orders, h.catalog, flow.NewMemoryStore[checkout.Data](0))
	co.SetClock(clock)
	h.svc = New(Deps{
		Catalog:   h.catalog,
		Carts:     h.carts,
		Orders:    h.orders,
		Checkout:  co,
		Readdress: checkout.NewReaddress(h.orders, flow.NewMemoryStore[checkout.AddressData](0)),
		Wizard:    admin.NewWizard(h.catalog, flow.NewMemoryStore[admin.Draft](0)),
		Editor:    admin.NewEditor(h.catalog, flow.NewMemoryStore[admin.Edit](0)),
		Gate:      admin.NewGate(adminName, log),
		Saver:     h.rec,
		Notifier:  h.rec,
		Events:    h.rec,
		PageSize:  5,
		Log:       log,
	})
	h.svc.SetClock(clock)
	return h
}

func (h *harness) press(user int64, c Command) Reply {
	return h.svc.Handle(context.Background(), Event{Kind: EventButton, UserID: user, Username: name(user), Token: c.Token()})
}

func (h *harness) say(user int64, text string) Reply {
	return h.svc.Handle(context.Background(), Event{Kind: EventText, UserID: user, Username: name(user), Text: text})
}

func name(user int64) string {
	if user == adminID {
		return adminName
	}
	return fmt.Sprintf("user%d", user)
}

func (h *harness) placeOrder(t *testing.T, user int64, at time.Time, st orders.Status) orders.Order {
	t.Helper()
	o := orders.Order{
		ID:              orders.NewOrderID(at, user),
		UserID:          user,
		CreatedAt:       orders.NewTimestamp(at),
		Status:          st,
		Total:           decimal.RequireFromString("30.00"),
		Items:           cart.Cart{{Product: "Blue Dream", Tier: "3.5"}: 1},
		PaymentMethod:   orders.PaymentBitcoin,
		ShippingAddress: "1 Main St",
	}
	require.NoError(t, h.orders.Append(o))
	return o
}

func hasToken(r Reply, tok string) bool {
	for _, row := range r.Buttons {
		for _, b := range row {
			if b.Token == tok {
				return true
			}
		}
	}
	return false
}

func TestShopToConfirmedOrder(t *testing.T) {
	h := newHarness(t)

	r := h.svc.Handle(context.Background(), Event{Kind: EventStart, UserID: customer, Username: "user42"})
	assert.True(t, hasToken(r, "view_products"))

	r = h.press(customer, kind(KindViewProducts))
	assert.Contains(t, r.Text, "Blue Dream")
	assert.Equal(t, "https://i.imgur.com/CsY7GcA.png", r.Image)
	assert.True(t, hasToken(r, "view_personal_Blue Dream"))

	r = h.press(customer, Command{Kind: KindViewCategory, Product: "Blue Dream", Category: catalog.CategoryPersonal})
	assert.True(t, hasToken(r, "add_to_cart_Blue Dream_3.5"))

	h.press(customer, Command{Kind: KindAddToCart, Product: "Blue Dream", Tier: "3.5"})
	h.press(customer, Command{Kind: KindAddToCart, Product: "Blue Dream", Tier: "3.5"})
	r = h.press(customer, Command{Kind: KindAddToCart, Product: "Blue Dream", Tier: "7"})
	assert.NotEmpty(t, r.Alert)

	r = h.press(customer, kind(KindViewCart))
	assert.Contains(t, r.Text, "$115.00")

	r = h.press(customer, kind(KindCheckout))
	assert.Contains(t, r.Text, "Shipping Information")

	r = h.say(customer, "Jane Doe\n1 Main St\nAnytown, CA 12345")
	assert.Contains(t, r.Text, "Jane Doe")
	assert.True(t, hasToken(r, "payment_xmr"))

	r = h.press(customer, Command{Kind: KindPayment, Method: orders.PaymentMonero})
	id := orders.NewOrderID(h.now, customer)
	assert.Contains(t, r.Text, id)
	assert.Contains(t, r.Text, paymentAddress[orders.PaymentMonero])

	placed, err := h.orders.Find(id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, placed.Status)
	assert.Nil(t, placed.PaymentClaimedAt)

	r = h.press(customer, kind(KindConfirmPayment))
	assert.Contains(t, r.Text, "Order Confirmed")

	o, err := h.orders.Find(id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "115.00", o.Total.StringFixed(2))
	assert.Equal(t, orders.PaymentMonero, o.PaymentMethod)
	assert.NotNil(t, o.PaymentClaimedAt)
	assert.True(t, h.carts.Get(customer).Empty())

	assert.Contains(t, h.rec.saved, persist.DocOrders)
	assert.Contains(t, h.rec.saved, persist.DocCarts)
	assert.Equal(t, []string{orders.EventOrderPlaced, orders.EventPaymentClaimed}, h.rec.events)
}

func TestStartEmptiesCart(t *testing.T) {
	h := newHarness(t)
	_, err := h.carts.AddItem(customer, "OG Kush", "1", 3)
	require.NoError(t, err)

	h.svc.Handle(context.Background(), Event{Kind: EventStart, UserID: customer})
	assert.True(t, h.carts.Get(customer).Empty())
}

func TestStartShowsAdminPanelToAdmin(t *testing.T) {
	h := newHarness(t)
	r := h.svc.Handle(context.Background(), Event{Kind: EventStart, UserID: adminID, Username: adminName})
	assert.Contains(t, r.Text, "Admin Control Panel")
}

func TestCheckoutEmptyCart(t *testing.T) {
	h := newHarness(t)
	r := h.press(customer, kind(KindCheckout))
	assert.Contains(t, r.Text, "cart is empty")
}

func TestBackToCartAbandonsCheckout(t *testing.T) {
	h := newHarness(t)
	_, err := h.carts.AddItem(customer, "OG Kush", "1", 1)
	require.NoError(t, err)

	h.press(customer, kind(KindCheckout))
	h.press(customer, kind(KindViewCart))

	r := h.say(customer, "1 Main St")
	assert.Contains(t, r.Text, "/start")

	r = h.press(customer, kind(KindCheckout))
	assert.Contains(t, r.Text, "Shipping Information")
}

func TestSecondCheckoutOffersResume(t *testing.T) {
	h := newHarness(t)
	_, err := h.carts.AddItem(customer, "OG Kush", "1", 1)
	require.NoError(t, err)

	h.press(customer, kind(KindCheckout))
	h.say(customer, "1 Main St")

	r := h.press(customer, kind(KindCheckout))
	assert.True(t, hasToken(r, "checkout_resume"))
	assert.True(t, hasToken(r, "checkout_cancel"))

	r = h.press(customer, kind(KindCheckoutResume))
	assert.True(t, hasToken(r, "payment_btc"))

	h.press(customer, kind(KindCheckoutCancel))
	r = h.press(customer, kind(KindCheckout))
	assert.Contains(t, r.Text, "Shipping Information")
}

func TestTextDuringPaymentStepKeepsCheckout(t *testing.T) {
	h := newHarness(t)
	_, err := h.carts.AddItem(customer, "OG Kush", "1", 1)
	require.NoError(t, err)
	h.press(customer, kind(KindCheckout))
	h.say(customer, "1 Main St")

	r := h.say(customer, "hello?")
	assert.NotEmpty(t, r.Alert)
	assert.True(t, hasToken(r, "payment_btc"))
}

func TestChangePaymentUpdatesOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.carts.AddItem(customer, "OG Kush", "1", 1)
	require.NoError(t, err)
	h.press(customer, kind(KindCheckout))
	h.say(customer, "1 Main St")
	h.press(customer, Command{Kind: KindPayment, Method: orders.PaymentBitcoin})

	r := h.press(customer, kind(KindChangePayment))
	assert.True(t, hasToken(r, "payment_xmr"))
	h.press(customer, Command{Kind: KindPayment, Method: orders.PaymentMonero})

	all := h.orders.ByUser(customer)
	require.Len(t, all, 1)
	assert.Equal(t, orders.PaymentMonero, all[0].PaymentMethod)
	assert.Equal(t, []string{orders.EventOrderPlaced}, h.rec.events)
}

func TestAdminCommandsRefusedForCustomers(t *testing.T) {
	h := newHarness(t)
	o := h.placeOrder(t, customer, h.now, orders.StatusPending)

	for _, c := range []Command{
		{Kind: KindAdminPanel},
		{Kind: KindAdminSetStatus, OrderID: o.ID, Status: orders.StatusShipped},
		{Kind: KindAdminDeleteOrder, OrderID: o.ID},
		{Kind: KindAdminDeleteAll},
		{Kind: KindAdminCreateProduct},
	} {
		r := h.press(customer, c)
		assert.Equal(t, "Access denied.", r.Alert, c.Token())
	}

	got, err := h.orders.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.Empty(t, h.rec.saved)
	assert.Empty(t, h.rec.notes)
}

func TestAdminSetStatusNotifiesCustomer(t *testing.T) {
	h := newHarness(t)
	o := h.placeOrder(t, customer, h.now, orders.StatusPending)

	r := h.press(adminID, Command{Kind: KindAdminSetStatus, OrderID: o.ID, Status: orders.StatusShipped})
	assert.Contains(t, r.Alert, "shipped")

	got, err := h.orders.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, got.Status)

	require.Len(t, h.rec.notes, 1)
	assert.Equal(t, customer, h.rec.notes[0].UserID)
	assert.Contains(t, h.rec.notes[0].Text, o.ID)
	assert.Contains(t, h.rec.events, orders.EventOrderStatusChanged)
}

func TestAdminDeleteAll(t *testing.T) {
	h := newHarness(t)
	h.placeOrder(t, customer, h.now, orders.StatusPending)
	h.placeOrder(t, 7, h.now, orders.StatusShipped)

	r := h.press(adminID, kind(KindAdminDeleteAllConfirm))
	assert.Contains(t, r.Text, "ALL 2 orders")

	r = h.press(adminID, kind(KindAdminDeleteAll))
	assert.Equal(t, "2 orders deleted.", r.Alert)
	assert.Empty(t, h.orders.All())
}

func TestAdminFilterByStatus(t *testing.T) {
	h := newHarness(t)
	pending := h.placeOrder(t, customer, h.now, orders.StatusPending)
	shipped := h.placeOrder(t, 7, h.now, orders.StatusShipped)

	r := h.press(adminID, Command{Kind: KindAdminFilter, Status: orders.StatusShipped})
	assert.Contains(t, r.Text, shipped.ID)
	assert.NotContains(t, r.Text, pending.ID)

	r = h.press(adminID, Command{Kind: KindAdminFilter})
	assert.Contains(t, r.Text, pending.ID)
}

func TestAdminViewOrdersDropsFilter(t *testing.T) {
	h := newHarness(t)
	pending := h.placeOrder(t, customer, h.now, orders.StatusPending)
	shipped := h.placeOrder(t, 7, h.now, orders.StatusShipped)

	r := h.press(adminID, Command{Kind: KindAdminFilter, Status: orders.StatusShipped})
	assert.Contains(t, r.Text, "Filter: Shipped")

	// status round-trips keep the filter
	r = h.press(adminID, Command{Kind: KindAdminSetStatus, OrderID: shipped.ID, Status: orders.StatusShipped})
	assert.Contains(t, r.Text, "Filter: Shipped")

	h.press(adminID, kind(KindAdminPanel))
	r = h.press(adminID, kind(KindAdminViewOrders))
	assert.NotContains(t, r.Text, "Filter:")
	assert.Contains(t, r.Text, pending.ID)
	assert.Contains(t, r.Text, shipped.ID)

	h.press(adminID, Command{Kind: KindAdminFilter, Status: orders.StatusShipped})
	r = h.press(adminID, kind(KindAdminViewOrders))
	assert.Contains(t, r.Text, pending.ID)
}

func TestUserOrdersPaging(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 7; i++ {
		h.placeOrder(t, customer, h.now.Add(time.Duration(i)*time.Minute), orders.StatusPending)
	}

	r := h.press(customer, kind(KindViewOrders))
	assert.Contains(t, r.Text, "Page 1 of 2")
	assert.True(t, hasToken(r, "user_next_page"))
	assert.False(t, hasToken(r, "user_prev_page"))

	r = h.press(customer, kind(KindUserNextPage))
	assert.Contains(t, r.Text, "Page 2 of 2")
	r = h.press(customer, kind(KindUserNextPage))
	assert.Contains(t, r.Text, "Page 2 of 2")
}

func TestReaddress(t *testing.T) {
	h := newHarness(t)
	open := h.placeOrder(t, customer, h.now, orders.StatusProcessing)
	done := h.placeOrder(t, customer, h.now.Add(time.Minute), orders.StatusShipped)

	r := h.press(customer, kind(KindUpdateShipping))
	assert.True(t, hasToken(r, "update_shipping_"+open.ID))
	assert.False(t, hasToken(r, "update_shipping_"+done.ID))

	h.press(customer, Command{Kind: KindUpdateShippingOrder, OrderID: open.ID})
	r = h.say(customer, "2 Side St")
	assert.Contains(t, r.Text, "2 Side St")

	got, err := h.orders.Find(open.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", got.ShippingAddress)

	r = h.press(customer, Command{Kind: KindUpdateShippingOrder, OrderID: done.ID})
	assert.Contains(t, r.Text, "can no longer be changed")
}

func TestReaddressOthersOrderIsNotFound(t *testing.T) {
	h := newHarness(t)
	o := h.placeOrder(t, 7, h.now, orders.StatusPending)

	r := h.press(customer, Command{Kind: KindUpdateShippingOrder, OrderID: o.ID})
	assert.Equal(t, "Order not found.", r.Text)
}

func TestCreateProductWizard(t *testing.T) {
	h := newHarness(t)

	r := h.press(adminID, kind(KindAdminCreateProduct))
	assert.Contains(t, r.Text, "NAME")
	h.say(adminID, "Gelato")
	h.say(adminID, "Dessert strain")
	r = h.say(adminID, "not a url")
	assert.Contains(t, r.Text, "valid image URL")
	r = h.say(adminID, "https://example.com/gelato.png")
	assert.Contains(t, r.Text, "PRICING")

	r = h.say(adminID, "1,10")
	assert.Contains(t, r.Text, "Invalid pricing format")
	_, err := h.catalog.Get("Gelato")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	r = h.say(adminID, "1,10,gram,Single; 3.5,30,grams,Eighth")
	assert.Contains(t, r.Text, "created successfully")

	p, err := h.catalog.Get("Gelato")
	require.NoError(t, err)
	assert.Equal(t, admin.CustomType, p.Type)
	assert.Equal(t, "https://example.com/gelato.png", p.Image)
	assert.Len(t, p.Prices, 2)
	assert.Contains(t, h.rec.saved, persist.DocCatalog)
}

func TestRenameProduct(t *testing.T) {
	h := newHarness(t)
	h.press(adminID, Command{Kind: KindAdminEditName, Product: "OG Kush"})

	r := h.say(adminID, "Blue Dream")
	assert.Contains(t, r.Text, "already exists")

	r = h.say(adminID, "OG Kush Reserve")
	assert.Contains(t, r.Text, "New name: OG Kush Reserve")

	p, err := h.catalog.Get("OG Kush Reserve")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/47uY36h.png", p.Image)
}

func TestRenameKeepsOrderSnapshots(t *testing.T) {
	h := newHarness(t)
	o := h.placeOrder(t, customer, h.now, orders.StatusPending)

	h.press(adminID, Command{Kind: KindAdminEditName, Product: "Blue Dream"})
	r := h.say(adminID, "Blue Dream Reserve")
	assert.Contains(t, r.Text, "New name: Blue Dream Reserve")

	got, err := h.orders.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[cart.Key{Product: "Blue Dream", Tier: "3.5"}])

	r = h.press(customer, kind(KindViewOrders))
	assert.Contains(t, r.Text, "• Blue Dream 3.5 × 1")
	assert.NotContains(t, r.Text, "Blue Dream Reserve")
}

func TestEditPrices(t *testing.T) {
	h := newHarness(t)
	r := h.press(adminID, Command{Kind: KindAdminEditPrices, Product: "Purple Haze"})
	assert.Contains(t, r.Text, "3.5,30.00,grams")

	h.say(adminID, "5,40,grams,Five")
	tier, err := h.catalog.Tier("Purple Haze", "5")
	require.NoError(t, err)
	assert.Equal(t, "40", tier.Price.String())
	_, err = h.catalog.Tier("Purple Haze", "3.5")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCustomerTextNeverReachesAdminFlows(t *testing.T) {
	h := newHarness(t)
	r := h.say(customer, "Gelato")
	assert.Contains(t, r.Text, "/start")
	assert.Equal(t, 4, h.catalog.Len())
}

func TestAdminStats(t *testing.T) {
	h := newHarness(t)
	h.placeOrder(t, customer, h.now, orders.StatusPending)
	h.placeOrder(t, customer, h.now.Add(time.Minute), orders.StatusPending)
	h.placeOrder(t, 7, h.now, orders.StatusShipped)

	r := h.press(adminID, kind(KindAdminStats))
	assert.Contains(t, r.Text, "Total Orders: 3")
	assert.Contains(t, r.Text, "Total Revenue: $90.00")
	assert.Contains(t, r.Text, "Pending: 2 (66.7%)")
	assert.Contains(t, r.Text, "Shipped: 1 (33.3%)")
	assert.Contains(t, r.Text, "Blue Dream: 10.5 grams sold (3 units)")
}

func TestAdminStatsUnits(t *testing.T) {
	h := newHarness(t)
	_, err := h.catalog.Create(catalog.Product{
		Name: "Gummies",
		Prices: map[string]catalog.PriceTier{
			"10": {Weight: decimal.NewFromInt(10), Price: decimal.NewFromInt(25), Unit: "pieces"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, h.orders.Append(orders.Order{
		ID:            orders.NewOrderID(h.now, 7),
		UserID:        7,
		CreatedAt:     orders.NewTimestamp(h.now),
		Status:        orders.StatusPending,
		Total:         decimal.RequireFromString("50.00"),
		Items:         cart.Cart{{Product: "Gummies", Tier: "10"}: 2, {Product: "Gone", Tier: "5"}: 1},
		PaymentMethod: orders.PaymentMonero,
	}))

	r := h.press(adminID, kind(KindAdminStats))
	assert.Contains(t, r.Text, "Gummies: 20 pieces sold (2 units)")
	assert.Contains(t, r.Text, "Gone: 5 sold (1 units)")
}

func TestUnknownTokenAndStaleStep(t *testing.T) {
	h := newHarness(t)

	r := h.press(customer, Command{})
	assert.Equal(t, "This button is no longer valid.", r.Alert)

	r = h.press(customer, kind(KindConfirmPayment))
	assert.Contains(t, r.Text, "expired")
}

func TestPanicIsContainedAndUnlocks(t *testing.T) {
	h := newHarness(t)
	h.rec.panic = true
	r := h.press(customer, Command{Kind: KindAddToCart, Product: "OG Kush", Tier: "1"})
	assert.Equal(t, msgInternal, r.Text)

	h.rec.panic = false
	done := make(chan Reply, 1)
	go func() { done <- h.press(customer, kind(KindViewCart)) }()
	select {
	case r = <-done:
		assert.Contains(t, r.Text, "OG Kush")
	case <-time.After(time.Second):
		t.Fatal("user lock was not released")
	}
}

func TestConcurrentUsers(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for u := int64(100); u < 120; u++ {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				h.press(u, Command{Kind: KindAddToCart, Product: "Blue Dream", Tier: "1"})
			}
		}()
	}
	wg.Wait()
	for u := int64(100); u < 120; u++ {
		assert.Equal(t, 5, h.carts.Get(u).Units())
	}
}
