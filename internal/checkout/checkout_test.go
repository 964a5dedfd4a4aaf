package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user int64 = 42

type fixture struct {
	catalog *catalog.Store
	carts   *cart.Store
	orders  *orders.Store
	svc     *Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: catalog.NewStore(),
		carts:   cart.NewStore(0),
		orders:  orders.NewStore(),
		now:     time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC),
	}
	f.catalog.Restore(catalog.Defaults())
	f.svc = New(f.carts, f.orders, f.catalog, flow.NewMemoryStore[Data](0))
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	_, err := f.carts.AddItem(user, "Blue Dream", "3.5", 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(user, "Blue Dream", "7", 1)
	require.NoError(t, err)
}

func TestCheckoutEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	sess, err := f.svc.Begin(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, StepShipping, sess.Step)
	assert.Equal(t, "ORD-20250504103000-42", sess.Data.OrderID)

	sess, err = f.svc.SubmitShipping(ctx, user, "  Jane Doe\n1 Main St ")
	require.NoError(t, err)
	assert.Equal(t, StepPaymentMethod, sess.Step)

	o, err := f.svc.SelectPayment(ctx, user, orders.PaymentBitcoin)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "115.00", o.Total.StringFixed(2))
	assert.Equal(t, "  Jane Doe\n1 Main St ", o.ShippingAddress)
	assert.Nil(t, o.PaymentClaimedAt)

	o, err = f.svc.Confirm(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "115.00", o.Total.StringFixed(2))
	require.NotNil(t, o.PaymentClaimedAt)

	assert.True(t, f.carts.Get(user).Empty())
	_, err = f.svc.Current(ctx, user)
	require.ErrorIs(t, err, flow.ErrNoSession)
}

func TestOrderTotalIsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	_, _ = f.svc.Begin(ctx, user)
	_, _ = f.svc.SubmitShipping(ctx, user, "addr")
	o, err := f.svc.SelectPayment(ctx, user, orders.PaymentMonero)
	require.NoError(t, err)

	tiers, err := catalog.ParsePriceList("3.5,99.00,grams,pricier; 7,199,grams,pricier")
	require.NoError(t, err)
	require.NoError(t, f.catalog.SetPrices("Blue Dream", tiers))
	require.NoError(t, f.catalog.Rename("Blue Dream", "Blue Dream Reserve"))

	got, err := f.orders.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, "115.00", got.Total.StringFixed(2))
	assert.Contains(t, got.Items, cart.Key{Product: "Blue Dream", Tier: "3.5"})
}

func TestBeginRequiresItems(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Begin(context.Background(), user)
	require.ErrorIs(t, err, ErrEmptyCart)
	_, err = f.svc.Current(context.Background(), user)
	require.ErrorIs(t, err, flow.ErrNoSession)
}

func TestBeginWhileActiveIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	first, err := f.svc.Begin(ctx, user)
	require.NoError(t, err)
	_, _ = f.svc.SubmitShipping(ctx, user, "addr")

	f.now = f.now.Add(time.Minute)
	cur, err := f.svc.Begin(ctx, user)
	require.ErrorIs(t, err, ErrCheckoutActive)
	assert.Equal(t, first.Data.OrderID, cur.Data.OrderID)
	assert.Equal(t, StepPaymentMethod, cur.Step)
}

func TestChangePaymentUpdatesExistingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	_, _ = f.svc.Begin(ctx, user)
	_, _ = f.svc.SubmitShipping(ctx, user, "addr")
	_, err := f.svc.SelectPayment(ctx, user, orders.PaymentBitcoin)
	require.NoError(t, err)

	sess, err := f.svc.ChangePayment(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, StepPaymentMethod, sess.Step)

	o, err := f.svc.SelectPayment(ctx, user, orders.PaymentMonero)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentMonero, o.PaymentMethod)
	assert.Len(t, f.orders.All(), 1)
}

func TestStepsMustComeInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, _ = f.svc.Begin(ctx, user)

	_, err := f.svc.SelectPayment(ctx, user, orders.PaymentBitcoin)
	require.ErrorIs(t, err, flow.ErrUnexpectedStep)
	_, err = f.svc.Confirm(ctx, user)
	require.ErrorIs(t, err, flow.ErrUnexpectedStep)
	_, err = f.svc.SubmitShipping(ctx, user, "   ")
	require.ErrorIs(t, err, ErrEmptyShipping)
	_, err = f.svc.ChangePayment(ctx, user)
	require.ErrorIs(t, err, flow.ErrUnexpectedStep)
	assert.Empty(t, f.orders.All())
}

func TestDanglingItemsBlockMaterialization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, _ = f.svc.Begin(ctx, user)
	_, _ = f.svc.SubmitShipping(ctx, user, "addr")

	require.NoError(t, f.catalog.Rename("Blue Dream", "Renamed"))
	_, err := f.svc.SelectPayment(ctx, user, orders.PaymentBitcoin)
	require.ErrorIs(t, err, cart.ErrDanglingReference)
	assert.Empty(t, f.orders.All())

	sess, err := f.svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, StepPaymentMethod, sess.Step)
}

func TestCancelKeepsMaterializedOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, _ = f.svc.Begin(ctx, user)
	_, _ = f.svc.SubmitShipping(ctx, user, "addr")
	o, _ := f.svc.SelectPayment(ctx, user, orders.PaymentBitcoin)

	require.NoError(t, f.svc.Cancel(ctx, user))
	got, err := f.orders.Find(o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.False(t, f.carts.Get(user).Empty())
}

func TestOrderIDSkipsTakenSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	require.NoError(t, f.orders.Append(orders.Order{
		ID:     orders.NewOrderID(f.now, user),
		UserID: user,
		Status: orders.StatusDelivered,
		Total:  decimal.NewFromInt(1),
		Items:  cart.Cart{{Product: "X", Tier: "1"}: 1},
	}))

	sess, err := f.svc.Begin(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250504103001-42", sess.Data.OrderID)
}

func TestReaddress(t *testing.T) {
	ord := orders.NewStore()
	mk := func(id string, owner int64, st orders.Status) {
		require.NoError(t, ord.Append(orders.Order{
			ID: id, UserID: owner, Status: st, ShippingAddress: "old",
			Items: cart.Cart{{Product: "X", Tier: "1"}: 1},
		}))
	}
	mk("A", user, orders.StatusProcessing)
	mk("B", user, orders.StatusShipped)
	mk("C", 7, orders.StatusPending)

	r := NewReaddress(ord, flow.NewMemoryStore[AddressData](0))
	ctx := context.Background()

	editable := r.Editable(user)
	require.Len(t, editable, 1)
	assert.Equal(t, "A", editable[0].ID)

	_, err := r.Begin(ctx, user, "B")
	require.ErrorIs(t, err, orders.ErrNotEditable)
	_, err = r.Begin(ctx, user, "C")
	require.ErrorIs(t, err, orders.ErrNotFound)
	assert.False(t, r.Active(ctx, user))

	_, err = r.Begin(ctx, user, "A")
	require.NoError(t, err)
	assert.True(t, r.Active(ctx, user))

	o, err := r.Submit(ctx, user, "new street 5")
	require.NoError(t, err)
	assert.Equal(t, "new street 5", o.ShippingAddress)
	assert.False(t, r.Active(ctx, user))
}
