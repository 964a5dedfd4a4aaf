package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCheckoutActive       = errors.New("a checkout is already in progress")
	ErrEmptyShipping        = errors.New("shipping information is empty")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

const (
	StepShipping       flow.Step = "shipping"
	StepPaymentMethod  flow.Step = "payment_method"
	StepConfirmPayment flow.Step = "confirm_payment"
)

// Data is the per-user checkout state. It lives only in the session store.
type Data struct {
	OrderID  string               `json:"order_id"`
	Shipping string               `json:"shipping"`
	Method   orders.PaymentMethod `json:"method,omitempty"`

	// Materialized is set once the order has been written to the order store.
	Materialized bool `json:"materialized"`
}

type CartStore interface {
	Get(user int64) cart.Cart
	Clear(user int64)
}

type OrderStore interface {
	Append(o orders.Order) error
	Exists(id string) bool
	Find(id string) (orders.Order, error)
	SetPaymentMethod(id string, m orders.PaymentMethod) (orders.Order, error)
	ClaimPayment(id string, at time.Time) (orders.Order, error)
}

// Service runs shipping -> payment method -> confirm payment. The order is
// written with status pending when the payment method is chosen, priced
// from the catalog at that moment.
type Service struct {
	carts   CartStore
	orders  OrderStore
	prices  cart.PriceLookup
	machine *flow.Machine[Data]
	now     func() time.Time
}

func New(carts CartStore, ord OrderStore, prices cart.PriceLookup, sessions flow.Store[Data]) *Service {
	s := &Service{carts: carts, orders: ord, prices: prices, now: time.Now}
	s.machine = &flow.Machine[Data]{
		Name:  "checkout",
		Store: sessions,
		Steps: map[flow.Step]flow.Transition[Data]{
			StepShipping:       s.shipping,
			StepPaymentMethod:  s.paymentMethod,
			StepConfirmPayment: s.confirmPayment,
		},
		Now: func() time.Time { return s.now() },
	}
	return s
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Current(ctx context.Context, user int64) (flow.Session[Data], error) {
	return s.machine.Current(ctx, user)
}

// Begin opens a checkout for a non-empty cart. A second checkout while one
// is open is refused; the caller offers resume or cancel instead.
func (s *Service) Begin(ctx context.Context, user int64) (flow.Session[Data], error) {
	if cur, err := s.machine.Current(ctx, user); err == nil {
		return cur, ErrCheckoutActive
	} else if !errors.Is(err, flow.ErrNoSession) {
		return flow.Session[Data]{}, err
	}
	if s.carts.Get(user).Empty() {
		return flow.Session[Data]{}, ErrEmptyCart
	}
	return s.machine.Begin(ctx, user, StepShipping, Data{OrderID: s.nextOrderID(user)})
}

// nextOrderID skips ahead a second at a time while the id is taken.
func (s *Service) nextOrderID(user int64) string {
	at := s.now()
	id := orders.NewOrderID(at, user)
	for s.orders.Exists(id) {
		at = at.Add(time.Second)
		id = orders.NewOrderID(at, user)
	}
	return id
}

func (s *Service) SubmitShipping(ctx context.Context, user int64, text string) (flow.Session[Data], error) {
	return s.machine.Advance(ctx, user, StepShipping, text)
}

// SelectPayment records the method and materializes the order. Choosing
// again after ChangePayment only updates the existing order's method.
func (s *Service) SelectPayment(ctx context.Context, user int64, m orders.PaymentMethod) (orders.Order, error) {
	sess, err := s.machine.Advance(ctx, user, StepPaymentMethod, string(m))
	if err != nil {
		return orders.Order{}, err
	}
	return s.orders.Find(sess.Data.OrderID)
}

// ChangePayment goes back from the confirmation screen to method choice.
func (s *Service) ChangePayment(ctx context.Context, user int64) (flow.Session[Data], error) {
	cur, err := s.machine.Current(ctx, user)
	if err != nil {
		return cur, err
	}
	if cur.Step != StepConfirmPayment {
		return cur, fmt.Errorf("%w: at %s", flow.ErrUnexpectedStep, cur.Step)
	}
	return s.machine.Goto(ctx, user, StepPaymentMethod)
}

// Confirm records the user's payment claim, empties the cart and ends the
// checkout. The order stays pending until an admin moves it on.
func (s *Service) Confirm(ctx context.Context, user int64) (orders.Order, error) {
	sess, err := s.machine.Advance(ctx, user, StepConfirmPayment, "")
	if err != nil {
		return orders.Order{}, err
	}
	return s.orders.Find(sess.Data.OrderID)
}

// Cancel abandons the checkout. An order already materialized stays
// pending in the order store.
func (s *Service) Cancel(ctx context.Context, user int64) error {
	return s.machine.Cancel(ctx, user)
}

func (s *Service) shipping(_ context.Context, _ int64, d *Data, text string) (flow.Step, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyShipping
	}
	d.Shipping = text
	return StepPaymentMethod, nil
}

func (s *Service) paymentMethod(_ context.Context, user int64, d *Data, input string) (flow.Step, error) {
	m := orders.PaymentMethod(input)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, input)
	}
	if d.Materialized {
		if _, err := s.orders.SetPaymentMethod(d.OrderID, m); err != nil {
			return "", err
		}
		d.Method = m
		return StepConfirmPayment, nil
	}

	items := s.carts.Get(user)
	if items.Empty() {
		return "", ErrEmptyCart
	}
	sum := cart.Summarize(items, s.prices)
	if err := sum.Err(); err != nil {
		return "", err
	}
	o := orders.Order{
		ID:              d.OrderID,
		UserID:          user,
		CreatedAt:       orders.NewTimestamp(s.now()),
		Status:          orders.StatusPending,
		Total:           sum.Total,
		Items:           items,
		PaymentMethod:   m,
		ShippingAddress: d.Shipping,
	}
	if err := s.orders.Append(o); err != nil {
		return "", err
	}
	d.Method = m
	d.Materialized = true
	return StepConfirmPayment, nil
}

func (s *Service) confirmPayment(_ context.Context, user int64, d *Data, _ string) (flow.Step, error) {
	if _, err := s.orders.ClaimPayment(d.OrderID, s.now()); err != nil {
		return "", err
	}
	s.carts.Clear(user)
	return flow.Done, nil
}
