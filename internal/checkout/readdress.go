package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
)

const StepNewAddress flow.Step = "new_address"

type AddressData struct {
	OrderID string `json:"order_id"`
}

type AddressOrders interface {
	Find(id string) (orders.Order, error)
	ByUser(user int64) []orders.Order
	UpdateShippingAddress(id, address string) (orders.Order, error)
}

// Readdress lets a user correct the shipping address of one of their own
// orders while it is pending or processing.
type Readdress struct {
	orders  AddressOrders
	machine *flow.Machine[AddressData]
}

func NewReaddress(ord AddressOrders, sessions flow.Store[AddressData]) *Readdress {
	r := &Readdress{orders: ord}
	r.machine = &flow.Machine[AddressData]{
		Name:  "readdress",
		Store: sessions,
		Steps: map[flow.Step]flow.Transition[AddressData]{
			StepNewAddress: r.newAddress,
		},
	}
	return r
}

// Editable lists the user's orders whose address can still change.
func (r *Readdress) Editable(user int64) []orders.Order {
	var out []orders.Order
	for _, o := range r.orders.ByUser(user) {
		if o.Status.Editable() {
			out = append(out, o)
		}
	}
	return out
}

func (r *Readdress) Begin(ctx context.Context, user int64, orderID string) (orders.Order, error) {
	o, err := r.orders.Find(orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if o.UserID != user {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, orderID)
	}
	if !o.Status.Editable() {
		return o, fmt.Errorf("%w: %s is %s", orders.ErrNotEditable, o.ID, o.Status)
	}
	if _, err := r.machine.Begin(ctx, user, StepNewAddress, AddressData{OrderID: orderID}); err != nil {
		return o, err
	}
	return o, nil
}

func (r *Readdress) Active(ctx context.Context, user int64) bool {
	return r.machine.Active(ctx, user)
}

func (r *Readdress) Submit(ctx context.Context, user int64, text string) (orders.Order, error) {
	sess, err := r.machine.Advance(ctx, user, StepNewAddress, text)
	if err != nil {
		return orders.Order{}, err
	}
	return r.orders.Find(sess.Data.OrderID)
}

func (r *Readdress) Cancel(ctx context.Context, user int64) error {
	return r.machine.Cancel(ctx, user)
}

func (r *Readdress) newAddress(_ context.Context, _ int64, d *AddressData, text string) (flow.Step, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyShipping
	}
	if _, err := r.orders.UpdateShippingAddress(d.OrderID, text); err != nil {
		return "", err
	}
	return flow.Done, nil
}
