package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrAlreadyExists = errors.New("order already exists")
	ErrNotEditable   = errors.New("order can no longer be edited")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOrder  = errors.New("invalid order")
)

// TimestampLayout is how order times are written to disk.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a UTC time with second precision.
type Timestamp struct{ time.Time }

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Second)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano} {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = Timestamp{v.UTC()}
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

type Order struct {
	ID              string          `json:"order_id"`
	UserID          int64           `json:"user_id"`
	CreatedAt       Timestamp       `json:"date"`
	Status          Status          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	Items           cart.Cart       `json:"items"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ShippingAddress string          `json:"shipping_info"`

	// Set when the user reports the payment as sent. Nothing verifies it.
	PaymentClaimedAt *Timestamp `json:"payment_claimed_at,omitempty"`
}

// NewOrderID formats ORD-<YYYYMMDDHHMMSS>-<userid>.
func NewOrderID(at time.Time, user int64) string {
	return fmt.Sprintf("ORD-%s-%d", at.UTC().Format("20060102150405"), user)
}

func (o Order) clone() Order {
	o.Items = o.Items.Clone()
	if o.PaymentClaimedAt != nil {
		ts := *o.PaymentClaimedAt
		o.PaymentClaimedAt = &ts
	}
	return o
}

func (o Order) validate() error {
	switch {
	case o.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidOrder)
	case !o.Status.Valid():
		return fmt.Errorf("%w: status %q", ErrInvalidOrder, o.Status)
	case o.Items.Empty():
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	return nil
}
