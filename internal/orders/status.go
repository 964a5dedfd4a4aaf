package orders

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses is the canonical display order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var editable = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Editable reports whether the shipping address may still be corrected.
func (s Status) Editable() bool { return editable[s] }

// CanTransition: admins may move an order between any two known statuses.
func CanTransition(from, to Status) bool {
	return from.Valid() && to.Valid()
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PaymentBitcoin PaymentMethod = "bitcoin"
	PaymentMonero  PaymentMethod = "monero"
)

var PaymentMethods = []PaymentMethod{PaymentBitcoin, PaymentMonero}

func (m PaymentMethod) Valid() bool {
	return m == PaymentBitcoin || m == PaymentMonero
}
