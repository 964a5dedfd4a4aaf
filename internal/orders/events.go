package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventPaymentClaimed     = "PaymentClaimed"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventShippingUpdated    = "ShippingUpdated"
	EventOrderDeleted       = "OrderDeleted"
	EventOrdersPurged       = "OrdersPurged"
	EventProductChanged     = "ProductChanged"

	// inbound chat events and their replies
	EventChatStarted   = "ChatStarted"
	EventButtonPressed = "ButtonPressed"
	EventTextReceived  = "TextReceived"
	EventReplyReady    = "ReplyReady"
	EventNotification  = "Notification"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the order id or user id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Total         decimal.Decimal `json:"total"`
	Units         int             `json:"units"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type PaymentClaimedPayload struct {
	OrderID string          `json:"order_id"`
	UserID  int64           `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type ShippingUpdatedPayload struct {
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
}

type OrderDeletedPayload struct {
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
}

type OrdersPurgedPayload struct {
	Count int `json:"count"`
}

type ProductChangedPayload struct {
	Product  string `json:"product"`
	Previous string `json:"previous,omitempty"` // set on rename
	Change   string `json:"change"`             // created | renamed | description | image | prices
}
