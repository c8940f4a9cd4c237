package protocol

import "fmt"

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide converts a wire-level side string into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("protocol: unknown side %q", s)
	}
}

// OrderType represents the type of order.
type OrderType string

const (
	OrderTypeLimit    OrderType = "limit"
	OrderTypeMarket   OrderType = "market"
	OrderTypeIOC      OrderType = "ioc"       // Immediate Or Cancel
	OrderTypeFOK      OrderType = "fok"       // Fill Or Kill
	OrderTypePostOnly OrderType = "post_only" // Maker only
)

// ParseOrderType converts a wire-level type string into an OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeLimit, OrderTypeMarket, OrderTypeIOC, OrderTypeFOK, OrderTypePostOnly:
		return OrderType(s), nil
	default:
		return "", fmt.Errorf("protocol: unknown order type %q", s)
	}
}

// EventType identifies an execution feed event.
// Fill and AcceptedResting affect book state; CancelledRemainder reports
// quantity that was discarded without ever resting.
type EventType string

const (
	EventTypeFill               EventType = "fill"
	EventTypeAcceptedResting    EventType = "accepted_resting"
	EventTypeCancelledRemainder EventType = "cancelled_remainder"
	EventTypeCancelled          EventType = "cancelled"
	EventTypeAmended            EventType = "amended"
)

// RejectReason explains why an order was refused at admission.
type RejectReason string

const (
	RejectReasonNone            RejectReason = ""
	RejectReasonInvalidQuantity RejectReason = "invalid_quantity"
	RejectReasonInvalidPrice    RejectReason = "invalid_price"
	RejectReasonMissingPrice    RejectReason = "missing_price"
	RejectReasonInvalidSide     RejectReason = "invalid_side"
	RejectReasonInvalidType     RejectReason = "invalid_order_type"
	RejectReasonInvalidSymbol   RejectReason = "invalid_symbol"
	RejectReasonOrderNotFound   RejectReason = "order_not_found"
	RejectReasonShutdown        RejectReason = "shutting_down"
	RejectReasonInternal        RejectReason = "internal_error"
)
