package protocol

// NewOrderRequest is the wire payload for submitting a new order.
// Price and Quantity are integer tick and lot counts; Price must be omitted
// (or zero) for market orders.
type NewOrderRequest struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Price     uint64 `json:"price,omitempty"`
	Quantity  uint64 `json:"quantity"`
	Submitter string `json:"submitter,omitempty"`
}

// OrderAccepted acknowledges an admitted order. Sequence is the process-wide
// submission sequence number assigned at admission.
type OrderAccepted struct {
	OrderID  string `json:"order_id"`
	Sequence uint64 `json:"sequence"`
}

// OrderRejected reports an order refused at admission. Rejected orders never
// touch a book and produce no feed events.
type OrderRejected struct {
	Reason RejectReason `json:"reason"`
}

// CancelOrderRequest asks for removal of a resting order.
type CancelOrderRequest struct {
	OrderID string `json:"order_id"`
}

// CancelAck confirms a cancel; the Cancelled feed event carries the removed
// quantity.
type CancelAck struct {
	OrderID string `json:"order_id"`
}

// AmendOrderRequest modifies a resting order's price and/or quantity.
// Reducing quantity at the same price keeps time priority; anything else
// forfeits it.
type AmendOrderRequest struct {
	OrderID     string `json:"order_id"`
	NewPrice    uint64 `json:"new_price"`
	NewQuantity uint64 `json:"new_quantity"`
}
