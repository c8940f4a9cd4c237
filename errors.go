package match

import "errors"

var (
	ErrInvalidQuantity = errors.New("match: quantity must be a positive lot count")
	ErrInvalidPrice    = errors.New("match: price must be a positive tick count")
	ErrMissingPrice    = errors.New("match: order type requires a limit price")
	ErrInvalidSide     = errors.New("match: side must be buy or sell")
	ErrInvalidType     = errors.New("match: unknown order type")
	ErrInvalidSymbol   = errors.New("match: symbol must not be empty")
	ErrOrderNotFound   = errors.New("match: order not found")
	ErrSequenceGap     = errors.New("match: gap detected in event stream sequence")
	ErrShutdown        = errors.New("match: engine is shutting down")
)
