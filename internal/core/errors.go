package core

import "errors"

// Sentinel errors returned by the store services. Tool handlers translate
// these into failure envelopes; callers use errors.Is to branch on kind.
var (
	ErrNotFound               = errors.New("not found")
	ErrOutOfStock             = errors.New("insufficient stock")
	ErrInvalidQuantities      = errors.New("invalid quantities")
	ErrMismatchedArrays       = errors.New("product and quantity counts must match")
	ErrProductNotInOrder      = errors.New("product not in order")
	ErrQuantityExceedsOrdered = errors.New("quantity exceeds ordered quantity")
	ErrNoShippingRates        = errors.New("no shipping rates for destination")
)
