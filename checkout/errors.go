package checkout

import (
	"errors"
	"fmt"
)

// Checkout failures surfaced to the shopper. Messages are shown verbatim.
var (
	ErrEmptyCart           = errors.New("Your cart is empty")
	ErrMultiFarmerCart     = errors.New("All items in an order must be from the same farmer")
	ErrPaymentUnavailable  = errors.New("Payment processing is not available")
	ErrAmountTooSmall      = errors.New("Order total is too small for card payment")
	ErrPaymentNotCompleted = errors.New("Payment has not been completed")
	ErrIntentMismatch      = errors.New("Payment intent does not belong to this user")
)

// ProductNotFoundError reports a cart line whose product no longer exists.
type ProductNotFoundError struct {
	Name string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product not found: %s", e.Name)
}

// ProductUnavailableError reports a cart line whose product is marked
// unavailable.
type ProductUnavailableError struct {
	Name string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("%s is currently unavailable", e.Name)
}

// InsufficientStockError reports a cart line asking for more than is in
// stock.
type InsufficientStockError struct {
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Only %d available", e.Name, e.Available)
}

// ProviderError wraps a failure from the payment processor.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("Payment provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
