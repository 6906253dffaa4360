package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business failures so callers can branch without matching messages.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_error"
	KindProductUnavailable ErrorKind = "product_unavailable"
	KindInvalidQuantity    ErrorKind = "invalid_quantity"
	KindTenantUnavailable  ErrorKind = "tenant_unavailable"
	KindTenantNotAccepting ErrorKind = "tenant_not_accepting"
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindIllegalState       ErrorKind = "illegal_state"
	KindNotFound           ErrorKind = "not_found"
)

// Error is a business rule failure. Details are only set for the kinds they belong to.
type Error struct {
	Kind      ErrorKind
	Message   string
	ProductID int64
	From      Status
	To        Status
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works for
// errors built with details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrProductUnavailable = &Error{Kind: KindProductUnavailable, Message: "this product is not available"}
	ErrInvalidQuantity    = &Error{Kind: KindInvalidQuantity, Message: "quantity must be a positive number"}
	ErrTenantUnavailable  = &Error{Kind: KindTenantUnavailable, Message: "restaurant is not available"}
	ErrTenantNotAccepting = &Error{Kind: KindTenantNotAccepting, Message: "restaurant is not accepting orders right now"}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrIllegalState       = &Error{Kind: KindIllegalState, Message: "operation not allowed in the current order state"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
)

func NewValidationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewProductUnavailableError(productID int64) error {
	return &Error{
		Kind:      KindProductUnavailable,
		Message:   fmt.Sprintf("product %d is not available", productID),
		ProductID: productID,
	}
}

func NewInvalidQuantityError(productID int64) error {
	return &Error{
		Kind:      KindInvalidQuantity,
		Message:   fmt.Sprintf("quantity for product %d must be a positive number", productID),
		ProductID: productID,
	}
}

func NewInvalidTransitionError(from, to Status) error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change order status from %q to %q", from, to),
		From:    from,
		To:      to,
	}
}

// KindOf returns the kind of a business error, or "" for infrastructure failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
