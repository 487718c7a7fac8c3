package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error for the transport layer
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// Error is a classified business error with a human readable message
type Error struct {
	Kind    ErrorKind
	Message string
	base    *Error
}

// NewError creates a classified error
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel an error was derived from
func (e *Error) Unwrap() error {
	if e.base == nil {
		return nil
	}
	return e.base
}

// WithMessage derives an error of the same kind with a different message.
// errors.Is still matches the original sentinel.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Message: fmt.Sprintf(format, args...), base: e}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Validation creates a validation error
func Validation(format string, args ...any) *Error {
	return NewError(KindValidation, fmt.Sprintf(format, args...))
}

var (
	ErrUserNotFound       = NewError(KindNotFound, "user not found")
	ErrUserAlreadyExists  = NewError(KindConflict, "user already exists")
	ErrInvalidCredentials = NewError(KindAuth, "invalid credentials")
	ErrAccountDeactivated = NewError(KindAuth, "account is deactivated")
	ErrInvalidToken       = NewError(KindAuth, "invalid token")
	ErrWrongPassword      = NewError(KindValidation, "invalid current password")
	ErrAdminRequired      = NewError(KindForbidden, "admin access required")

	ErrAnimalNotFound     = NewError(KindNotFound, "animal not found")
	ErrAnimalUnavailable  = NewError(KindConflict, "animal is not available")
	ErrAnimalReserved     = NewError(KindConflict, "animal is part of an open order")
	ErrNotAnimalOwner     = NewError(KindForbidden, "not authorized to modify this animal")
	ErrFarmerOnly         = NewError(KindForbidden, "only farmers can perform this action")
	ErrSelfPurchase       = NewError(KindForbidden, "you cannot buy your own animal")
	ErrImagesNotSupported = NewError(KindInternal, "image storage is not configured")

	ErrCustomerOnly     = NewError(KindForbidden, "only customers can perform this action")
	ErrCartNotFound     = NewError(KindNotFound, "cart not found")
	ErrCartItemNotFound = NewError(KindNotFound, "cart item not found")
	ErrNotCartOwner     = NewError(KindForbidden, "not authorized to modify this cart item")
	ErrCartEmpty        = NewError(KindValidation, "cart is empty")
	ErrInvalidQuantity  = NewError(KindValidation, "quantity must be at least 1")
	ErrQuantityTooLarge = ErrInvalidQuantity.WithMessage("quantity must not exceed %d", MaxQuantity)

	ErrOrderNotFound     = NewError(KindNotFound, "order not found")
	ErrOrderForbidden    = NewError(KindForbidden, "not authorized to access this order")
	ErrInvalidStatus     = NewError(KindValidation, "invalid status")
	ErrInvalidTransition = NewError(KindConflict, "invalid status transition")
	ErrOrderNumberTaken  = NewError(KindConflict, "order number collision, please retry")
	ErrOrderTooLarge     = NewError(KindValidation, "order total exceeds the maximum allowed amount")
)
