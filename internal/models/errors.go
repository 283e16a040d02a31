package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide how to surface them
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindConflict
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is a classified application error
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidDiscount = &Error{
		Kind:    KindValidation,
		Message: "discount cannot exceed the gross amount",
		Fields:  []FieldError{{Field: "amount_discount", Error: "must not be greater than amount_gross"}},
	}
	ErrInvalidFeeState      = &Error{Kind: KindInvalidState, Message: "fee is not pending"}
	ErrPaidFeeImmutable     = &Error{Kind: KindInvalidState, Message: "a paid fee cannot change status"}
	ErrFeeNotFound          = &Error{Kind: KindNotFound, Message: "fee not found"}
	ErrStudentNotFound      = &Error{Kind: KindNotFound, Message: "student not found"}
	ErrNotificationNotFound = &Error{Kind: KindNotFound, Message: "notification not found"}
	ErrPaymentNotFound      = &Error{Kind: KindNotFound, Message: "payment not found"}
	ErrFeeExists            = &Error{Kind: KindConflict, Message: "a fee already exists for this student and period"}
	ErrEntryNotFound        = &Error{Kind: KindNotFound, Message: "entry not found"}
	ErrNoGateway            = &Error{Kind: KindUnknown, Message: "payment processor not configured"}
	ErrNegativeAmount       = &Error{
		Kind:    KindValidation,
		Message: "amount cannot be negative",
		Fields:  []FieldError{{Field: "amount", Error: "must be zero or greater"}},
	}
)

// NewValidationError builds a validation error with optional field details
func NewValidationError(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// NewTransientError marks err as retryable
func NewTransientError(msg string, err error) error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldsOf returns the field details of a validation error, if any
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsTransient reports whether err should be retried by the caller
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
