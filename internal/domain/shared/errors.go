package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind groups domain errors into the categories the presentation layer
// reacts to. Several codes may share a kind.
type ErrorKind string

const (
	KindValidation            ErrorKind = "VALIDATION_ERROR"
	KindInvalidSelectionOrder ErrorKind = "INVALID_SELECTION_ORDER"
	KindNoAddressSelected     ErrorKind = "NO_ADDRESS_SELECTED"
	KindNegativeTotal         ErrorKind = "NEGATIVE_TOTAL"
	KindInvalidState          ErrorKind = "INVALID_STATE"
	KindUnauthenticated       ErrorKind = "UNAUTHENTICATED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Is matches sentinels by code when the target carries one, otherwise by kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error listing the offending fields
func NewValidationError(code, message string, fields ...string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
		Fields:  fields,
	}
}

// IsKind reports whether err is a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && errors.Is(err, &DomainError{Kind: kind})
}

// Kind sentinels, matched through errors.Is regardless of code
var (
	ErrValidation            = &DomainError{Kind: KindValidation, Message: "Validation failed"}
	ErrInvalidSelectionOrder = &DomainError{Kind: KindInvalidSelectionOrder, Message: "Parent region must be selected first"}
	ErrNoAddressSelected     = &DomainError{Kind: KindNoAddressSelected, Message: "Please select an address"}
	ErrNegativeTotal         = &DomainError{Kind: KindNegativeTotal, Message: "Total would be negative"}
	ErrInvalidState          = &DomainError{Kind: KindInvalidState, Message: "Operation not allowed in current state"}
	ErrUnauthenticated       = &DomainError{Kind: KindUnauthenticated, Message: "No signed-in user"}
)

// Code sentinels
var (
	ErrIndexOutOfRange = &DomainError{Kind: KindValidation, Code: "INDEX_OUT_OF_RANGE", Message: "Line item index out of range"}
	ErrInvalidQuantity = &DomainError{Kind: KindValidation, Code: "INVALID_QUANTITY", Message: "Quantity must be at least 1"}
	ErrMissingFields   = &DomainError{Kind: KindValidation, Code: "MISSING_FIELDS", Message: "Please fill in all required fields"}
	ErrInvalidVariant  = &DomainError{Kind: KindValidation, Code: "INVALID_VARIANT", Message: "Selected variant is not available"}
	ErrEmptyCart       = &DomainError{Kind: KindValidation, Code: "EMPTY_CART", Message: "Cart is empty"}
	ErrUnknownAddress  = &DomainError{Kind: KindValidation, Code: "UNKNOWN_ADDRESS", Message: "Address not found"}
	ErrUnknownRegion   = &DomainError{Kind: KindValidation, Code: "UNKNOWN_REGION", Message: "Region not found among the current options"}
	ErrInvalidCoupon   = &DomainError{Kind: KindValidation, Code: "INVALID_COUPON", Message: "Coupon is not valid"}
)
