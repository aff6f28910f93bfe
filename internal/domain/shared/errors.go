package shared

import (
	"errors"
	"fmt"
)

// ErrorKind groups failures by how the caller should react to them.
type ErrorKind string

const (
	// KindPrecondition blocks an operation before it starts (missing company tax ID, missing credentials).
	KindPrecondition ErrorKind = "PRECONDITION"
	// KindValidation rejects a single document or request; the user can correct and resubmit.
	KindValidation ErrorKind = "VALIDATION"
	// KindConflict reports something that already exists (duplicate file, duplicate invoice number).
	KindConflict ErrorKind = "CONFLICT"
	KindNotFound ErrorKind = "NOT_FOUND"
)

// Error codes shared across packages. Document failure reasons reuse ErrorType values.
const (
	CodeNIFNotConfigured          = string(ErrorTypeNIFNotConfigured)
	CodeInvalidCurrency           = string(ErrorTypeInvalidCurrency)
	CodeDuplicateDocument         = string(ErrorTypeDuplicateDocument)
	CodeDuplicateInvoiceNumber    = "DUPLICATE_INVOICE_NUMBER"
	CodeAmbiguousBookingReference = "AMBIGUOUS_BOOKING_REFERENCE"
	CodeMissingBookingReference   = "MISSING_BOOKING_REFERENCE"
	CodeEmptyCharges              = "EMPTY_CHARGES"
	CodeZeroChargeTotal           = "ZERO_CHARGE_TOTAL"
	CodeRequiredField             = "REQUIRED_FIELD"
	CodeInvalidField              = "INVALID_FIELD"
	CodeInvalidTransition         = "INVALID_TRANSITION"
	CodeInvalidFilter             = "INVALID_FILTER"
	CodeNotFound                  = "NOT_FOUND"
)

// Error is the typed failure returned by domain and service code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code; an empty Kind or Code in the target matches any.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return true
}

// Targets for errors.Is checks by kind.
var (
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
)

func Precondition(code, message string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: message}
}

func Validation(code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// KindOf returns the kind of the first *Error in the chain, or "" for plumbing errors.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ""
}

// Warning is a data-quality finding. It never blocks an operation.
type Warning struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarningLowConfidence     = "LOW_CONFIDENCE"
	WarningMissingBL         = "MISSING_BL_REFERENCE"
	WarningMultipleBL        = "MULTIPLE_BL_REFERENCES"
	WarningChargesMismatch   = "CHARGES_TOTAL_MISMATCH"
	WarningNonPositiveTotal  = "NON_POSITIVE_TOTAL"
	WarningManualReview      = "MANUAL_REVIEW_REQUIRED"
	WarningTaxNotDistributed = "TAX_NOT_DISTRIBUTED"
)
