package shared

import "strings"

// Role is the side of the ledger an invoice lands on, relative to the company.
type Role string

const (
	RoleRevenue Role = "REVENUE"
	RoleCost    Role = "COST"
)

func (r Role) Valid() bool { return r == RoleRevenue || r == RoleCost }

// DocumentType is the classification of an ingested document.
type DocumentType string

const (
	DocumentTypeClientInvoice   DocumentType = "CLIENT_INVOICE"
	DocumentTypeProviderInvoice DocumentType = "PROVIDER_INVOICE"
	DocumentTypeOther           DocumentType = "OTHER"
)

// ParseDocumentType accepts the three known values in any case.
func ParseDocumentType(raw string) (DocumentType, bool) {
	switch t := DocumentType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case DocumentTypeClientInvoice, DocumentTypeProviderInvoice, DocumentTypeOther:
		return t, true
	}
	return "", false
}

// Role returns the ledger role for invoice document types.
func (t DocumentType) Role() (Role, bool) {
	switch t {
	case DocumentTypeClientInvoice:
		return RoleRevenue, true
	case DocumentTypeProviderInvoice:
		return RoleCost, true
	}
	return "", false
}

// DocumentSource tells whether a document was uploaded by the user or fetched in the background.
type DocumentSource string

const (
	DocumentSourceManual DocumentSource = "MANUAL"
	DocumentSourceEmail  DocumentSource = "EMAIL"
)

// ProcessingStatus is the document lifecycle state.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "PENDING"
	ProcessingStatusProcessing ProcessingStatus = "PROCESSING"
	ProcessingStatusProcessed  ProcessingStatus = "PROCESSED"
	ProcessingStatusError      ProcessingStatus = "ERROR"
)

// BookingStatus is the booking lifecycle state.
type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "PENDING"
	BookingStatusComplete BookingStatus = "COMPLETE"
)

func ParseBookingStatus(raw string) (BookingStatus, bool) {
	switch s := BookingStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case BookingStatusPending, BookingStatusComplete:
		return s, true
	}
	return "", false
}

// ChargeCategory classifies a charge line.
type ChargeCategory string

const (
	ChargeCategoryFreight       ChargeCategory = "FREIGHT"
	ChargeCategoryHandling      ChargeCategory = "HANDLING"
	ChargeCategoryDocumentation ChargeCategory = "DOCUMENTATION"
	ChargeCategoryTransport     ChargeCategory = "TRANSPORT"
	ChargeCategoryInspection    ChargeCategory = "INSPECTION"
	ChargeCategoryInsurance     ChargeCategory = "INSURANCE"
	ChargeCategoryOther         ChargeCategory = "OTHER"
)

// ParseChargeCategory never fails: unknown values are OTHER.
func ParseChargeCategory(raw string) ChargeCategory {
	switch c := ChargeCategory(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ChargeCategoryFreight, ChargeCategoryHandling, ChargeCategoryDocumentation,
		ChargeCategoryTransport, ChargeCategoryInspection, ChargeCategoryInsurance:
		return c
	}
	return ChargeCategoryOther
}

// ProviderType is the kind of supplier behind a cost invoice.
type ProviderType string

const (
	ProviderTypeShipping   ProviderType = "SHIPPING"
	ProviderTypeCarrier    ProviderType = "CARRIER"
	ProviderTypeInspection ProviderType = "INSPECTION"
	ProviderTypeOther      ProviderType = "OTHER"
)

// ParseProviderType returns OTHER for empty or unknown values.
func ParseProviderType(raw string) ProviderType {
	switch p := ProviderType(strings.ToUpper(strings.TrimSpace(raw))); p {
	case ProviderTypeShipping, ProviderTypeCarrier, ProviderTypeInspection:
		return p
	}
	return ProviderTypeOther
}

// ConfidenceLevel is the score attached to an extracted field.
type ConfidenceLevel int

const (
	ConfidenceNotFound ConfidenceLevel = 0
	ConfidenceLow      ConfidenceLevel = 40
	ConfidenceMedium   ConfidenceLevel = 70
	ConfidenceHigh     ConfidenceLevel = 100
)

// ErrorType is the failure reason recorded on a document.
type ErrorType string

const (
	ErrorTypeNIFNotConfigured  ErrorType = "NIF_NOT_CONFIGURED"
	ErrorTypeAPIKeyMissing     ErrorType = "API_KEY_MISSING"
	ErrorTypeAPIKeyInvalid     ErrorType = "API_KEY_INVALID"
	ErrorTypeAITimeout         ErrorType = "AI_TIMEOUT"
	ErrorTypeAIRateLimit       ErrorType = "AI_RATE_LIMIT"
	ErrorTypeFileTooLarge      ErrorType = "FILE_TOO_LARGE"
	ErrorTypeTooManyPages      ErrorType = "TOO_MANY_PAGES"
	ErrorTypeInvalidPDF        ErrorType = "INVALID_PDF"
	ErrorTypeDuplicateDocument ErrorType = "DUPLICATE_DOCUMENT"
	ErrorTypeInvalidCurrency   ErrorType = "INVALID_CURRENCY"
	ErrorTypeExtractionFailed  ErrorType = "EXTRACTION_FAILED"
	ErrorTypeDiskFull          ErrorType = "DISK_FULL"
	ErrorTypeUnknown           ErrorType = "UNKNOWN"
)

// ParseErrorType maps unknown values to UNKNOWN.
func ParseErrorType(raw string) ErrorType {
	switch e := ErrorType(strings.ToUpper(strings.TrimSpace(raw))); e {
	case ErrorTypeNIFNotConfigured, ErrorTypeAPIKeyMissing, ErrorTypeAPIKeyInvalid, ErrorTypeAITimeout,
		ErrorTypeAIRateLimit, ErrorTypeFileTooLarge, ErrorTypeTooManyPages, ErrorTypeInvalidPDF,
		ErrorTypeDuplicateDocument, ErrorTypeInvalidCurrency, ErrorTypeExtractionFailed, ErrorTypeDiskFull:
		return e
	}
	return ErrorTypeUnknown
}

// Retryable reports whether a failed document may be processed again as is.
func (e ErrorType) Retryable() bool {
	switch e {
	case ErrorTypeAITimeout, ErrorTypeAIRateLimit, ErrorTypeDiskFull:
		return true
	}
	return false
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventType names the booking-side events written to the outbox.
type EventType string

const (
	EventDocumentReceived     EventType = "DocumentReceived"
	EventInvoiceProcessed     EventType = "InvoiceProcessed"
	EventExtractionFailed     EventType = "ExtractionFailed"
	EventBookingUpdated       EventType = "BookingUpdated"
	EventBookingStatusChanged EventType = "BookingStatusChanged"
)
