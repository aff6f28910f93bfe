package handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/report"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ConfirmDocumentRequest carries the reviewed extraction. DocumentType, when
// set, overrides the automatic classification.
type ConfirmDocumentRequest struct {
	DocumentType string          `json:"document_type"`
	Extraction   json.RawMessage `json:"extraction" binding:"required"`
}

// FailDocumentRequest is sent by the extractor when it gives up on a document.
type FailDocumentRequest struct {
	ErrorType    string `json:"error_type" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// EditChargeRequest lists the charge fields a user may correct. Absent fields are unchanged.
type EditChargeRequest struct {
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Amount      *money.Money `json:"amount"`
}

func (r EditChargeRequest) toEdit() booking.ChargeEdit {
	edit := booking.ChargeEdit{Description: r.Description, Amount: r.Amount}
	if r.Category != nil {
		category := shared.ParseChargeCategory(*r.Category)
		edit.Category = &category
	}
	return edit
}

type PortRequest struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

// EditDetailsRequest changes shipping details. An empty containers list clears them.
type EditDetailsRequest struct {
	Vessel     *string      `json:"vessel"`
	Containers []string     `json:"containers"`
	POL        *PortRequest `json:"pol"`
	POD        *PortRequest `json:"pod"`
}

func (r EditDetailsRequest) toEdit() booking.DetailsEdit {
	edit := booking.DetailsEdit{Vessel: r.Vessel, Containers: r.Containers}
	if r.POL != nil {
		edit.POL = &booking.PortEdit{Code: r.POL.Code, Name: r.POL.Name}
	}
	if r.POD != nil {
		edit.POD = &booking.PortEdit{Code: r.POD.Code, Name: r.POD.Name}
	}
	return edit
}

type CompanyRequest struct {
	Name           string           `json:"name"`
	TaxID          string           `json:"tax_id" binding:"required"`
	CommissionRate *decimal.Decimal `json:"commission_rate" binding:"required"`
}

// ReportQueryParams are the commission report filters as sent on the query string.
type ReportQueryParams struct {
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
	Status      string `form:"status"`
	Client      string `form:"client"`
	Reference   string `form:"booking_id"`
	InvoiceType string `form:"invoice_type"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order"`
}

func (p ReportQueryParams) toQuery() (report.Query, error) {
	q := report.Query{
		Status:      p.Status,
		Client:      p.Client,
		Reference:   p.Reference,
		InvoiceType: p.InvoiceType,
		SortBy:      p.SortBy,
		Direction:   p.SortOrder,
	}
	var err error
	if q.DateFrom, err = parseDate("date_from", p.DateFrom); err != nil {
		return report.Query{}, err
	}
	if q.DateTo, err = parseDate("date_to", p.DateTo); err != nil {
		return report.Query{}, err
	}
	return q, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Validation(shared.CodeInvalidFilter, field, "dates must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func (p PaginationParams) offset() int { return (p.Page - 1) * p.PerPage }

// DocumentListParams filters the document list.
type DocumentListParams struct {
	PaginationParams
	Status string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING PROCESSED ERROR"`
}


// InvoiceListParams filters the invoice list. InvoiceType accepts the
// document types CLIENT_INVOICE and PROVIDER_INVOICE.
type InvoiceListParams struct {
	PaginationParams
	InvoiceType string `form:"invoice_type"`
	Number      string `form:"number"`
	Party       string `form:"party"`
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
}

func (p InvoiceListParams) toFilter() (invoice.ListFilter, error) {
	from, err := parseDate("date_from", p.DateFrom)
	if err != nil {
		return invoice.ListFilter{}, err
	}
	to, err := parseDate("date_to", p.DateTo)
	if err != nil {
		return invoice.ListFilter{}, err
	}
	f, err := invoice.NewListFilter(p.InvoiceType, p.Number, p.Party, from, to)
	if err != nil {
		return invoice.ListFilter{}, err
	}
	f.Limit, f.Offset = p.PerPage, p.offset()
	return f, nil
}
