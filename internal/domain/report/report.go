// Package report builds the commission report: a read-only projection over
// booking summaries with aggregate totals.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
)

const (
	SortCreatedAt  = "created_at"
	SortMargin     = "margin"
	SortCommission = "commission"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// Query is the caller's filter and sort. Zero values do not filter; the
// default order is created_at descending.
type Query struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	Status      string
	Client      string
	Reference   string
	InvoiceType string
	SortBy      string
	Direction   string
}

// Item is one report row. Field names are the export contract.
type Item struct {
	BookingID    string               `json:"booking_id"`
	ClientName   string               `json:"client_name"`
	CreatedAt    time.Time            `json:"created_at"`
	Status       shared.BookingStatus `json:"status"`
	TotalRevenue money.Money          `json:"total_revenue"`
	TotalCosts   money.Money          `json:"total_costs"`
	Margin       money.Money          `json:"margin"`
	Commission   money.Money          `json:"commission"`
}

type Totals struct {
	BookingCount int         `json:"booking_count"`
	TotalRevenue money.Money `json:"total_revenue"`
	TotalCosts   money.Money `json:"total_costs"`
	Margin       money.Money `json:"margin"`
	Commission   money.Money `json:"commission"`
}

type Report struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// criteria is a validated Query.
type criteria struct {
	from, to    *time.Time // to is exclusive
	status      *shared.BookingStatus
	client      string
	reference   string
	invoiceType shared.DocumentType
	sortBy      string
	desc        bool
}

func invalid(field, message string) error {
	return shared.Validation(shared.CodeInvalidFilter, field, message)
}

func (q Query) validate() (criteria, error) {
	c := criteria{
		client:    strings.ToLower(strings.TrimSpace(q.Client)),
		reference: strings.ToLower(strings.TrimSpace(q.Reference)),
		sortBy:    SortCreatedAt,
		desc:      true,
	}

	if q.DateFrom != nil {
		from := startOfDay(*q.DateFrom)
		c.from = &from
	}
	if q.DateTo != nil {
		to := startOfDay(*q.DateTo).AddDate(0, 0, 1)
		c.to = &to
	}
	if c.from != nil && c.to != nil && !c.from.Before(*c.to) {
		return criteria{}, invalid("date_from", "date_from must not be after date_to")
	}

	if q.Status != "" {
		s, ok := shared.ParseBookingStatus(q.Status)
		if !ok {
			return criteria{}, invalid("status", "status must be PENDING or COMPLETE")
		}
		c.status = &s
	}

	if q.InvoiceType != "" {
		t, ok := shared.ParseDocumentType(q.InvoiceType)
		if !ok || t == shared.DocumentTypeOther {
			return criteria{}, invalid("invoice_type", "invoice_type must be CLIENT_INVOICE or PROVIDER_INVOICE")
		}
		c.invoiceType = t
	}

	switch s := strings.ToLower(strings.TrimSpace(q.SortBy)); s {
	case "":
	case SortCreatedAt, SortMargin, SortCommission:
		c.sortBy = s
	default:
		return criteria{}, invalid("sort_by", "sort_by must be created_at, margin or commission")
	}

	switch d := strings.ToLower(strings.TrimSpace(q.Direction)); d {
	case "", DirectionDesc:
	case DirectionAsc:
		c.desc = false
	default:
		return criteria{}, invalid("sort_order", "sort_order must be asc or desc")
	}
	return c, nil
}

// StorageFilter returns the part of the query a repository can apply.
// Build applies the full query again, so pushing this down is optional.
func (q Query) StorageFilter() (booking.ListFilter, error) {
	c, err := q.validate()
	if err != nil {
		return booking.ListFilter{}, err
	}
	return booking.ListFilter{Status: c.status, CreatedFrom: c.from, CreatedTo: c.to}, nil
}

func (c criteria) match(s booking.Summary) bool {
	if c.from != nil && s.CreatedAt.Before(*c.from) {
		return false
	}
	if c.to != nil && !s.CreatedAt.Before(*c.to) {
		return false
	}
	if c.status != nil && s.Status != *c.status {
		return false
	}
	if c.client != "" && !strings.Contains(strings.ToLower(s.ClientName), c.client) {
		return false
	}
	if c.reference != "" && !strings.Contains(strings.ToLower(s.ID), c.reference) {
		return false
	}
	switch c.invoiceType {
	case shared.DocumentTypeClientInvoice:
		return s.HasRevenue
	case shared.DocumentTypeProviderInvoice:
		return s.HasCosts
	}
	return true
}

func (c criteria) less(a, b Item) bool {
	var cmp int
	switch c.sortBy {
	case SortMargin:
		cmp = a.Margin.Cmp(b.Margin)
	case SortCommission:
		cmp = a.Commission.Cmp(b.Commission)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c.desc {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp < 0
	}
	return a.BookingID < b.BookingID
}

// Build filters, sorts and totals the given summaries. It does not modify rows.
func Build(rows []booking.Summary, q Query) (*Report, error) {
	c, err := q.validate()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, s := range rows {
		if !c.match(s) {
			continue
		}
		items = append(items, Item{
			BookingID:    s.ID,
			ClientName:   s.ClientName,
			CreatedAt:    s.CreatedAt,
			Status:       s.Status,
			TotalRevenue: s.TotalRevenue.Round(),
			TotalCosts:   s.TotalCosts.Round(),
			Margin:       s.Margin.Round(),
			Commission:   s.Commission.Round(),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return c.less(items[i], items[j]) })

	totals := Totals{
		BookingCount: len(items),
		TotalRevenue: money.Zero(),
		TotalCosts:   money.Zero(),
		Margin:       money.Zero(),
		Commission:   money.Zero(),
	}
	for _, it := range items {
		totals.TotalRevenue = totals.TotalRevenue.Add(it.TotalRevenue)
		totals.TotalCosts = totals.TotalCosts.Add(it.TotalCosts)
		totals.Margin = totals.Margin.Add(it.Margin)
		totals.Commission = totals.Commission.Add(it.Commission)
	}

	return &Report{Items: items, Totals: totals}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
