package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const maxInvoicePage = 200

type InvoiceServiceImpl struct {
	invoiceRepo invoice.Repository
	partyRepo   party.Repository
	logger      *slog.Logger
}

func NewInvoiceService(invoiceRepo invoice.Repository, partyRepo party.Repository, logger *slog.Logger) InvoiceService {
	return &InvoiceServiceImpl{
		invoiceRepo: invoiceRepo,
		partyRepo:   partyRepo,
		logger:      logger,
	}
}

// List returns client and provider invoices, newest invoice date first.
func (s *InvoiceServiceImpl) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.ListItem, error) {
	if filter.Limit <= 0 || filter.Limit > maxInvoicePage {
		filter.Limit = maxInvoicePage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.invoiceRepo.List(ctx, filter)
}

// Get loads one invoice with the client or provider it was issued to or by.
// A missing party record is logged and the invoice is still returned.
func (s *InvoiceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &InvoiceDetail{Invoice: inv}
	switch inv.Role {
	case shared.RoleRevenue:
		detail.Client, err = s.partyRepo.GetClient(ctx, inv.CounterpartyID)
	case shared.RoleCost:
		detail.Provider, err = s.partyRepo.GetProvider(ctx, inv.CounterpartyID)
	}
	if errors.Is(err, party.ErrPartyNotFound) {
		s.logger.Warn("Invoice counterparty not found",
			"invoice_id", inv.ID.String(),
			"counterparty_id", inv.CounterpartyID.String(),
		)
		return detail, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading counterparty of invoice %s: %w", inv.ID, err)
	}
	return detail, nil
}
