package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/domain/allocation"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/classifier"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/extraction"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ConfirmationServiceImpl struct {
	txExecutor   persistence.TxExecutor
	companyRepo  company.Repository
	documentRepo document.Repository
	partyRepo    party.Repository
	invoiceRepo  invoice.Repository
	updater      BookingUpdater
	events       EventRecorder
	options      extraction.Options
	defaultRate  decimal.Decimal
	logger       *slog.Logger
	now          func() time.Time
}

type ConfirmationDeps struct {
	TxExecutor   persistence.TxExecutor
	CompanyRepo  company.Repository
	DocumentRepo document.Repository
	PartyRepo    party.Repository
	InvoiceRepo  invoice.Repository
	Updater      BookingUpdater
	Events       EventRecorder
}

func NewConfirmationService(deps ConfirmationDeps, options extraction.Options, defaultRate decimal.Decimal, logger *slog.Logger) ConfirmationService {
	return &ConfirmationServiceImpl{
		txExecutor:   deps.TxExecutor,
		companyRepo:  deps.CompanyRepo,
		documentRepo: deps.DocumentRepo,
		partyRepo:    deps.PartyRepo,
		invoiceRepo:  deps.InvoiceRepo,
		updater:      deps.Updater,
		events:       deps.Events,
		options:      options,
		defaultRate:  defaultRate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type invoiceProcessedPayload struct {
	DocumentType  shared.DocumentType `json:"document_type"`
	InvoiceID     *uuid.UUID          `json:"invoice_id,omitempty"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Role          shared.Role         `json:"role,omitempty"`
	Counterparty  string              `json:"counterparty,omitempty"`
	Bookings      []string            `json:"bookings"`
	NeedsReview   bool                `json:"needs_review"`
}

type bookingUpdatedPayload struct {
	Reason    string         `json:"reason"`
	InvoiceID *uuid.UUID     `json:"invoice_id,omitempty"`
	Role      shared.Role    `json:"role,omitempty"`
	Status    string         `json:"status"`
	Totals    booking.Totals `json:"totals"`
}

// Confirm validates the extraction, classifies it and, for invoices, books
// every charge in one transaction. Nothing is written when any step fails.
func (s *ConfirmationServiceImpl) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	logger := s.logger.With("document_id", req.DocumentID.String())
	if id := shared.CorrelationID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}

	comp, err := currentCompany(ctx, s.companyRepo, s.defaultRate)
	if err != nil {
		return nil, err
	}
	if err := comp.RequireConfigured(); err != nil {
		logger.Warn("Confirmation blocked, company tax ID not configured")
		return nil, err
	}

	doc, err := s.documentRepo.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := doc.CanConfirm(); err != nil {
		return nil, err
	}

	ext, warnings, err := extraction.Parse(req.Extraction, s.options)
	if err != nil {
		logger.Info("Extraction rejected", "error", err)
		return nil, err
	}
	logger = logger.With("invoice_number", ext.InvoiceNumber)

	cls := s.classify(ext, comp.TaxID, req.DocumentType)
	if cls.NeedsReview {
		warnings = append(warnings, shared.Warning{Code: shared.WarningManualReview, Field: "document_type", Message: cls.Reason})
	}

	if !cls.IsInvoice() {
		return s.confirmOther(ctx, logger, req.DocumentID, cls, warnings)
	}

	alloc, err := allocation.Allocate(allocation.Input{
		Candidates:        candidates(ext, cls),
		TaxAmount:         ext.Totals.TaxAmount,
		InvoiceReferences: ext.BLReferences,
	})
	if err != nil {
		logger.Info("Charges could not be allocated", "error", err)
		return nil, err
	}
	warnings = append(warnings, alloc.Warnings...)

	metadata, err := json.Marshal(ext.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction metadata: %w", err)
	}

	result := &ConfirmResult{DocumentType: cls.DocumentType, NeedsReview: cls.NeedsReview}
	err = s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.documentRepo.WithTx(tx).GetForUpdate(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		if err := locked.CanConfirm(); err != nil {
			return err
		}

		// A rate change committed since the first read must not be missed.
		comp, err := s.companyRepo.WithTx(tx).GetForShare(ctx)
		if errors.Is(err, company.ErrCompanyNotFound) {
			return company.Unconfigured(s.defaultRate).RequireConfigured()
		}
		if err != nil {
			return err
		}
		if err := comp.RequireConfigured(); err != nil {
			return err
		}

		counterparty, client, err := s.counterparty(ctx, tx, cls)
		if err != nil {
			return err
		}

		inv, err := s.saveInvoice(ctx, tx, ext, cls.Role, counterparty, locked.ID, alloc, metadata)
		if err != nil {
			return err
		}

		bookings := make([]*booking.Booking, 0, len(alloc.Allocations))
		for _, a := range alloc.Allocations {
			b, err := s.updater.ApplyInvoice(ctx, tx, comp.CommissionRate, application(a, inv, cls.Role, client, ext, alloc.TaxDistributed))
			if err != nil {
				return err
			}
			payload := bookingUpdatedPayload{
				Reason:    "invoice_applied",
				InvoiceID: &inv.ID,
				Role:      cls.Role,
				Status:    string(b.Status),
				Totals:    b.Totals,
			}
			if err := s.events.Record(ctx, tx, shared.EventBookingUpdated, b.ID, &locked.ID, payload); err != nil {
				return err
			}
			bookings = append(bookings, b)
		}

		locked.MarkProcessed(cls.DocumentType, &inv.ID, s.now())
		if err := s.documentRepo.WithTx(tx).Update(ctx, locked); err != nil {
			return err
		}

		if err := s.events.Record(ctx, tx, shared.EventInvoiceProcessed, "", &locked.ID, invoiceProcessedPayload{
			DocumentType:  cls.DocumentType,
			InvoiceID:     &inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Role:          inv.Role,
			Counterparty:  cls.Counterparty.TaxID,
			Bookings:      inv.BookingReferences,
			NeedsReview:   cls.NeedsReview,
		}); err != nil {
			return err
		}

		result.Document = locked
		result.Invoice = inv
		result.Bookings = bookings
		return nil
	})
	if err != nil {
		logger.Warn("Invoice confirmation rolled back", "error", err)
		return nil, err
	}

	result.Warnings = nonNilWarnings(warnings)
	logger.Info("Invoice confirmed",
		"invoice_id", result.Invoice.ID.String(),
		"role", string(result.Invoice.Role),
		"bookings", len(result.Bookings),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func (s *ConfirmationServiceImpl) classify(ext *extraction.Extraction, companyTaxID string, override *shared.DocumentType) classifier.Classification {
	in := classifier.Input{
		Issuer:            classifier.Party{Name: ext.Issuer.Name, TaxID: ext.Issuer.TaxID},
		Recipient:         classifier.Party{Name: ext.Recipient.Name, TaxID: ext.Recipient.TaxID},
		CompanyTaxID:      companyTaxID,
		ProviderTypeGuess: ext.ProviderType,
	}
	if override != nil {
		return classifier.Override(in, *override)
	}
	return classifier.Classify(in)
}

// confirmOther closes a document that is not an invoice of the company.
func (s *ConfirmationServiceImpl) confirmOther(ctx context.Context, logger *slog.Logger, documentID uuid.UUID, cls classifier.Classification, warnings []shared.Warning) (*ConfirmResult, error) {
	result := &ConfirmResult{
		DocumentType: shared.DocumentTypeOther,
		Bookings:     []*booking.Booking{},
		Warnings:     nonNilWarnings(warnings),
		NeedsReview:  cls.NeedsReview,
	}
	err := s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		doc, err := s.documentRepo.WithTx(tx).GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if err := doc.CanConfirm(); err != nil {
			return err
		}
		doc.MarkProcessed(shared.DocumentTypeOther, nil, s.now())
		if err := s.documentRepo.WithTx(tx).Update(ctx, doc); err != nil {
			return err
		}
		result.Document = doc
		return s.events.Record(ctx, tx, shared.EventInvoiceProcessed, "", &doc.ID, invoiceProcessedPayload{
			DocumentType: shared.DocumentTypeOther,
			Bookings:     []string{},
			NeedsReview:  cls.NeedsReview,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Document confirmed as OTHER", "reason", cls.Reason)
	return result, nil
}

// counterparty finds or creates the client or provider. For revenue invoices
// it also returns the client info copied onto bookings.
func (s *ConfirmationServiceImpl) counterparty(ctx context.Context, tx pgx.Tx, cls classifier.Classification) (uuid.UUID, *booking.ClientInfo, error) {
	repo := s.partyRepo.WithTx(tx)
	if cls.Role == shared.RoleRevenue {
		candidate, err := party.NewClient(cls.Counterparty.Name, cls.Counterparty.TaxID)
		if err != nil {
			return uuid.Nil, nil, partyError("recipient.tax_id", err)
		}
		client, err := repo.FindOrCreateClient(ctx, candidate)
		if err != nil {
			return uuid.Nil, nil, err
		}
		return client.ID, &booking.ClientInfo{ID: client.ID, Name: client.Name, TaxID: client.TaxID}, nil
	}

	candidate, err := party.NewProvider(cls.Counterparty.Name, cls.Counterparty.TaxID, cls.ProviderType)
	if err != nil {
		return uuid.Nil, nil, partyError("issuer.tax_id", err)
	}
	provider, err := repo.FindOrCreateProvider(ctx, candidate)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return provider.ID, nil, nil
}

func (s *ConfirmationServiceImpl) saveInvoice(ctx context.Context, tx pgx.Tx, ext *extraction.Extraction, role shared.Role,
	counterpartyID, documentID uuid.UUID, alloc allocation.Result, metadata []byte) (*invoice.Invoice, error) {
	repo := s.invoiceRepo.WithTx(tx)

	existing, err := repo.Get(ctx, role, ext.InvoiceNumber, counterpartyID)
	switch {
	case err == nil:
		return nil, &invoice.DuplicateNumberError{
			Role:           role,
			InvoiceNumber:  existing.InvoiceNumber,
			CounterpartyID: counterpartyID,
			ExistingID:     existing.ID,
		}
	case !errors.Is(err, invoice.ErrInvoiceNotFound):
		return nil, err
	}

	inv, err := invoice.New(role, ext.InvoiceNumber, counterpartyID, ext.InvoiceDate, *ext.Totals.Total, ext.Totals.TaxAmount)
	if err != nil {
		return nil, err
	}
	inv.DocumentID = &documentID
	inv.BookingReferences = alloc.References()
	inv.ExtractionMetadata = metadata

	if err := repo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func candidates(ext *extraction.Extraction, cls classifier.Classification) []allocation.Candidate {
	out := make([]allocation.Candidate, 0, len(ext.Charges))
	for _, c := range ext.Charges {
		candidate := allocation.Candidate{
			BookingRef:  c.BookingRef,
			Category:    c.Category,
			Container:   c.Container,
			Description: c.Description,
			Amount:      c.Amount,
		}
		if cls.Role == shared.RoleCost {
			candidate.ProviderType = cls.ProviderType
		}
		out = append(out, candidate)
	}
	return out
}

func application(a allocation.BookingAllocation, inv *invoice.Invoice, role shared.Role, client *booking.ClientInfo,
	ext *extraction.Extraction, taxDistributed bool) Application {
	charges := make([]booking.Charge, 0, len(a.Candidates))
	for _, c := range a.Candidates {
		charge := booking.NewCharge(a.BookingRef, inv.ID, role, c.Category, c.Description, c.Amount)
		charge.ProviderType = c.ProviderType
		charge.Container = c.Container
		charges = append(charges, charge)
	}

	app := Application{
		Reference: a.BookingRef,
		Role:      role,
		InvoiceID: inv.ID,
		Charges:   charges,
		Client:    client,
		Shipping:  shipping(ext.Shipping),
	}
	if taxDistributed {
		app.Tax = &booking.TaxAllocation{
			BookingID:  a.BookingRef,
			InvoiceID:  inv.ID,
			BaseAmount: a.Base,
			TaxAmount:  a.Tax,
			Percentage: a.Percentage,
		}
	}
	return app
}

func shipping(s extraction.Shipping) booking.ShippingDetails {
	details := booking.ShippingDetails{Vessel: s.Vessel, Containers: s.Containers}
	if s.POLCode != "" {
		details.POL = &booking.Port{Code: s.POLCode, Name: s.POLName}
	}
	if s.PODCode != "" {
		details.POD = &booking.Port{Code: s.PODCode, Name: s.PODName}
	}
	return details
}

func partyError(field string, err error) error {
	return &shared.Error{Kind: shared.KindValidation, Code: shared.CodeRequiredField, Field: field, Message: "tax ID is required", Err: err}
}

func nonNilWarnings(w []shared.Warning) []shared.Warning {
	if w == nil {
		return []shared.Warning{}
	}
	return w
}
