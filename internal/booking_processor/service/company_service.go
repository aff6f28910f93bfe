package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/shopspring/decimal"
)

type CompanyServiceImpl struct {
	companyRepo  company.Repository
	recalculator Recalculator
	defaultRate  decimal.Decimal
	logger       *slog.Logger
}

func NewCompanyService(companyRepo company.Repository, recalculator Recalculator, defaultRate decimal.Decimal, logger *slog.Logger) CompanyService {
	return &CompanyServiceImpl{
		companyRepo:  companyRepo,
		recalculator: recalculator,
		defaultRate:  defaultRate,
		logger:       logger,
	}
}

// Get returns the stored settings, or an unconfigured placeholder carrying the
// default rate.
func (s *CompanyServiceImpl) Get(ctx context.Context) (*company.Company, error) {
	return currentCompany(ctx, s.companyRepo, s.defaultRate)
}

// Update saves the settings. A changed rate is reapplied to every booking
// after the save; recalculation failures are reported, not returned.
func (s *CompanyServiceImpl) Update(ctx context.Context, req CompanyUpdate) (*CompanyUpdateResult, error) {
	previous, err := currentCompany(ctx, s.companyRepo, s.defaultRate)
	if err != nil {
		return nil, err
	}

	updated, err := company.New(req.Name, req.TaxID, req.CommissionRate)
	if err != nil {
		return nil, err
	}
	if err := s.companyRepo.Save(ctx, updated); err != nil {
		return nil, err
	}
	s.logger.Info("Company settings updated",
		"tax_id", updated.TaxID,
		"commission_rate", updated.CommissionRate.String(),
	)

	result := &CompanyUpdateResult{Company: updated}
	if previous.CommissionRate.Equal(updated.CommissionRate) || s.recalculator == nil {
		return result, nil
	}

	report, err := s.recalculator.RecalculateAll(ctx, updated.CommissionRate)
	if err != nil {
		s.logger.Error("Commission recalculation failed", "commission_rate", updated.CommissionRate.String(), "error", err)
		return result, nil
	}
	result.Recalculation = report
	return result, nil
}

// currentCompany treats a missing row as an unconfigured company.
func currentCompany(ctx context.Context, repo company.Repository, defaultRate decimal.Decimal) (*company.Company, error) {
	c, err := repo.Get(ctx)
	if errors.Is(err, company.ErrCompanyNotFound) {
		return company.Unconfigured(defaultRate), nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
