package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/report"
	"github.com/freight-commission-ledger/internal/platform/export"
)

type ReportServiceImpl struct {
	bookingRepo booking.Repository
	logger      *slog.Logger
	now         func() time.Time
}

func NewReportService(bookingRepo booking.Repository, logger *slog.Logger) ReportService {
	return &ReportServiceImpl{
		bookingRepo: bookingRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Build pushes the status and date filters down to storage and applies the
// rest of the query in memory.
func (s *ReportServiceImpl) Build(ctx context.Context, q report.Query) (*report.Report, error) {
	filter, err := q.StorageFilter()
	if err != nil {
		return nil, err
	}
	rows, err := s.bookingRepo.ListSummaries(ctx, filter)
	if err != nil {
		return nil, err
	}
	r, err := report.Build(rows, q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Commission report built", "rows", len(rows), "items", len(r.Items))
	return r, nil
}

func (s *ReportServiceImpl) WriteCSV(ctx context.Context, w io.Writer, q report.Query) error {
	r, err := s.Build(ctx, q)
	if err != nil {
		return err
	}
	return export.WriteReportCSV(w, r)
}

func (s *ReportServiceImpl) WriteBookingPDF(ctx context.Context, w io.Writer, bookingID string) error {
	b, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	return export.WriteBookingPDF(w, b, s.now())
}
