package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/freight-commission-ledger/internal/domain/allocation"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// Codes carried by domain error types that are not *shared.Error themselves.
var typedCodes = []string{
	shared.CodeDuplicateInvoiceNumber,
	shared.CodeInvalidTransition,
	shared.CodeAmbiguousBookingReference,
}

var kindStatus = []struct {
	target error
	kind   shared.ErrorKind
	status int
}{
	{shared.ErrPrecondition, shared.KindPrecondition, http.StatusPreconditionFailed},
	{shared.ErrValidation, shared.KindValidation, http.StatusUnprocessableEntity},
	{shared.ErrConflict, shared.KindConflict, http.StatusConflict},
	{shared.ErrNotFound, shared.KindNotFound, http.StatusNotFound},
}

// RespondError maps a service error onto the HTTP status of its kind. Errors
// of no known kind are logged and hidden behind a 500.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	for _, k := range kindStatus {
		if !errors.Is(err, k.target) {
			continue
		}
		info := errorInfo(err)
		info.Kind = string(k.kind)
		if k.status == http.StatusNotFound || k.status == http.StatusPreconditionFailed {
			logger.Info("Request rejected", "kind", info.Kind, "code", info.Code, "error", err)
		} else {
			logger.Warn("Request rejected", "kind", info.Kind, "code", info.Code, "error", err)
		}
		RespondWithErrorInfo(c, k.status, info)
		return
	}

	logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	RespondInternalError(c)
}

func errorInfo(err error) *ErrorInfo {
	info := &ErrorInfo{Message: err.Error()}

	var typed *shared.Error
	if errors.As(err, &typed) {
		info.Code = typed.Code
		info.Field = typed.Field
		info.Message = typed.Error()
	} else {
		for _, code := range typedCodes {
			if errors.Is(err, &shared.Error{Code: code}) {
				info.Code = code
				break
			}
		}
	}

	var duplicate *invoice.DuplicateNumberError
	if errors.As(err, &duplicate) {
		info.Field = "invoice_number"
		info.Details = map[string]any{"existing_invoice_id": duplicate.ExistingID.String()}
	}
	var ambiguous *allocation.AmbiguousReferenceError
	if errors.As(err, &ambiguous) {
		info.Field = "charges"
		info.Details = map[string]any{"charges": ambiguous.UntaggedIndexes, "references": ambiguous.References}
	}
	return info
}
