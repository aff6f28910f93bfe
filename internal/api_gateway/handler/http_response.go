package handler

import (
	"net/http"

	"github.com/freight-commission-ledger/internal/api_gateway/middleware"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON reply. Warnings report data-quality
// problems that did not stop the request.
type Response struct {
	Data          any              `json:"data,omitempty"`
	Error         *ErrorInfo       `json:"error,omitempty"`
	Warnings      []shared.Warning `json:"warnings,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Meta          *MetaInfo        `json:"meta,omitempty"`
}

// ErrorInfo carries the error kind and code so clients can branch without
// parsing messages. Details holds code-specific context such as the id of an
// existing invoice.
type ErrorInfo struct {
	Kind    string         `json:"kind,omitempty"`
	Code    string         `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// MetaInfo describes the page returned by list endpoints.
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func NewResponse(data any) *Response {
	return &Response{Data: data}
}

// NewPaginatedResponse wraps one page of a list of totalItems entries.
func NewPaginatedResponse(data any, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}
	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func RespondWithData(c *gin.Context, statusCode int, data any) {
	respond(c, statusCode, NewResponse(data))
}

// RespondWithWarnings sends data together with the warnings it produced.
func RespondWithWarnings(c *gin.Context, statusCode int, data any, warnings []shared.Warning) {
	response := NewResponse(data)
	response.Warnings = warnings
	respond(c, statusCode, response)
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	RespondWithErrorInfo(c, statusCode, &ErrorInfo{Code: code, Message: message})
}

func RespondWithErrorInfo(c *gin.Context, statusCode int, info *ErrorInfo) {
	respond(c, statusCode, &Response{Error: info})
}

func RespondWithPaginatedData(c *gin.Context, statusCode int, data any, page, perPage, totalItems int) {
	respond(c, statusCode, NewPaginatedResponse(data, page, perPage, totalItems))
}

func RespondOK(c *gin.Context, data any) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data any) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest rejects a request that could not be bound or parsed.
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondInternalError hides the cause; callers log it first.
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
