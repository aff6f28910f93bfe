package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCompanyRouter(companies *MockCompanyService) *gin.Engine {
	h := NewCompanyHandler(testLogger(), companies)
	router := setupTestRouter()
	router.GET("/company", h.Get)
	router.PUT("/company", h.Update)
	return router
}

func TestCompanyHandler_Get(t *testing.T) {
	companies := new(MockCompanyService)
	companies.On("Get", mock.Anything).Return(company.Unconfigured(company.DefaultCommissionRate), nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/company", nil)
	rr := serve(newCompanyRouter(companies), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(decodeResponse(t, rr).Data), `"commission_rate":"0.5"`)
}

func TestCompanyHandler_Update(t *testing.T) {
	t.Run("RateChangeReportsRecalculation", func(t *testing.T) {
		co, err := company.New("Agencia Maritima", "B-12345678", decimal.RequireFromString("0.4"))
		require.NoError(t, err)
		companies := new(MockCompanyService)
		companies.On("Update", mock.Anything, mock.MatchedBy(func(u service.CompanyUpdate) bool {
			return u.TaxID == "B-12345678" && u.CommissionRate.Equal(decimal.RequireFromString("0.4"))
		})).Return(&service.CompanyUpdateResult{
			Company:       co,
			Recalculation: &service.RecalculationReport{Total: 3, Updated: 2, Failed: []string{"BK-3"}},
		}, nil).Once()

		req, _ := http.NewRequest(http.MethodPut, "/company",
			strings.NewReader(`{"name":"Agencia Maritima","tax_id":"B-12345678","commission_rate":"0.4"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newCompanyRouter(companies), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := string(decodeResponse(t, rr).Data)
		assert.Contains(t, data, `"tax_id":"B12345678"`)
		assert.Contains(t, data, `"failed":["BK-3"]`)
		companies.AssertExpectations(t)
	})

	t.Run("MissingRate", func(t *testing.T) {
		companies := new(MockCompanyService)

		req, _ := http.NewRequest(http.MethodPut, "/company", strings.NewReader(`{"tax_id":"B12345678"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newCompanyRouter(companies), req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		companies.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("RateOutOfRange", func(t *testing.T) {
		companies := new(MockCompanyService)
		companies.On("Update", mock.Anything, mock.Anything).Return(nil, company.ErrInvalidCommissionRate).Once()

		req, _ := http.NewRequest(http.MethodPut, "/company",
			strings.NewReader(`{"tax_id":"B12345678","commission_rate":1.5}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newCompanyRouter(companies), req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "commission_rate", resp.Error.Field)
	})
}
