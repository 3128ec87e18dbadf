package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/interfaces/http/dto"
	"github.com/erp/reconciliation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	SetupValidator()
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from middleware",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when middleware did not run",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"validation", shared.NewValidationError("amount must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"not found", shared.NewNotFoundError("payment", "p-1"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"already reversed", shared.ErrAlreadyReversed, http.StatusConflict, dto.ErrCodeAlreadyReversed},
		{"credit consumed", shared.ErrCreditConsumed, http.StatusConflict, dto.ErrCodeCreditConsumed},
		{"duplicate", shared.ErrDuplicateRequest, http.StatusConflict, dto.ErrCodeDuplicateRequest},
		{"nothing to apply", shared.ErrNothingToApply, http.StatusBadRequest, dto.ErrCodeNothingToApply},
		{"lock timeout", shared.ErrLockTimeout, http.StatusServiceUnavailable, dto.ErrCodeLockTimeout},
		{"invariant", shared.NewInvariantViolation("paid exceeds total"), http.StatusInternalServerError, dto.ErrCodeInvariantViolation},
		{"wrapped", fmt.Errorf("failed to record payment: %w", shared.ErrConcurrencyConflict), http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-err")

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			assert.Equal(t, "req-err", resp.Error.RequestID)
		})
	}
}

func TestBindingError_ListsFields(t *testing.T) {
	router := gin.New()
	router.POST("/payments", func(c *gin.Context) {
		var req RecordPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			(&BaseHandler{}).BindingError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("validation failures", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments",
			jsonBody(t, map[string]any{"party_id": "not-a-uuid", "party_type": "VENDOR"}))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"party_id", "party_type", "payment_mode"}, fields)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", jsonRaw("{")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})
}
