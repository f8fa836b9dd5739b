package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermesh/internal/service/order/domain"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("items", "empty"), http.StatusBadRequest},
		{"order not found", domain.ErrOrderNotFound, http.StatusNotFound},
		{"product not found", domain.ErrProductNotFound, http.StatusNotFound},
		{"customer not found", domain.ErrCustomerNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Wrap(domain.ErrOrderNotFound, "loading order"), http.StatusNotFound},
		{"insufficient stock", &domain.InsufficientStockError{ProductID: "p-1", Available: 1, Requested: 5}, http.StatusConflict},
		{"invalid transition", &domain.InvalidStateError{From: domain.StatusShipped, To: domain.StatusPending}, http.StatusConflict},
		{"business rule", domain.NewBusinessRuleError("order.immutable", "nope"), http.StatusConflict},
		{"version conflict", domain.ErrVersionConflict, http.StatusConflict},
		{"downstream unavailable", &domain.UnavailableError{Service: "product-service"}, http.StatusServiceUnavailable},
		{"unexpected", errors.New("kaboom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/orders/o-1", nil)
			writeError(rec, req, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteError_DoesNotLeakInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/o-1", nil)
	writeError(rec, req, errors.New("dial tcp 10.0.0.5:3306: connection refused"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestWriteError_StockDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	writeError(rec, req, &domain.InsufficientStockError{ProductID: "p-2", Available: 1, Requested: 2})

	var body struct {
		Details map[string]interface{} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p-2", body.Details["productId"])
	assert.EqualValues(t, 1, body.Details["available"])
	assert.EqualValues(t, 2, body.Details["requested"])
}

func TestAuthorized(t *testing.T) {
	open := &OrderHandler{authToken: ""}
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	assert.True(t, open.authorized(req), "no configured token means auth is disabled")

	guarded := &OrderHandler{authToken: "secret"}
	assert.False(t, guarded.authorized(req))

	req.Header.Set("Authorization", "Bearer wrong")
	assert.False(t, guarded.authorized(req))

	req.Header.Set("Authorization", "Bearer secret")
	assert.True(t, guarded.authorized(req))
}
