// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/pkg/metrics"
	"ordermesh/internal/service/order/application"
	"ordermesh/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler 封装了订单服务的 HTTP 处理器。
// 这一层只做解码、鉴权、错误码映射，业务全部在应用服务里。
type OrderHandler struct {
	service   *application.OrderApplicationService
	authToken string
}

func NewOrderHandler(service *application.OrderApplicationService, authToken string) *OrderHandler {
	return &OrderHandler{service: service, authToken: authToken}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.wrap("create_order", h.createOrder))
	mux.HandleFunc("GET /orders", h.wrap("list_orders", h.listOrders))
	mux.HandleFunc("GET /orders/{id}", h.wrap("get_order", h.getOrder))
	mux.HandleFunc("PUT /orders/{id}", h.wrap("update_order", h.updateOrder))
	mux.HandleFunc("DELETE /orders/{id}", h.wrap("delete_order", h.deleteOrder))
	mux.HandleFunc("POST /orders/{id}/status", h.wrap("change_order_status", h.changeStatus))
}

// wrap 统一处理追踪上下文、鉴权和耗时指标。
func (h *OrderHandler) wrap(route string, next http.HandlerFunc) http.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "http."+route)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		)

		if !h.authorized(r) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))
		metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(rec.status/100*100)).
			Observe(time.Since(start).Seconds())
	}
}

// authorized 做简化的 Bearer Token 校验；token 未配置时放行（本地开发）。
func (h *OrderHandler) authorized(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+h.authToken
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON body"))
		return
	}
	resp, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &application.ListOrdersRequest{
		CustomerID:  q.Get("customerId"),
		Status:      q.Get("status"),
		OrderNumber: q.Get("orderNumber"),
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if from := q.Get("fromDate"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, r, domain.NewValidationError("fromDate", "expected RFC3339 timestamp"))
			return
		}
		req.FromDate = &t
	}
	if to := q.Get("toDate"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, r, domain.NewValidationError("toDate", "expected RFC3339 timestamp"))
			return
		}
		req.ToDate = &t
	}

	resp, err := h.service.ListOrders(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON body"))
		return
	}
	resp, err := h.service.UpdateOrder(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req application.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON body"))
		return
	}
	resp, err := h.service.ChangeOrderStatus(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// writeError 把领域错误映射到 HTTP 状态码：
// 校验 400、未找到 404、业务规则/状态/并发冲突 409、下游不可用 503，
// 其余按 500 处理且不向外泄露内部细节。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
		stateErr      *domain.InvalidStateError
		ruleErr       *domain.BusinessRuleError
		unavailable   *domain.UnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error()})
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCustomerNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorBody{
			Error: stockErr.Error(),
			Details: map[string]interface{}{
				"productId": stockErr.ProductID,
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			},
		})
	case errors.As(err, &stateErr), errors.As(err, &ruleErr),
		errors.Is(err, domain.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "a downstream dependency is unavailable"})
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("unexpected error handling request")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
