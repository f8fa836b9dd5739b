// internal/service/product/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/service/product/application"
	"ordermesh/internal/service/product/domain"
)

// ProductHandler 暴露商品查询接口，写路径只走事件消费。
type ProductHandler struct {
	service *application.ProductApplicationService
}

func NewProductHandler(service *application.ProductApplicationService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /products/batch", h.traced("products_batch", h.batch))
	mux.HandleFunc("GET /products/{id}", h.traced("get_product", h.get))
}

func (h *ProductHandler) traced(route string, next http.HandlerFunc) http.HandlerFunc {
	tracer := otel.Tracer("product-service")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "http."+route)
		defer span.End()
		next(w, r.WithContext(ctx))
	}
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type batchResponse struct {
	Products []application.ProductView `json:"products"`
}

func (h *ProductHandler) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	views, err := h.service.GetProductsBatch(r.Context(), req.IDs)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("batch product lookup failed")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []application.ProductView{}
	}
	writeJSON(w, http.StatusOK, batchResponse{Products: views})
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("product lookup failed")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
