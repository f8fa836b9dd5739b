// internal/service/customer/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"ordermesh/internal/pkg/logger"
	"ordermesh/internal/service/customer/domain"
)

// CustomerHandler 只暴露订单域依赖的存在性检查。
type CustomerHandler struct {
	repo domain.CustomerRepository
}

func NewCustomerHandler(repo domain.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{repo: repo}
}

func (h *CustomerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /customers/{id}/exists", h.exists)
}

// exists 返回 200 {"exists":true} 或 404。
// 调用方把 404 解释为"确定不存在"，其余失败解释为"暂不可用"。
func (h *CustomerHandler) exists(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer("customer-service").Start(ctx, "http.customer_exists")
	defer span.End()

	_, err := h.repo.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			http.Error(w, `{"error":"customer not found"}`, http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("customer lookup failed")
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"exists": true})
}
