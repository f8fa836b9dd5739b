// internal/service/order/infrastructure/adapter/product_http_adapter.go
package adapter

import (
	"context"
	"errors"
	"net"

	"ordermesh/internal/pkg/httpclient"
	"ordermesh/internal/service/order/domain"
	"ordermesh/internal/service/order/domain/port"
)

const productServiceName = "product-service"

// ProductHTTPAdapter 实现了 port.ProductService 接口。
type ProductHTTPAdapter struct {
	client *httpclient.Client
}

func NewProductHTTPAdapter(client *httpclient.Client) *ProductHTTPAdapter {
	return &ProductHTTPAdapter{client: client}
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type batchResponse struct {
	Products []port.ProductDetails `json:"products"`
}

// GetProductsBatch 批量查询商品。
// 超时、连接失败和下游 5xx 统一归为 UnavailableError，由编排器决定失败语义。
func (a *ProductHTTPAdapter) GetProductsBatch(ctx context.Context, ids []string) ([]port.ProductDetails, error) {
	var resp batchResponse
	err := a.client.PostJSON(ctx, productServiceName, "/products/batch", batchRequest{IDs: ids}, &resp)
	if err != nil {
		if isUnavailable(err) {
			return nil, &domain.UnavailableError{Service: productServiceName, Err: err}
		}
		return nil, err
	}
	return resp.Products, nil
}

// isUnavailable 判断错误是否应归类为"下游不可用"。
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}
	// 地址解析失败（Nacos 无实例且无静态兜底）也视为不可用
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
