// internal/service/order/infrastructure/adapter/customer_http_adapter.go
package adapter

import (
	"context"
	"errors"
	"net/http"

	"ordermesh/internal/pkg/httpclient"
	"ordermesh/internal/service/order/domain"
)

const customerServiceName = "customer-service"

// CustomerHTTPAdapter 实现了 port.CustomerService 接口。
type CustomerHTTPAdapter struct {
	client *httpclient.Client
}

func NewCustomerHTTPAdapter(client *httpclient.Client) *CustomerHTTPAdapter {
	return &CustomerHTTPAdapter{client: client}
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// Exists 查询客户是否存在。404 明确表示不存在；
// 其他失败归为 UnavailableError，编排器按 fail-open 处理。
func (a *CustomerHTTPAdapter) Exists(ctx context.Context, customerID string) (bool, error) {
	var resp existsResponse
	err := a.client.GetJSON(ctx, customerServiceName, "/customers/"+customerID+"/exists", nil, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return false, nil
		}
		if isUnavailable(err) {
			return false, &domain.UnavailableError{Service: customerServiceName, Err: err}
		}
		return false, err
	}
	return resp.Exists, nil
}
