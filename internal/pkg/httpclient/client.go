// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ordermesh/internal/pkg/nacos"
)

// StatusError 表示下游服务返回了非 2xx 状态码。
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Client 是一个可追踪的、可注入的HTTP客户端。
// 服务地址优先通过 Nacos 解析，Nacos 不可用或未启用时回落到静态配置。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client

	resolver    *nacos.Client     // 可以为 nil
	staticAddrs map[string]string // serviceName -> baseURL
}

// NewClient 创建一个新的客户端实例。
// 不设置 http.Client 的 Timeout 字段，超时完全受控于每次请求传入的 context。
func NewClient(tracer trace.Tracer, resolver *nacos.Client, staticAddrs map[string]string) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:      tracer,
		HTTPClient:  httpClient,
		resolver:    resolver,
		staticAddrs: staticAddrs,
	}
}

// resolveBaseURL 解析目标服务的基础地址。
func (c *Client) resolveBaseURL(serviceName string) (string, error) {
	if c.resolver != nil {
		ip, port, err := c.resolver.DiscoverServiceInstance(serviceName)
		if err == nil {
			return fmt.Sprintf("http://%s:%d", ip, port), nil
		}
		// 发现失败时回落静态地址，不直接报错
	}
	if base, ok := c.staticAddrs[serviceName]; ok && base != "" {
		return base, nil
	}
	return "", fmt.Errorf("no address known for service %s", serviceName)
}

// PostJSON 向目标服务发送 JSON 请求体并解码 JSON 响应。
// respBody 为 nil 时丢弃响应体。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, reqBody, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodPost, serviceName, path, nil, reqBody, respBody)
}

// GetJSON 向目标服务发起 GET 请求并解码 JSON 响应。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, query url.Values, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodGet, serviceName, path, query, nil, respBody)
}

func (c *Client) doJSON(ctx context.Context, method, serviceName, path string, query url.Values, reqBody, respBody interface{}) error {
	spanName := fmt.Sprintf("call-%s", serviceName)
	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.resolveBaseURL(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	fullURL := base + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			span.RecordError(err)
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", fullURL),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &StatusError{Service: serviceName, Code: resp.StatusCode, Body: string(raw)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decode response from %s: %w", serviceName, err)
		}
	}
	return nil
}
