// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StatusError 表示下游返回了非 2xx 状态码。
// 调用方可以据此区分业务性拒绝（404/409）与基础设施故障（5xx）。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

// IsStatus 判断 err 是否为指定状态码的 StatusError。
func IsStatus(err error, code int) bool {
	se, ok := err.(*StatusError)
	return ok && se.Code == code
}

// Client 是带链路追踪的 HTTP 客户端，所有跨服务调用都应经由它发出。
type Client struct {
	tracer     trace.Tracer
	httpClient *http.Client
}

func NewClient(serviceName string, timeout time.Duration) *Client {
	return &Client{
		tracer:     otel.Tracer(serviceName),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PostJSON 以 JSON 形式 POST payload 到 url，并把响应体解码到 out（可为 nil）。
// 非 2xx 时同样尝试解码响应体，再返回 *StatusError。
func (c *Client) PostJSON(ctx context.Context, spanName, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return c.do(ctx, spanName, http.MethodPost, url, bytes.NewReader(body), out)
}

// GetJSON 发起 GET 请求并把响应体解码到 out。
func (c *Client) GetJSON(ctx context.Context, spanName, url string, out interface{}) error {
	return c.do(ctx, spanName, http.MethodGet, url, nil, out)
}

func (c *Client) do(ctx context.Context, spanName, method, url string, body io.Reader, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", url),
	)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 注入 W3C TraceContext 头，下游服务能够接续同一条链路
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// 错误响应也可能携带结构化的业务结果，先尽力解码
	if out != nil && len(respBody) > 0 {
		_ = json.Unmarshal(respBody, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
