package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxResponseBytes REST 响应体上限，两张 base64 掩膜加分数字段
const MaxResponseBytes = 32 << 20

// RESTClient 通过 HTTP 调用模型服务
type RESTClient struct {
	client   *http.Client
	endpoint string
	model    string
	maxBody  int64
}

// restPrediction 模型服务的 JSON 响应，掩膜为 base64 字符串
type restPrediction struct {
	Presence   *float32 `json:"presence"`
	Absence    *float32 `json:"absence"`
	Severity   *float32 `json:"severity"`
	LeafMask   []byte   `json:"leaf_mask"`
	LesionMask []byte   `json:"lesion_mask"`
}

// NewRESTClient 创建 REST 客户端
func NewRESTClient(endpoint, model string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		maxBody:  MaxResponseBytes,
	}
}

// HTTPClient 返回底层 HTTP 客户端
func (c *RESTClient) HTTPClient() *http.Client {
	return c.client
}

// URL 返回推理接口地址
func (c *RESTClient) URL() string {
	return fmt.Sprintf("%s/v1/models/%s:predict", c.endpoint, c.model)
}

// Predict 调用模型服务
func (c *RESTClient) Predict(ctx context.Context, image []byte) (*PredictionResult, error) {
	const op = "rest predict"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(image))
	if err != nil {
		return nil, invalidResponse(op, fmt.Errorf("创建请求失败: %w", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	// 发送请求
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unavailable(op, fmt.Errorf("请求失败: %w", err))
	}
	defer resp.Body.Close()

	// 读取响应
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, unavailable(op, fmt.Errorf("读取响应失败: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		return nil, invalidResponse(op, fmt.Errorf("响应超过 %d 字节", c.maxBody))
	}

	// 检查HTTP状态码
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("API返回错误: status=%d, body=%s", resp.StatusCode, truncate(body, 256))
		if retryableStatus(resp.StatusCode) {
			return nil, unavailable(op, statusErr)
		}
		return nil, invalidResponse(op, statusErr)
	}

	// 解析响应
	var payload restPrediction
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, invalidResponse(op, fmt.Errorf("解析响应失败: %w", err))
	}
	if payload.Presence == nil || payload.Absence == nil || payload.Severity == nil {
		return nil, invalidResponse(op, fmt.Errorf("响应缺少分数字段"))
	}

	result := &PredictionResult{
		Presence:   *payload.Presence,
		Absence:    *payload.Absence,
		Severity:   *payload.Severity,
		LeafMask:   payload.LeafMask,
		LesionMask: payload.LesionMask,
	}
	if err := result.Validate(); err != nil {
		return nil, invalidResponse(op, err)
	}
	return result, nil
}

// Close REST 客户端无需释放资源
func (c *RESTClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
