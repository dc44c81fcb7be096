// Package webhook 外部サービスへのHTTP呼び出し
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"command-server/internal/application/action"
)

// maxResponseBytes 特殊識別子に格納するレスポンス本文の上限
const maxResponseBytes = 64 << 10

var _ action.WebhookClient = (*Client)(nil)

// Client HTTPで外部サービスを呼び出すクライアント
type Client struct {
	client *http.Client
}

// NewClient 新しいClientを作成
func NewClient(timeout time.Duration, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{client: client}
}

// Call リクエストを送りレスポンス本文を返す
// 2xx以外はエラーとして扱う
func (c *Client) Call(ctx context.Context, r action.WebhookRequest) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if r.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("webhook returned %s", resp.Status)
	}
	return strings.TrimSpace(string(data)), nil
}
