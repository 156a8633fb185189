// Package upstream は取得元CMS・ストアへのHTTP呼び出しの共通処理を提供する。
// レスポンスサイズ制限、ステータス・レイテンシのメトリクス記録、ログ出力を一箇所にまとめる。
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/metrics"
)

// UserAgent は取得元へのリクエストに付与するUser-Agent。
const UserAgent = "cmsshowcase/1.0"

// Response はボディを読み切った取得元レスポンス。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK はステータスコードが2xxかどうかを返す。
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client は1つの取得元に対するHTTPクライアント。
type Client struct {
	httpClient  *http.Client
	source      string
	baseURL     string
	maxBodySize int64
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// sourceはメトリクスとログのラベルに使われる（例: "drupal"）。
func NewClient(httpClient *http.Client, source, baseURL string, maxBodySize int64, m metrics.MetricsCollector, logger *slog.Logger) *Client {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  httpClient,
		source:      source,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxBodySize: maxBodySize,
		metrics:     m,
		logger:      logger,
	}
}

// Source は取得元ラベルを返す。
func (c *Client) Source() string {
	return c.source
}

// BaseURL は取得元のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient は内部のhttp.Clientを返す。
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// URL はベースURLにパスを連結する。pathは"/"始まりであること。
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// NewRequest は共通ヘッダーを付与したリクエストを生成する。
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

// Do はリクエストを実行し、ボディを読み切って返す。
// 非2xxはエラーにしない（呼び出し元がステータスで分類する）。
// 通信エラーとボディ読み取りエラーのみerrorを返す。
func (c *Client) Do(req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure(c.source, "transport")
		c.logger.Warn("取得元への接続に失敗しました",
			slog.String("source", c.source),
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s への接続に失敗しました: %w", c.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	latency := time.Since(start)
	c.metrics.RecordUpstreamResponse(c.source, resp.StatusCode, latency)
	if err != nil {
		c.metrics.RecordUpstreamFailure(c.source, "read")
		c.logger.Warn("レスポンスボディの読み取りに失敗しました",
			slog.String("source", c.source),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	c.logger.Debug("取得元レスポンスを受信しました",
		slog.String("source", c.source),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("http_status", resp.StatusCode),
		slog.Int64("latency_ms", latency.Milliseconds()),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Get はGETリクエストを実行する。acceptが空の場合はapplication/jsonを送る。
func (c *Client) Get(ctx context.Context, path, accept string) (*Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	return c.Do(req)
}

// RecordFailure はパース失敗など取得元起因の失敗をメトリクスに記録する。
func (c *Client) RecordFailure(reason string) {
	c.metrics.RecordUpstreamFailure(c.source, reason)
}

// RecordFallback はサンプルデータでの代替をメトリクスに記録する。
func (c *Client) RecordFallback(kind string) {
	c.metrics.RecordFallback(c.source, kind)
}
