// Package api はダッシュボード用バックエンドAPIのクライアントを提供する。
// KPI・アラート・倉庫・需要予測・AIレポートの読み取りエンドポイントを呼び出す。
// 再試行やキャッシュは行わず、1回の呼び出しにつき1リクエストを送る。
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/logimind/internal/model"
)

// ClientConfig はClientの設定を保持する。
type ClientConfig struct {
	BaseURL   string
	RateLimit int // req/min。0以下は制限なし
	Burst     int
}

// Client はバックエンドAPIのクライアント。
// 自動更新による連続呼び出しがバックエンドを圧迫しないよう、
// リクエストレートをクライアント側で制限する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     ClientConfig
	limiter    *rate.Limiter
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	limit := rate.Inf
	burst := config.Burst
	if config.RateLimit > 0 {
		limit = rate.Limit(float64(config.RateLimit) / 60.0)
		if burst <= 0 {
			burst = 1
		}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health はバックエンドの死活を確認する。
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.get(ctx, "/", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return model.NewBackendUnavailableError(fmt.Sprintf("unexpected health status %q", resp.Status))
	}
	return nil
}

// alertsResponse はアラート一覧のレスポンス。
type alertsResponse struct {
	Count int           `json:"count"`
	Items []model.Alert `json:"items"`
}

// GetAlerts は最新のアラートを作成日時の降順で取得する。
// limitが0以下の場合はサーバー既定の件数に従う。
func (c *Client) GetAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	path := "/read/alerts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp alertsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// kpisResponse はKPIまとめのレスポンス。
type kpisResponse struct {
	Overview model.KPIOverview `json:"overview"`
}

// GetKPIsOverview はダッシュボード用のKPIまとめを取得する。
func (c *Client) GetKPIsOverview(ctx context.Context) (*model.KPIOverview, error) {
	var resp kpisResponse
	if err := c.get(ctx, "/read/kpis/overview", &resp); err != nil {
		return nil, err
	}
	return &resp.Overview, nil
}

// warehousesResponse は倉庫一覧のレスポンス。
type warehousesResponse struct {
	Items []model.Warehouse `json:"items"`
}

// GetWarehouses は全倉庫を取得する。
func (c *Client) GetWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	var resp warehousesResponse
	if err := c.get(ctx, "/read/warehouses", &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// forecastResponse は需要予測のレスポンス。
type forecastResponse struct {
	Points []model.ForecastPoint `json:"points"`
}

// GetForecast は指定倉庫・期間の需要予測を取得する。
func (c *Client) GetForecast(ctx context.Context, warehouseID, period string) ([]model.ForecastPoint, error) {
	q := url.Values{}
	q.Set("warehouse", warehouseID)
	q.Set("period", period)

	var resp forecastResponse
	if err := c.get(ctx, "/read/forecasts?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}

// GetLatestReport は指定倉庫の最新AIレポートを取得する。
func (c *Client) GetLatestReport(ctx context.Context, warehouseID string) (*model.Report, error) {
	q := url.Values{}
	q.Set("warehouse", warehouseID)

	var report model.Report
	if err := c.get(ctx, "/read/reports/latest?"+q.Encode(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// get はGETリクエストを実行し、レスポンスJSONをoutにデコードする共通処理。
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewBackendUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("backend returned error status",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
