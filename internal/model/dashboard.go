// Package model はドメインモデルを定義する。
package model

import "time"

// KPIOverview はダッシュボードに表示する主要KPIのまとめを表す。
// バックエンドの集計結果をそのまま保持する。省略可能な指標はポインタで表す。
type KPIOverview struct {
	ActiveWarehouses      int      `json:"active_warehouses"`
	AlertsLast24h         int      `json:"alerts_last_24h"`
	OnTimeDeliveryRate    *float64 `json:"on_time_delivery_rate,omitempty"`
	AvgLeadTimeHours      *float64 `json:"avg_lead_time_hours,omitempty"`
	LogisticsCostPerOrder *float64 `json:"logistics_cost_per_order,omitempty"`
	MonthlyRevenue        *float64 `json:"monthly_revenue,omitempty"`
}

// Alert は物流アラートを表す。
type Alert struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title,omitempty"`
	Message     string    `json:"message"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Warehouse は倉庫を表す。地図表示用の座標を含む。
type Warehouse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Capacity  int     `json:"capacity"`
	Load      int     `json:"load"`
}

// ForecastPoint は需要予測の1データポイントを表す。
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Demand    float64   `json:"demand"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Report はAI生成レポートを表す。
// ContentはMarkdown形式で、HTML断片を含む可能性がある。
type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}
