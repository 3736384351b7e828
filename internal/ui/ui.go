// Package ui はターミナル上のプレゼンテーション層を提供する。
// bubbleteaプログラムとして画面遷移・サイドバー・各ページの描画を担い、
// 状態保持層（auth/settings）には購読とメッセージ経由でのみ触れる。
package ui

import (
	"context"
	"time"

	"github.com/hitoshi/logimind/internal/auth"
	"github.com/hitoshi/logimind/internal/model"
)

// 画面のパス。ルーターはこのパスで現在の画面を識別する。
const (
	PathLogin     = "/login"
	PathDashboard = "/"
	PathForecasts = "/previsions"
	PathMap       = "/carte"
	PathReport    = "/rapport"
	PathProfile   = "/profil"
	PathSettings  = "/parametres"
)

// AuthController は認証状態層への操作インターフェース。
// auth.Stateの部分集合として定義する。
type AuthController interface {
	Snapshot() auth.Snapshot
	ResolveInitialSession(ctx context.Context)
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// SettingsController は設定層への操作インターフェース。
type SettingsController interface {
	Current() model.Settings
	Update(key string, value any) error
	FormatDate(t time.Time) string
}

// DataClient はバックエンド読み取りAPIのインターフェース。
// ページが必要とするエンドポイントのみを含む。
type DataClient interface {
	GetKPIsOverview(ctx context.Context) (*model.KPIOverview, error)
	GetAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	GetWarehouses(ctx context.Context) ([]model.Warehouse, error)
	GetForecast(ctx context.Context, warehouseID, period string) ([]model.ForecastPoint, error)
	GetLatestReport(ctx context.Context, warehouseID string) (*model.Report, error)
}

// TextSource は翻訳済みメッセージの取得インターフェース。
type TextSource interface {
	T(key string) string
}

// ReportRenderer はAIレポート本文の端末向け整形インターフェース。
type ReportRenderer interface {
	Render(content string, width int, dark bool) (string, error)
}

// Router は現在の画面パスを保持する。
// guard.Navigatorを実装し、ガードからの命令的な遷移を受け付ける。
// Modelの値コピー間で共有されるためポインタで持つ。
type Router struct {
	path string
}

// NewRouter はダッシュボードを初期画面とするRouterを生成する。
// 未認証の場合はガードがログイン画面へ遷移させる。
func NewRouter() *Router {
	return &Router{path: PathDashboard}
}

// NavigateTo は現在の画面パスを置き換える。
func (r *Router) NavigateTo(path string) {
	r.path = path
}

// Path は現在の画面パスを返す。
func (r *Router) Path() string {
	return r.path
}
