package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hitoshi/logimind/internal/auth"
	"github.com/hitoshi/logimind/internal/guard"
	"github.com/hitoshi/logimind/internal/model"
)

// Deps はプレゼンテーション層が依存するコンポーネントの集合。
type Deps struct {
	Auth            AuthController
	Settings        SettingsController
	Data            DataClient
	Texts           TextSource
	Report          ReportRenderer
	Logger          *slog.Logger
	RefreshInterval time.Duration
}

// dashboardLoadedMsg はダッシュボードのKPIとアラートの取得結果を伝える。
type dashboardLoadedMsg struct {
	kpis   *model.KPIOverview
	alerts []model.Alert
	err    error
}

// warehousesLoadedMsg は倉庫一覧の取得結果を伝える。
type warehousesLoadedMsg struct {
	warehouses []model.Warehouse
	err        error
}

// forecastLoadedMsg は需要予測の取得結果を伝える。
type forecastLoadedMsg struct {
	points []model.ForecastPoint
	err    error
}

// reportLoadedMsg は最新レポートの取得と整形の結果を伝える。
type reportLoadedMsg struct {
	report   *model.Report
	rendered string
	err      error
}

// refreshTickMsg はダッシュボードの定期更新を駆動する。
type refreshTickMsg time.Time

// Model はアプリケーション全体のbubbleteaモデル。
type Model struct {
	deps   Deps
	router *Router
	guard  *guard.Guard

	styles  Styles
	sidebar *Sidebar
	login   loginForm
	setPage settingsPage

	snapshot auth.Snapshot
	width    int
	height   int

	kpis       *model.KPIOverview
	alerts     []model.Alert
	warehouses []model.Warehouse
	forecast   []model.ForecastPoint
	reportView string
	dataErr    error
}

var _ tea.Model = Model{}

// New はModelを生成する。ルーターはガードのNavigatorとして配線される。
func New(deps Deps) Model {
	router := NewRouter()
	return Model{
		deps:     deps,
		router:   router,
		guard:    guard.New(deps.Auth, router),
		styles:   NewStyles(false),
		sidebar:  NewSidebar(),
		login:    newLoginForm(),
		snapshot: deps.Auth.Snapshot(),
	}
}

// Init は初期セッションの解決を開始する。
// 解決結果は購読イベントがAuthChangedMsgとして届ける。
func (m Model) Init() tea.Cmd {
	resolve := func() tea.Msg {
		m.deps.Auth.ResolveInitialSession(context.Background())
		return nil
	}
	return tea.Batch(resolve, m.scheduleRefresh())
}

// Update はメッセージを処理して次の状態を返す。
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case AuthChangedMsg:
		return m.handleAuthChanged(msg.Snapshot)

	case SettingsChangedMsg:
		// 設定値は描画時にControllerから読むため、ここでは保持しない
		return m, nil

	case DarkChangedMsg:
		if m.styles.Dark != msg.Dark {
			m.styles = NewStyles(msg.Dark)
			// 配色が変わったらレポートの整形結果も作り直す
			if m.router.Path() == PathReport && m.snapshot.User != nil {
				return m, m.loadReport()
			}
		}
		return m, nil

	case refreshTickMsg:
		var cmd tea.Cmd
		if m.snapshot.User != nil && m.router.Path() == PathDashboard {
			cmd = m.loadDashboard()
		}
		return m, tea.Batch(cmd, m.scheduleRefresh())

	case dashboardLoadedMsg:
		m.kpis, m.alerts, m.dataErr = msg.kpis, msg.alerts, msg.err
		return m, nil

	case warehousesLoadedMsg:
		m.warehouses, m.dataErr = msg.warehouses, msg.err
		return m, nil

	case forecastLoadedMsg:
		m.forecast, m.dataErr = msg.points, msg.err
		return m, nil

	case reportLoadedMsg:
		m.reportView, m.dataErr = msg.rendered, msg.err
		return m, nil

	case loginResultMsg:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg, m.deps.Auth)
		return m, cmd

	case settingsAppliedMsg:
		var cmd tea.Cmd
		m.setPage, cmd = m.setPage.Update(msg, m.deps.Settings)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActivePage(msg)
}

// handleAuthChanged は認証スナップショットを取り込み、ガードを再評価する。
func (m Model) handleAuthChanged(snapshot auth.Snapshot) (tea.Model, tea.Cmd) {
	wasAnonymous := m.snapshot.User == nil
	m.snapshot = snapshot

	switch m.guard.Evaluate() {
	case guard.DecisionAllow:
		// ログイン画面からの復帰、または起動時のセッション復元
		if m.router.Path() == PathLogin || wasAnonymous {
			m.router.NavigateTo(PathDashboard)
			return m, m.loadDashboard()
		}
	case guard.DecisionRedirect:
		// ガードがログイン画面へ遷移済み。取得済みデータは破棄する。
		m.kpis = nil
		m.alerts = nil
		m.warehouses = nil
		m.forecast = nil
		m.reportView = ""
		m.dataErr = nil
		m.login = newLoginForm()
	}
	return m, nil
}

// handleKey はキー入力を処理する。
// ログイン画面ではCtrl+C以外をフォームへ委譲し、認証済み画面では
// グローバルなナビゲーションキーを先に解釈する。
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.router.Path() == PathLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg, m.deps.Auth)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "ctrl+b":
		m.sidebar.Toggle()
		return m, nil
	case "ctrl+d":
		return m, m.submitLogout()
	case "r":
		if m.router.Path() == PathReport {
			m.reportView = ""
			m.dataErr = nil
			return m, m.loadReport()
		}
	case "1":
		return m.navigate(PathDashboard)
	case "2":
		return m.navigate(PathForecasts)
	case "3":
		return m.navigate(PathMap)
	case "4":
		return m.navigate(PathReport)
	case "5":
		return m.navigate(PathProfile)
	case "6":
		return m.navigate(PathSettings)
	}

	return m.updateActivePage(msg)
}

// navigate は画面を切り替え、その画面が必要とするデータの取得を開始する。
func (m Model) navigate(path string) (tea.Model, tea.Cmd) {
	if m.router.Path() == path {
		return m, nil
	}
	m.router.NavigateTo(path)
	m.dataErr = nil

	switch path {
	case PathDashboard:
		return m, m.loadDashboard()
	case PathForecasts:
		return m, m.loadForecast()
	case PathMap:
		return m, m.loadWarehouses()
	case PathReport:
		return m, m.loadReport()
	}
	return m, nil
}

// updateActivePage は現在の画面固有の状態にメッセージを委譲する。
func (m Model) updateActivePage(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.router.Path() {
	case PathLogin:
		m.login, cmd = m.login.Update(msg, m.deps.Auth)
	case PathSettings:
		m.setPage, cmd = m.setPage.Update(msg, m.deps.Settings)
	}
	return m, cmd
}

func (m Model) submitLogout() tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Auth.Logout(context.Background()); err != nil {
			m.deps.Logger.Warn("logout failed",
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	interval := m.deps.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m Model) loadDashboard() tea.Cmd {
	data := m.deps.Data
	return func() tea.Msg {
		ctx := context.Background()
		kpis, err := data.GetKPIsOverview(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		alerts, err := data.GetAlerts(ctx, 10)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		return dashboardLoadedMsg{kpis: kpis, alerts: alerts}
	}
}

func (m Model) loadWarehouses() tea.Cmd {
	data := m.deps.Data
	return func() tea.Msg {
		warehouses, err := data.GetWarehouses(context.Background())
		return warehousesLoadedMsg{warehouses: warehouses, err: err}
	}
}

func (m Model) loadForecast() tea.Cmd {
	data := m.deps.Data
	current := m.deps.Settings.Current()
	return func() tea.Msg {
		points, err := data.GetForecast(context.Background(), current.DefaultWarehouse, current.DefaultPeriod)
		return forecastLoadedMsg{points: points, err: err}
	}
}

func (m Model) loadReport() tea.Cmd {
	data := m.deps.Data
	renderer := m.deps.Report
	current := m.deps.Settings.Current()
	dark := m.styles.Dark
	width := m.contentWidth()
	return func() tea.Msg {
		report, err := data.GetLatestReport(context.Background(), current.DefaultWarehouse)
		if err != nil {
			return reportLoadedMsg{err: err}
		}
		rendered, err := renderer.Render(report.Content, width, dark)
		if err != nil {
			return reportLoadedMsg{err: err}
		}
		return reportLoadedMsg{report: report, rendered: rendered}
	}
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	w := m.width - 30 // サイドバーと余白のぶん
	if w < 40 {
		w = 40
	}
	return w
}

// View は現在の画面を描画する。
// 初期セッション解決中は何も判断せず、ローディング表示のみを返す。
func (m Model) View() string {
	texts := m.deps.Texts

	if m.snapshot.Loading {
		return m.styles.Content.Render(m.styles.Muted.Render(texts.T("common.loading")))
	}

	if m.router.Path() == PathLogin {
		return m.login.View(m.styles, texts)
	}

	sidebar := m.sidebar.View(m.styles, texts, m.router.Path())
	page := m.viewActivePage(texts)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, page)
}

func (m Model) viewActivePage(texts TextSource) string {
	switch m.router.Path() {
	case PathForecasts:
		return m.viewForecasts(texts)
	case PathMap:
		return m.viewMap(texts)
	case PathReport:
		return m.viewReport(texts)
	case PathProfile:
		return m.viewProfile(texts)
	case PathSettings:
		return m.setPage.View(m.styles, texts, m.deps.Settings.Current())
	default:
		return m.viewDashboard(texts)
	}
}

func (m Model) viewDashboard(texts TextSource) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(texts.T("dashboard.title")))
	b.WriteString("\n")

	if m.dataErr != nil {
		b.WriteString(m.styles.Error.Render(texts.T("common.error") + ": " + m.dataErr.Error()))
		return m.styles.Content.Render(b.String())
	}
	if m.kpis == nil {
		b.WriteString(m.styles.Muted.Render(texts.T("common.loading")))
		return m.styles.Content.Render(b.String())
	}

	cards := []string{
		m.kpiCard(texts.T("dashboard.active_warehouses"), fmt.Sprintf("%d", m.kpis.ActiveWarehouses)),
		m.kpiCard(texts.T("dashboard.alerts_24h"), fmt.Sprintf("%d", m.kpis.AlertsLast24h)),
	}
	if m.kpis.OnTimeDeliveryRate != nil {
		cards = append(cards, m.kpiCard(texts.T("dashboard.on_time_rate"), fmt.Sprintf("%.1f %%", *m.kpis.OnTimeDeliveryRate)))
	}
	if m.kpis.AvgLeadTimeHours != nil {
		cards = append(cards, m.kpiCard(texts.T("dashboard.avg_lead_time"), fmt.Sprintf("%.1f", *m.kpis.AvgLeadTimeHours)))
	}
	if m.kpis.LogisticsCostPerOrder != nil {
		cards = append(cards, m.kpiCard(texts.T("dashboard.cost_per_order"), fmt.Sprintf("%.2f €", *m.kpis.LogisticsCostPerOrder)))
	}
	if m.kpis.MonthlyRevenue != nil {
		cards = append(cards, m.kpiCard(texts.T("dashboard.monthly_revenue"), fmt.Sprintf("%.0f €", *m.kpis.MonthlyRevenue)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n\n")

	b.WriteString(m.styles.CardLabel.Render(texts.T("dashboard.recent_alerts")))
	b.WriteString("\n")
	if len(m.alerts) == 0 {
		b.WriteString(m.styles.Muted.Render("—"))
	}
	for _, alert := range m.alerts {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			m.styles.severity(alert.Severity).Render("["+alert.Severity+"]"),
			m.deps.Settings.FormatDate(alert.CreatedAt),
			alert.Message,
		))
	}

	return m.styles.Content.Render(b.String())
}

func (m Model) kpiCard(label, value string) string {
	return m.styles.Card.Render(
		m.styles.CardLabel.Render(label) + "\n" + m.styles.CardValue.Render(value),
	)
}

func (m Model) viewForecasts(texts TextSource) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(texts.T("forecasts.title")))
	b.WriteString("\n")

	if m.dataErr != nil {
		b.WriteString(m.styles.Error.Render(texts.T("common.error") + ": " + m.dataErr.Error()))
		return m.styles.Content.Render(b.String())
	}
	if len(m.forecast) == 0 {
		b.WriteString(m.styles.Muted.Render(texts.T("common.loading")))
		return m.styles.Content.Render(b.String())
	}

	for _, p := range m.forecast {
		b.WriteString(fmt.Sprintf("%s  %8.1f  %s %8.1f  (%.1f – %.1f)\n",
			m.deps.Settings.FormatDate(p.Date),
			p.Demand,
			m.styles.Muted.Render("→"),
			p.Predicted,
			p.Lower,
			p.Upper,
		))
	}
	return m.styles.Content.Render(b.String())
}

func (m Model) viewMap(texts TextSource) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(texts.T("map.title")))
	b.WriteString("\n")

	if m.dataErr != nil {
		b.WriteString(m.styles.Error.Render(texts.T("common.error") + ": " + m.dataErr.Error()))
		return m.styles.Content.Render(b.String())
	}
	if len(m.warehouses) == 0 {
		b.WriteString(m.styles.Muted.Render(texts.T("common.loading")))
		return m.styles.Content.Render(b.String())
	}

	for _, w := range m.warehouses {
		b.WriteString(fmt.Sprintf("%s %s  %s  %s\n",
			m.styles.CardValue.Render(w.Name),
			m.styles.Muted.Render("("+w.City+")"),
			m.styles.Muted.Render(fmt.Sprintf("%.4f, %.4f", w.Latitude, w.Longitude)),
			loadGauge(w.Load, w.Capacity),
		))
	}
	return m.styles.Content.Render(b.String())
}

// loadGauge は倉庫の充填率を10目盛りのゲージで表す。
func loadGauge(load, capacity int) string {
	if capacity <= 0 {
		return ""
	}
	filled := load * 10 / capacity
	if filled > 10 {
		filled = 10
	}
	return fmt.Sprintf("[%s%s] %d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", 10-filled),
		load*100/capacity,
	)
}

func (m Model) viewReport(texts TextSource) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(texts.T("report.title")))
	b.WriteString("\n")

	if m.dataErr != nil {
		b.WriteString(m.styles.Error.Render(texts.T("common.error") + ": " + m.dataErr.Error()))
		return m.styles.Content.Render(b.String())
	}
	if m.reportView == "" {
		b.WriteString(m.styles.Muted.Render(texts.T("common.loading")))
		return m.styles.Content.Render(b.String())
	}

	b.WriteString(m.reportView)
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("r " + texts.T("report.generate")))
	return m.styles.Content.Render(b.String())
}

func (m Model) viewProfile(texts TextSource) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(texts.T("profile.title")))
	b.WriteString("\n")

	if m.snapshot.User != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.CardLabel.Render(texts.T("profile.email")),
			m.styles.CardValue.Render(m.snapshot.User.Email),
		))
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.CardLabel.Render(texts.T("profile.user_id")),
			m.styles.Muted.Render(m.snapshot.User.ID),
		))
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.styles.CardLabel.Render(texts.T("profile.member_since")),
			m.styles.CardValue.Render(m.deps.Settings.FormatDate(m.snapshot.User.CreatedAt)),
		))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("ctrl+d " + texts.T("nav.logout")))
	return m.styles.Content.Render(b.String())
}
