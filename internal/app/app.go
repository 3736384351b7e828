// Package app はアプリケーションの初期化と起動を担う。
// 全コンポーネントのワイヤリングはここで行い、各パッケージは
// コンストラクタ注入された依存だけを知る。
package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hitoshi/logimind/internal/api"
	"github.com/hitoshi/logimind/internal/auth"
	"github.com/hitoshi/logimind/internal/config"
	"github.com/hitoshi/logimind/internal/i18n"
	"github.com/hitoshi/logimind/internal/identity"
	"github.com/hitoshi/logimind/internal/logger"
	"github.com/hitoshi/logimind/internal/report"
	"github.com/hitoshi/logimind/internal/scheme"
	"github.com/hitoshi/logimind/internal/settings"
	"github.com/hitoshi/logimind/internal/store"
	"github.com/hitoshi/logimind/internal/ui"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// 端末はTUIが占有するため、ログはwriterへ書く。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// ログファイルを開き、全依存関係をワイヤリングし、TUIプログラムを起動する。
// プログラム終了時に購読とバックグラウンド処理を解放する。
func Run() error {
	// 1. 設定の読み込み。ログファイルのパスはConfigが決めるため、
	//    それまでのログは破棄し、パスが決まり次第ファイルへ切り替える
	cfg, err := Init(io.Discard)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	logFile, err := logger.OpenLogFile(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger.SetupDefault(logFile)

	slog.Info("starting application",
		slog.String("identity_url", cfg.IdentityURL),
		slog.String("backend_url", cfg.BackendURL),
		slog.String("store_path", cfg.StorePath),
	)

	// 2. ローカルストアのオープン
	kv, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}

	// 3. HTTPクライアント（Identity・バックエンドで共有）
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// 4. IDサービスクライアント
	identityClient := identity.NewClient(httpClient, kv, slog.Default(), identity.ClientConfig{
		BaseURL:       cfg.IdentityURL,
		AnonKey:       cfg.IdentityAnonKey,
		RefreshMargin: cfg.RefreshMargin,
	})
	defer identityClient.Close()

	// 5. 認証状態
	authState := auth.NewState(identityClient, slog.Default())
	defer authState.Close()

	// 6. OS配色シグナルの監視
	monitor, err := scheme.NewMonitor(cfg.SchemeFile, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to start scheme monitor: %w", err)
	}
	defer monitor.Close()

	// 7. 翻訳カタログ
	catalog, err := i18n.NewCatalog(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load locale catalogs: %w", err)
	}

	// 8. テーマコントローラと設定サービス
	// RelayはTUIプログラム起動前の適用をキューに溜め、受信開始後に流し込む
	relay := ui.NewRelay()
	defer relay.Close()
	themeCtl := settings.NewThemeController(monitor, relay)
	settingsSvc := settings.NewService(kv, catalog, themeCtl, slog.Default())
	defer settingsSvc.Close()

	// 9. バックエンドAPIクライアント
	apiClient := api.NewClient(httpClient, slog.Default(), api.ClientConfig{
		BaseURL:   cfg.BackendURL,
		RateLimit: cfg.APIRateLimit,
		Burst:     cfg.APIBurst,
	})

	// 10. TUIプログラムの構築と起動
	model := ui.New(ui.Deps{
		Auth:            authState,
		Settings:        settingsSvc,
		Data:            apiClient,
		Texts:           catalog,
		Report:          report.NewRenderer(),
		Logger:          slog.Default(),
		RefreshInterval: cfg.RefreshInterval,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	// program.Sendはプログラムが受信を始めるまでブロックするが、
	// Relayの配送は専用ゴルーチンで行われるためここではブロックしない
	relay.Attach(program.Send)
	unsubscribeAuth := authState.Subscribe(relay.AuthChanged)
	defer unsubscribeAuth()
	unsubscribeSettings := settingsSvc.Subscribe(relay.SettingsChanged)
	defer unsubscribeSettings()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program exited with error: %w", err)
	}

	slog.Info("application stopped")
	return nil
}
