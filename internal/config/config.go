package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Identity service
	IdentityURL     string
	IdentityAnonKey string

	// Backend API
	BackendURL string

	// Local store
	StorePath string

	// OS配色シグナル（prefers-color-schemeをダンプしたファイル）
	// 未設定の場合はライト固定として扱う。
	SchemeFile string

	// HTTP
	HTTPTimeout time.Duration

	// Session
	RefreshMargin time.Duration // 有効期限のこの時間前にトークンを更新する

	// Backend API rate limit
	APIRateLimit int // req/min
	APIBurst     int

	// Dashboard
	RefreshInterval time.Duration

	// Logging
	LogPath string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.IdentityURL = os.Getenv("IDENTITY_URL")
	if cfg.IdentityURL == "" {
		missing = append(missing, "IDENTITY_URL")
	}

	cfg.IdentityAnonKey = os.Getenv("IDENTITY_ANON_KEY")
	if cfg.IdentityAnonKey == "" {
		missing = append(missing, "IDENTITY_ANON_KEY")
	}

	cfg.BackendURL = os.Getenv("BACKEND_URL")
	if cfg.BackendURL == "" {
		missing = append(missing, "BACKEND_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StorePath = getEnvString("STORE_PATH", filepath.Join(defaultConfigDir(), "store.json"))
	cfg.SchemeFile = getEnvString("SCHEME_FILE", "")
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.RefreshMargin = getEnvDuration("REFRESH_MARGIN", 60*time.Second)
	cfg.APIRateLimit = getEnvInt("API_RATE_LIMIT", 60)
	cfg.APIBurst = getEnvInt("API_BURST", 10)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 30*time.Second)
	cfg.LogPath = getEnvString("LOG_PATH", filepath.Join(defaultConfigDir(), "logimind.log"))

	return cfg, nil
}

// defaultConfigDir はローカルファイルの既定の配置ディレクトリを返す。
// ユーザー設定ディレクトリが特定できない場合はカレントディレクトリ配下を使う。
func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".logimind"
	}
	return filepath.Join(base, "logimind")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
