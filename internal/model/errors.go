// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSignupFailed       = "SIGNUP_FAILED"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeInvalidSetting     = "INVALID_SETTING"
	ErrCodeUnknownSettingKey  = "UNKNOWN_SETTING_KEY"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeStoreWriteFailed   = "STORE_WRITE_FAILED"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// messageにはIDサービスが返した原因説明を渡す。
func NewInvalidCredentialsError(message string) *APIError {
	if message == "" {
		message = "メールアドレスまたはパスワードが正しくありません。"
	}
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  message,
		Category: "auth",
		Action:   "入力内容を確認して、もう一度お試しください。",
	}
}

// NewSignupFailedError はアカウント作成失敗エラーを生成する。
func NewSignupFailedError(message string) *APIError {
	if message == "" {
		message = "アカウントの作成に失敗しました。"
	}
	return &APIError{
		Code:     ErrCodeSignupFailed,
		Message:  message,
		Category: "auth",
		Action:   "メールアドレスの形式とパスワードの長さを確認してください。",
	}
}

// NewSessionExpiredError はセッション期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidSettingError は設定値が定義域外の場合のエラーを生成する。
func NewInvalidSettingError(key string, value any) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSetting,
		Message:  fmt.Sprintf("設定 %s に無効な値が指定されました: %v", key, value),
		Category: "validation",
		Action:   "選択肢の中から値を指定してください。",
	}
}

// NewUnknownSettingKeyError は存在しない設定キーが指定された場合のエラーを生成する。
func NewUnknownSettingKeyError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownSettingKey,
		Message:  fmt.Sprintf("未知の設定キーです: %s", key),
		Category: "validation",
		Action:   "設定キーの綴りを確認してください。",
	}
}

// NewBackendUnavailableError はバックエンドAPI呼び出し失敗エラーを生成する。
func NewBackendUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnavailable,
		Message:  fmt.Sprintf("バックエンドAPIへの接続に失敗しました: %s", reason),
		Category: "network",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewStoreWriteFailedError は設定ストアへの書き込み失敗エラーを生成する。
func NewStoreWriteFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreWriteFailed,
		Message:  fmt.Sprintf("設定の保存に失敗しました: %s", reason),
		Category: "system",
		Action:   "ディスクの空き容量と書き込み権限を確認してください。",
	}
}
