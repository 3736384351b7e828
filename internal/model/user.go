// Package model はドメインモデルを定義する。
package model

import "time"

// User は認証済みユーザーを表す。
// IDサービスが発行する不透明な識別子とメールアドレスを持つ。
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Session はIDサービスが発行したログインセッションを表す。
// アクセストークンとリフレッシュトークンのペア、および有効期限を持つ。
// Sessionがnilであることは「未ログイン」を意味する。
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired はセッションの有効期限が切れているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
