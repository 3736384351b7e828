// Package guard は保護対象ビューの描画を認証状態で制御する。
// 未認証の訪問者は描画前にログイン画面へ誘導される。
package guard

import (
	"github.com/hitoshi/logimind/internal/auth"
)

// LoginPath は未認証時の誘導先。
const LoginPath = "/login"

// Navigator は命令的な画面遷移のインターフェース。
type Navigator interface {
	NavigateTo(path string)
}

// AuthSource は認証状態の読み取りインターフェース。
// auth.Stateの部分集合として定義する。
type AuthSource interface {
	Snapshot() auth.Snapshot
}

// Decision は保護対象サブツリーの描画判断を表す。
type Decision int

const (
	// DecisionPending は初期セッション解決中であることを示す。何も描画しない。
	DecisionPending Decision = iota
	// DecisionRedirect は未認証でログイン画面へ遷移済みであることを示す。何も描画しない。
	DecisionRedirect
	// DecisionAllow は認証済みでサブツリーをそのまま描画してよいことを示す。
	DecisionAllow
)

// Guard は認証状態を評価し、保護対象ビューの描画可否を判断する。
// 遷移は副作用であり、未認証への遷移1回につきちょうど1度だけ実行される。
type Guard struct {
	source AuthSource
	nav    Navigator

	redirected bool
}

// New はGuardを生成する。
func New(source AuthSource, nav Navigator) *Guard {
	return &Guard{
		source: source,
		nav:    nav,
	}
}

// Evaluate は現在の認証状態から描画判断を返す。
// 認証状態が変わるたびに呼び直すこと。
// 解決中はIdentityの不在を「未ログイン」と解釈せず、遷移もしない。
func (g *Guard) Evaluate() Decision {
	snap := g.source.Snapshot()

	if snap.Loading {
		return DecisionPending
	}

	if snap.User == nil {
		if !g.redirected {
			g.redirected = true
			g.nav.NavigateTo(LoginPath)
		}
		return DecisionRedirect
	}

	g.redirected = false
	return DecisionAllow
}
