package settings

import (
	"sync"

	"github.com/hitoshi/logimind/internal/model"
)

// SchemeSignal はOSの配色設定を表す外部シグナル。
// 現在値の問い合わせと変更通知の購読を提供する。
type SchemeSignal interface {
	// Dark はOSがダーク配色を選好しているかを返す。
	Dark() bool
	// Subscribe は配色変更の通知を購読し、解除関数を返す。
	Subscribe(fn func(dark bool)) (unsubscribe func())
}

// Applier はテーマの適用先。描画側のダークフラグを1つだけ切り替える。
// ブラウザにおけるドキュメントルート要素のクラス切り替えに相当する。
type Applier interface {
	SetDark(dark bool)
}

// ThemeController はテーマ適用の状態マシンを実装する。
// Fixed（light/dark固定）とTrackingSystem（OS追従）の2状態を持ち、
// OSシグナルの購読はTrackingSystem状態の間だけ維持される。
type ThemeController struct {
	signal  SchemeSignal
	applier Applier

	mu       sync.Mutex
	mode     model.Theme
	tracking func() // TrackingSystem状態での購読解除関数。Fixed状態ではnil。
}

// NewThemeController はThemeControllerを生成する。適用はまだ行わない。
func NewThemeController(signal SchemeSignal, applier Applier) *ThemeController {
	return &ThemeController{
		signal:  signal,
		applier: applier,
	}
}

// Apply はテーマを適用する。
// systemの場合は呼び出し時点のOS配色を読み取り、以後の変更に追従する。
// 明示値の場合はその値を直接適用し、OS追従を解除する。
func (c *ThemeController) Apply(theme model.Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = theme

	if theme == model.ThemeSystem {
		c.applier.SetDark(c.signal.Dark())
		if c.tracking == nil {
			c.tracking = c.signal.Subscribe(c.onSchemeChange)
		}
		return
	}

	if c.tracking != nil {
		c.tracking()
		c.tracking = nil
	}
	c.applier.SetDark(theme == model.ThemeDark)
}

// onSchemeChange はOS配色の変更をテーマに反映する。
// system以外に切り替わった後に届いた通知は無視する。
func (c *ThemeController) onSchemeChange(dark bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != model.ThemeSystem {
		return
	}
	c.applier.SetDark(dark)
}

// TrackingSystem はOS追従状態にあるかを返す。
func (c *ThemeController) TrackingSystem() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracking != nil
}

// Close はOSシグナルの購読を解除する。
func (c *ThemeController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tracking != nil {
		c.tracking()
		c.tracking = nil
	}
}
