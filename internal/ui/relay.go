package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hitoshi/logimind/internal/auth"
	"github.com/hitoshi/logimind/internal/model"
	"github.com/hitoshi/logimind/internal/settings"
)

// AuthChangedMsg は認証状態の変更を伝えるメッセージ。
type AuthChangedMsg struct {
	Snapshot auth.Snapshot
}

// SettingsChangedMsg は設定の変更を伝えるメッセージ。
type SettingsChangedMsg struct {
	Settings model.Settings
}

// DarkChangedMsg は適用すべき配色（ダークかどうか）の変更を伝えるメッセージ。
type DarkChangedMsg struct {
	Dark bool
}

// Relay は状態保持層からの非同期通知をbubbleteaメッセージに変換して
// プログラムへ送る。settings.Applierを実装し、テーマコントローラの適用先になる。
//
// tea.Program.Sendはプログラムが受信を始めるまでブロックするため、
// 送信は専用ゴルーチンがキュー順に直列化して行う。通知側とAttachの
// 呼び出し側は決してブロックしない。
type Relay struct {
	mu      sync.Mutex
	cond    *sync.Cond
	send    func(tea.Msg)
	pending []tea.Msg
	closed  bool
}

var _ settings.Applier = (*Relay)(nil)

// NewRelay はRelayを生成する。
func NewRelay() *Relay {
	r := &Relay{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Attach は送信先を接続し、配送ゴルーチンを起動する。
// 蓄積済みのメッセージは通知された順に送られる。ブロックしない。
func (r *Relay) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
	r.cond.Signal()

	go r.dispatch()
}

// Close は配送ゴルーチンを停止する。未配送のメッセージは破棄される。
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// SetDark は配色の変更をプログラムに伝える。
func (r *Relay) SetDark(dark bool) {
	r.post(DarkChangedMsg{Dark: dark})
}

// AuthChanged はauth.State.Subscribeのコールバックとして登録する。
func (r *Relay) AuthChanged(snapshot auth.Snapshot) {
	r.post(AuthChangedMsg{Snapshot: snapshot})
}

// SettingsChanged はsettings.Service.Subscribeのコールバックとして登録する。
func (r *Relay) SettingsChanged(s model.Settings) {
	r.post(SettingsChangedMsg{Settings: s})
}

func (r *Relay) post(msg tea.Msg) {
	r.mu.Lock()
	r.pending = append(r.pending, msg)
	r.mu.Unlock()
	r.cond.Signal()
}

// dispatch はキューのメッセージを通知順に送る。
// sendのブロックはこのゴルーチンだけに閉じる。
func (r *Relay) dispatch() {
	for {
		r.mu.Lock()
		for len(r.pending) == 0 && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		batch := r.pending
		r.pending = nil
		send := r.send
		r.mu.Unlock()

		for _, msg := range batch {
			send(msg)
		}
	}
}
