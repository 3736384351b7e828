// Package auth は認証状態の単一情報源を提供する。
// 現在のIdentity（ユーザーとセッション）を保持し、IDサービスに対する
// ログイン・サインアップ・ログアウト操作を仲介する。
package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/logimind/internal/identity"
	"github.com/hitoshi/logimind/internal/model"
)

// Status は認証状態マシンの状態を表す。
// Unresolved → Resolving → {Authenticated, Anonymous} と遷移し、
// 以降はログイン・ログアウト・外部イベントで Authenticated ⇄ Anonymous を往復する。
type Status string

const (
	// StatusUnresolved は初期セッション解決が未開始であることを示す。
	StatusUnresolved Status = "unresolved"
	// StatusResolving は初期セッション解決中であることを示す。起動時に一度だけ入る。
	StatusResolving Status = "resolving"
	// StatusAuthenticated はログイン済みであることを示す。
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous は未ログインであることを示す。
	StatusAnonymous Status = "anonymous"
)

// Snapshot は認証状態のある時点の読み取り専用コピーを表す。
// Loadingがtrueの間は、Userの不在を「未ログイン」と解釈してはならない。
type Snapshot struct {
	User    *model.User
	Session *model.Session
	Loading bool
}

// State は認証状態を保持する。Identityの所有者はStateのみであり、
// 他のコンポーネントはSnapshot経由で読み取るだけで直接変更しない。
type State struct {
	svc    identity.Service
	logger *slog.Logger

	mu          sync.Mutex
	user        *model.User
	session     *model.Session
	status      Status
	subscribers map[int]func(Snapshot)
	nextID      int

	unsubscribe func()
}

// NewState はStateを生成し、IDサービスのセッション変更イベントの購読を開始する。
// 購読はClose()が呼ばれるまで維持される。
func NewState(svc identity.Service, logger *slog.Logger) *State {
	s := &State{
		svc:         svc,
		logger:      logger,
		status:      StatusUnresolved,
		subscribers: make(map[int]func(Snapshot)),
	}
	s.unsubscribe = svc.Subscribe(s.handleSessionEvent)
	return s
}

// ResolveInitialSession は起動時に一度だけ呼び、既存セッションの復元を試みる。
// 復元の失敗は「セッションなし」と同義に扱い、エラーは呼び出し元に伝えない。
// 完了後はLoadingがfalseになる。
func (s *State) ResolveInitialSession(ctx context.Context) {
	s.mu.Lock()
	if s.status != StatusUnresolved {
		s.mu.Unlock()
		return
	}
	s.status = StatusResolving
	s.mu.Unlock()

	session, err := s.svc.GetCurrentSession(ctx)
	if err != nil {
		s.logger.Info("initial session resolution failed, continuing as anonymous",
			slog.String("error", err.Error()),
		)
		session = nil
	}

	s.mu.Lock()
	s.setSessionLocked(session)
	if s.session != nil {
		s.status = StatusAuthenticated
	} else {
		s.status = StatusAnonymous
	}
	s.mu.Unlock()

	s.notify()
}

// Login はパスワード認証でログインする。
// 成功時はnilを返し、Identityの更新は購読中のイベント経由で行われる。
// 失敗時は人間が読めるエラーを返し、Identityは変更されない。
func (s *State) Login(ctx context.Context, email, password string) error {
	if _, err := s.svc.SignInWithPassword(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// Signup は新しいアカウントを作成する。契約はLoginと同じ。
func (s *State) Signup(ctx context.Context, email, password string) error {
	if _, err := s.svc.SignUp(ctx, email, password); err != nil {
		return err
	}
	return nil
}

// Logout はセッションの終了をIDサービスに要求する。
// セッションがない状態での呼び出しは何もしない（冪等）。
func (s *State) Logout(ctx context.Context) error {
	return s.svc.SignOut(ctx)
}

// Snapshot は現在の認証状態のコピーを返す。
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status は状態マシンの現在状態を返す。
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe は認証状態の変更通知を受け取るコールバックを登録し、解除関数を返す。
// 通知はイベントの受信順に直列に配送される。
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
		})
	}
}

// Close はIDサービスの購読を解除し、全サブスクライバを解放する。
// 実行中のリモート呼び出しは中断されず、完了後の結果は破棄される。
func (s *State) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	s.subscribers = make(map[int]func(Snapshot))
	s.mu.Unlock()
}

// handleSessionEvent はIDサービスからのセッション変更を受信順に反映する。
func (s *State) handleSessionEvent(event identity.EventType, session *model.Session) {
	s.mu.Lock()
	s.setSessionLocked(session)
	// 初期解決中のイベントは状態遷移を確定させない（ResolveInitialSessionが確定させる）
	if s.status == StatusAuthenticated || s.status == StatusAnonymous {
		if s.session != nil {
			s.status = StatusAuthenticated
		} else {
			s.status = StatusAnonymous
		}
	}
	s.mu.Unlock()

	s.logger.Info("session event applied",
		slog.String("event", string(event)),
		slog.Bool("authenticated", session != nil),
	)

	s.notify()
}

// setSessionLocked はIdentityを置き換える。呼び出し元がmuを保持していること。
func (s *State) setSessionLocked(session *model.Session) {
	s.session = session
	if session != nil {
		u := session.User
		s.user = &u
	} else {
		s.user = nil
	}
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		User:    s.user,
		Session: s.session,
		Loading: s.status == StatusUnresolved || s.status == StatusResolving,
	}
}

// notify は登録済みの全サブスクライバに現在のスナップショットを配送する。
func (s *State) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
