// Package identity はリモートIDサービスのクライアントを提供する。
// セッションの復元・発行・破棄と、セッション変更イベントの配送を担う。
// リフレッシュトークンはローカルストアに永続化し、再起動後のセッション復元に使う。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/logimind/internal/model"
	"github.com/hitoshi/logimind/internal/store"
)

// storeKeySession はローカルストアにセッションを保存するキー。
const storeKeySession = "logimind-auth"

// EventType はセッション変更イベントの種別を表す。
type EventType string

const (
	// EventInitialSession は起動時のセッション復元結果を示す。
	EventInitialSession EventType = "INITIAL_SESSION"
	// EventSignedIn はログイン成功を示す。
	EventSignedIn EventType = "SIGNED_IN"
	// EventSignedOut はログアウトまたはセッション失効を示す。
	EventSignedOut EventType = "SIGNED_OUT"
	// EventTokenRefreshed はアクセストークンの更新を示す。
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Listener はセッション変更イベントを受け取るコールバック。
// sessionはログアウト時にはnilになる。
type Listener func(event EventType, session *model.Session)

// Service はIDサービスのインターフェースを定義する。
// 認証状態の管理側はこの抽象にのみ依存する。
type Service interface {
	// GetCurrentSession は既存の有効なセッションを復元する。
	// セッションが存在しない場合は(nil, nil)を返す。
	GetCurrentSession(ctx context.Context) (*model.Session, error)
	// SignInWithPassword はメールアドレスとパスワードでログインする。
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp は新しいアカウントを作成する。
	SignUp(ctx context.Context, email, password string) (*model.Session, error)
	// SignOut は現在のセッションを破棄する。セッションがない場合は何もしない。
	SignOut(ctx context.Context) error
	// Subscribe はセッション変更イベントのリスナーを登録し、解除関数を返す。
	Subscribe(fn Listener) (unsubscribe func())
}

// ClientConfig はClientの設定を保持する。
type ClientConfig struct {
	BaseURL       string
	AnonKey       string
	RefreshMargin time.Duration // 有効期限のこの時間前にトークンを更新する
}

// Client はGoTrue互換のIDサービスに対するServiceの実装。
// セッション変更イベントは操作の発生順に直列化して配送する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	kv         store.KV
	config     ClientConfig

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]Listener
	nextID    int
	refresh   *time.Timer
	closed    bool

	// emitMu はイベント配送を直列化し、発生順の到達を保証する
	emitMu sync.Mutex
}

var _ Service = (*Client)(nil)

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, kv store.KV, logger *slog.Logger, config ClientConfig) *Client {
	if config.RefreshMargin <= 0 {
		config.RefreshMargin = 60 * time.Second
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		kv:         kv,
		config:     config,
		listeners:  make(map[int]Listener),
	}
}

// GetCurrentSession はローカルストアからセッションを復元する。
// 有効期限内のセッションはそのまま使い、期限切れはリフレッシュトークンで更新する。
// 復元結果はEventInitialSessionとして通知される（セッションなしの場合はnil）。
func (c *Client) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	persisted, err := c.loadPersisted()
	if err != nil {
		c.logger.Warn("failed to load persisted session",
			slog.String("error", err.Error()),
		)
		c.emit(EventInitialSession, nil)
		return nil, nil
	}
	if persisted == nil {
		c.emit(EventInitialSession, nil)
		return nil, nil
	}

	session := persisted
	if persisted.Expired(time.Now().Add(c.config.RefreshMargin)) {
		// 期限切れ間近ならリフレッシュトークンで更新を試みる
		session, err = c.exchangeRefreshToken(ctx, persisted.RefreshToken)
		if err != nil {
			c.logger.Info("session restore failed, treating as signed out",
				slog.String("error", err.Error()),
			)
			c.clearPersisted()
			c.emit(EventInitialSession, nil)
			return nil, err
		}
	}

	c.adoptSession(session)
	c.emit(EventInitialSession, session)
	return session, nil
}

// SignInWithPassword はパスワード認証でログインし、セッションを発行する。
// 成功時はEventSignedInを通知する。失敗時は現在のセッションを変更しない。
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	session, err := c.tokenRequest(ctx, "/auth/v1/token?grant_type=password", credentialsRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	c.adoptSession(session)
	c.emit(EventSignedIn, session)
	return session, nil
}

// SignUp は新しいアカウントを作成し、セッションを発行する。
// 成功時はEventSignedInを通知する。
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	session, err := c.tokenRequest(ctx, "/auth/v1/signup", credentialsRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	c.adoptSession(session)
	c.emit(EventSignedIn, session)
	return session, nil
}

// SignOut はIDサービスにセッションの破棄を要求し、ローカル状態を消去する。
// リモート呼び出しの失敗はログに残すだけで、ローカルの消去は必ず行う。
// セッションがない状態での呼び出しは何もしない。
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil
	}

	if err := c.revokeRemote(ctx, session.AccessToken); err != nil {
		c.logger.Warn("remote sign-out failed, clearing local session anyway",
			slog.String("error", err.Error()),
		)
	}

	c.adoptSession(nil)
	c.clearPersisted()
	c.emit(EventSignedOut, nil)
	return nil
}

// Subscribe はセッション変更イベントのリスナーを登録する。
// 返される解除関数は何度呼んでも安全で、2回目以降は何もしない。
func (c *Client) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

// Close は自動トークン更新を停止し、全リスナーを解放する。
// Close後に完了した処理の結果は破棄される。
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
	c.listeners = make(map[int]Listener)
}

// --- 内部処理 ---

// adoptSession は現在のセッションを置き換え、永続化と自動更新の再スケジュールを行う。
func (c *Client) adoptSession(session *model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = session

	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}

	if session == nil || c.closed {
		return
	}

	if err := c.persistLocked(session); err != nil {
		c.logger.Warn("failed to persist session",
			slog.String("error", err.Error()),
		)
	}

	// 有効期限の手前で自動更新を仕掛ける
	if !session.ExpiresAt.IsZero() {
		wait := time.Until(session.ExpiresAt.Add(-c.config.RefreshMargin))
		if wait < time.Second {
			wait = time.Second
		}
		c.refresh = time.AfterFunc(wait, c.autoRefresh)
	}
}

// autoRefresh はバックグラウンドでアクセストークンを更新する。
// 更新に失敗した場合はセッション失効として扱い、EventSignedOutを通知する。
func (c *Client) autoRefresh() {
	c.mu.Lock()
	if c.closed || c.session == nil {
		c.mu.Unlock()
		return
	}
	refreshToken := c.session.RefreshToken
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := c.exchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("token refresh failed, signing out",
			slog.String("error", err.Error()),
		)
		c.adoptSession(nil)
		c.clearPersisted()
		c.emit(EventSignedOut, nil)
		return
	}

	c.adoptSession(session)
	c.emit(EventTokenRefreshed, session)
}

// exchangeRefreshToken はリフレッシュトークンを新しいセッションに交換する。
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*model.Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/token?grant_type=refresh_token", refreshRequest{
		RefreshToken: refreshToken,
	})
}

// emit は登録済みの全リスナーにイベントを配送する。
// emitMuにより配送順は発生順と一致する。
func (c *Client) emit(event EventType, session *model.Session) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// --- ワイヤフォーマット ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse はトークンエンドポイントの成功レスポンス。
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"user"`
}

// errorResponse はIDサービスのエラーレスポンス。
// error_description形式とmsg形式の両方に対応する。
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

// message は人間が読めるエラー原因を返す。
func (e *errorResponse) message() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Error
}

// tokenRequest はセッションを発行するエンドポイントを呼び出す共通処理。
func (c *Client) tokenRequest(ctx context.Context, path string, body any) (*model.Session, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.config.AnonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewBackendUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(respBody, &errResp)
		return nil, model.NewInvalidCredentialsError(errResp.message())
	}

	var sr sessionResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}

	return &model.Session{
		AccessToken:  sr.AccessToken,
		RefreshToken: sr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(sr.ExpiresIn) * time.Second),
		User: model.User{
			ID:        sr.User.ID,
			Email:     sr.User.Email,
			CreatedAt: sr.User.CreatedAt,
		},
	}, nil
}

// revokeRemote はIDサービス側のセッションを破棄する。
func (c *Client) revokeRemote(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.config.AnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// --- 永続化 ---

// persistedSession はローカルストアに保存するセッションのレイアウト。
type persistedSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// persistLocked はセッションをローカルストアに保存する。
// 呼び出し元がmuを保持していること。
func (c *Client) persistLocked(session *model.Session) error {
	raw, err := json.Marshal(persistedSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		UserID:       session.User.ID,
		Email:        session.User.Email,
		CreatedAt:    session.User.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return c.kv.Set(storeKeySession, string(raw))
}

// loadPersisted はローカルストアからセッションを読み出す。
// 保存されていない場合は(nil, nil)を返す。
func (c *Client) loadPersisted() (*model.Session, error) {
	raw, ok := c.kv.Get(storeKeySession)
	if !ok {
		return nil, nil
	}

	var ps persistedSession
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		return nil, fmt.Errorf("failed to parse persisted session: %w", err)
	}
	if ps.RefreshToken == "" {
		return nil, nil
	}

	return &model.Session{
		AccessToken:  ps.AccessToken,
		RefreshToken: ps.RefreshToken,
		ExpiresAt:    ps.ExpiresAt,
		User: model.User{
			ID:        ps.UserID,
			Email:     ps.Email,
			CreatedAt: ps.CreatedAt,
		},
	}, nil
}

// clearPersisted はローカルストアからセッションを消去する。
func (c *Client) clearPersisted() {
	if err := c.kv.Delete(storeKeySession); err != nil {
		c.logger.Warn("failed to clear persisted session",
			slog.String("error", err.Error()),
		)
	}
}
