package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/logimind/internal/model"
	"github.com/hitoshi/logimind/internal/store"
)

// --- モック定義 ---

// mockKV はインメモリのKVストア。
type mockKV struct {
	mu    sync.Mutex
	data  map[string]string
	setFn func(key, value string) error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string]string)}
}

func (m *mockKV) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockKV) Set(key, value string) error {
	if m.setFn != nil {
		return m.setFn(key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var _ store.KV = (*mockKV)(nil)

// recorder はイベントを受信順に記録する。
type recorder struct {
	mu     sync.Mutex
	events []EventType
}

func (r *recorder) listen(event EventType, _ *model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	copy(out, r.events)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newIdentityServer はGoTrue互換のフェイクIDサービスを起動する。
// password123のみを正しいパスワードとして受け付ける。
func newIdentityServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "password123" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "invalid_grant",
					"error_description": "Invalid login credentials",
				})
				return
			}
			writeSession(w, req.Email, "access-1", "refresh-1")
		case r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "refresh_token":
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.RefreshToken == "" || req.RefreshToken == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"msg": "refresh token revoked"})
				return
			}
			writeSession(w, "restored@example.com", "access-2", "refresh-2")
		case r.URL.Path == "/auth/v1/signup":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if len(req.Password) < 6 {
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]string{"msg": "Password should be at least 6 characters"})
				return
			}
			writeSession(w, req.Email, "access-new", "refresh-new")
		case r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func writeSession(w http.ResponseWriter, email, access, refresh string) {
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    3600,
		"user": map[string]any{
			"id":         "user-123",
			"email":      email,
			"created_at": time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		},
	})
}

func newTestClient(t *testing.T, baseURL string, kv store.KV) *Client {
	t.Helper()
	c := NewClient(&http.Client{Timeout: 5 * time.Second}, kv, testLogger(), ClientConfig{
		BaseURL:       baseURL,
		AnonKey:       "anon-test",
		RefreshMargin: time.Minute,
	})
	t.Cleanup(c.Close)
	return c
}

// --- テスト ---

func TestSignInWithPassword_ValidCredentials_ReturnsSessionAndEmitsSignedIn(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	kv := newMockKV()
	c := newTestClient(t, srv.URL, kv)

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	session, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	if session == nil {
		t.Fatal("expected non-nil session")
	}
	if session.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want %q", session.AccessToken, "access-1")
	}
	if session.User.Email != "user@example.com" {
		t.Errorf("User.Email = %q, want %q", session.User.Email, "user@example.com")
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("ExpiresAt should be in the future")
	}

	events := rec.all()
	if len(events) != 1 || events[0] != EventSignedIn {
		t.Errorf("events = %v, want [SIGNED_IN]", events)
	}

	// セッションがストアに永続化されること
	if _, ok := kv.Get("logimind-auth"); !ok {
		t.Error("expected session to be persisted")
	}
}

func TestSignInWithPassword_WrongPassword_ReturnsReadableErrorWithoutEvent(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	session, err := c.SignInWithPassword(context.Background(), "user@example.com", "wrongpassword")
	if err == nil {
		t.Fatal("expected error for wrong password")
	}
	if session != nil {
		t.Error("expected nil session on failure")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Message != "Invalid login credentials" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "Invalid login credentials")
	}

	if len(rec.all()) != 0 {
		t.Errorf("expected no events on failed login, got %v", rec.all())
	}
}

func TestSignInWithPassword_WrongThenCorrect_SecondAttemptSucceeds(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	if _, err := c.SignInWithPassword(context.Background(), "user@example.com", "wrongpassword"); err == nil {
		t.Fatal("expected error for wrong password")
	}

	session, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123")
	if err != nil {
		t.Fatalf("second SignInWithPassword() error = %v", err)
	}
	if session == nil {
		t.Fatal("expected session after correct credentials")
	}
}

func TestSignUp_ShortPassword_ReturnsServiceMessage(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	_, err := c.SignUp(context.Background(), "new@example.com", "abc")
	if err == nil {
		t.Fatal("expected error for short password")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Message != "Password should be at least 6 characters" {
		t.Errorf("Message = %q, want service-provided message", apiErr.Message)
	}
}

func TestSignInWithPassword_ServerUnreachable_ReturnsNetworkError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", newMockKV())

	_, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Category != "network" {
		t.Errorf("Category = %q, want %q", apiErr.Category, "network")
	}
}

func TestGetCurrentSession_NoPersistedSession_ReturnsNilAndEmitsInitial(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	session, err := c.GetCurrentSession(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSession() error = %v", err)
	}
	if session != nil {
		t.Error("expected nil session without persisted state")
	}

	events := rec.all()
	if len(events) != 1 || events[0] != EventInitialSession {
		t.Errorf("events = %v, want [INITIAL_SESSION]", events)
	}
}

func persist(t *testing.T, kv store.KV, refreshToken string, expiresAt time.Time) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"access_token":  "persisted-access",
		"refresh_token": refreshToken,
		"expires_at":    expiresAt,
		"user_id":       "user-123",
		"email":         "restored@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set("logimind-auth", string(raw)); err != nil {
		t.Fatal(err)
	}
}

func TestGetCurrentSession_ValidPersistedSession_RestoresWithoutNetwork(t *testing.T) {
	// ネットワークアクセスが発生したらテストを失敗させる
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	kv := newMockKV()
	persist(t, kv, "refresh-valid", time.Now().Add(2*time.Hour))

	c := newTestClient(t, srv.URL, kv)

	session, err := c.GetCurrentSession(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSession() error = %v", err)
	}
	if session == nil {
		t.Fatal("expected restored session")
	}
	if session.AccessToken != "persisted-access" {
		t.Errorf("AccessToken = %q, want %q", session.AccessToken, "persisted-access")
	}
}

func TestGetCurrentSession_ExpiredSession_ExchangesRefreshToken(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	kv := newMockKV()
	persist(t, kv, "refresh-old", time.Now().Add(-time.Hour))

	c := newTestClient(t, srv.URL, kv)

	session, err := c.GetCurrentSession(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentSession() error = %v", err)
	}
	if session == nil {
		t.Fatal("expected refreshed session")
	}
	if session.AccessToken != "access-2" {
		t.Errorf("AccessToken = %q, want %q", session.AccessToken, "access-2")
	}
}

func TestGetCurrentSession_RevokedRefreshToken_ReturnsErrorAndClearsStore(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	kv := newMockKV()
	persist(t, kv, "revoked", time.Now().Add(-time.Hour))

	c := newTestClient(t, srv.URL, kv)

	session, err := c.GetCurrentSession(context.Background())
	if err == nil {
		t.Fatal("expected error for revoked refresh token")
	}
	if session != nil {
		t.Error("expected nil session")
	}

	if _, ok := kv.Get("logimind-auth"); ok {
		t.Error("expected persisted session to be cleared")
	}
}

func TestSignOut_NoSession_IsNoop(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v, want nil", err)
	}
	if len(rec.all()) != 0 {
		t.Errorf("expected no events, got %v", rec.all())
	}
}

func TestSignOut_WithSession_ClearsStateAndEmitsSignedOut(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	kv := newMockKV()
	c := newTestClient(t, srv.URL, kv)

	if _, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	events := rec.all()
	if len(events) != 1 || events[0] != EventSignedOut {
		t.Errorf("events = %v, want [SIGNED_OUT]", events)
	}
	if _, ok := kv.Get("logimind-auth"); ok {
		t.Error("expected persisted session to be cleared")
	}

	// 2回目の呼び出しは何もしない
	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("second SignOut() error = %v", err)
	}
	if len(rec.all()) != 1 {
		t.Errorf("expected no additional events, got %v", rec.all())
	}
}

func TestSignOut_RemoteFailure_StillClearsLocalSession(t *testing.T) {
	// logoutだけ失敗するサーバー
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeSession(w, "user@example.com", "access-1", "refresh-1")
	}))
	defer srv.Close()

	kv := newMockKV()
	c := newTestClient(t, srv.URL, kv)

	if _, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v, want nil despite remote failure", err)
	}
	if _, ok := kv.Get("logimind-auth"); ok {
		t.Error("expected persisted session to be cleared")
	}
}

func TestSubscribe_Unsubscribed_ReceivesNoFurtherEvents(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)

	if _, err := c.SignInWithPassword(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	unsub()
	// 解除は冪等であること
	unsub()

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	events := rec.all()
	if len(events) != 1 || events[0] != EventSignedIn {
		t.Errorf("events = %v, want only [SIGNED_IN]", events)
	}
}

func TestEmit_EventsArriveInOperationOrder(t *testing.T) {
	srv := newIdentityServer(t)
	defer srv.Close()

	c := newTestClient(t, srv.URL, newMockKV())

	rec := &recorder{}
	unsub := c.Subscribe(rec.listen)
	defer unsub()

	ctx := context.Background()
	if _, err := c.GetCurrentSession(ctx); err != nil {
		t.Fatalf("GetCurrentSession() error = %v", err)
	}
	if _, err := c.SignInWithPassword(ctx, "user@example.com", "password123"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	want := []EventType{EventInitialSession, EventSignedIn, EventSignedOut}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
