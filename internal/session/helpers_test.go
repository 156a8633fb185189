package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/repository"
)

const (
	testUser     = "editor"
	testPassword = "correct-horse"
	testCookie   = "SSESS0123"
)

// fakeDrupal はDrupalのセッション関連エンドポイントを模したテスト用サーバー。
type fakeDrupal struct {
	server *httptest.Server

	tokenCalls  atomic.Int32
	loginCalls  atomic.Int32
	logoutCalls atomic.Int32

	mu               sync.Mutex
	loginStatus      int
	tokenStatus      int
	logoutStatus     int
	lastLoginToken   string
	lastLogoutQuery  string
	lastLogoutCookie string
	// loginHook はログイン応答の直前に呼ばれる（ログイン中の割り込みの再現用）
	loginHook func()
}

func newFakeDrupal(t *testing.T) *fakeDrupal {
	t.Helper()
	f := &fakeDrupal{
		loginStatus:  http.StatusOK,
		tokenStatus:  http.StatusOK,
		logoutStatus: http.StatusNoContent,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		f.mu.Lock()
		status := f.tokenStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "csrf-token-"+strconv.Itoa(int(n)))
	})
	mux.HandleFunc("POST /user/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		var body struct {
			Name string `json:"name"`
			Pass string `json:"pass"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.lastLoginToken = r.Header.Get("X-CSRF-Token")
		status := f.loginStatus
		hook := f.loginHook
		f.mu.Unlock()

		if hook != nil {
			hook()
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if body.Name != testUser || body.Pass != testPassword {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"message":"Sorry, unrecognized username or password."}`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testCookie, Value: "session-value", Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"current_user":{"uid":"7","name":"editor"},"csrf_token":"login-csrf","logout_token":"logout-tok"}`)
	})
	mux.HandleFunc("POST /user/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		f.mu.Lock()
		f.lastLogoutQuery = r.URL.RawQuery
		if ck, err := r.Cookie(testCookie); err == nil {
			f.lastLogoutCookie = ck.Value
		}
		status := f.logoutStatus
		f.mu.Unlock()
		w.WriteHeader(status)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDrupal) set(fn func(f *fakeDrupal)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeDrupal) loginToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLoginToken
}

func (f *fakeDrupal) logoutQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLogoutQuery
}

func (f *fakeDrupal) logoutCookie() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLogoutCookie
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient はテスト用のClientを生成する。
// トランスポートはテストごとに分け、終了時にアイドル接続を閉じる。
func newTestClient(t *testing.T, baseURL string, store repository.KeyValueStore) *Client {
	t.Helper()
	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)

	c, err := NewClient(&http.Client{Transport: tr, Timeout: 2 * time.Second}, store, Config{
		BaseURL:     baseURL,
		MaxBodySize: 1 << 20,
		TTL:         time.Hour,
	}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewClient returned unexpected error: %v", err)
	}
	return c
}

// fixedClock は手動で進められる時計。
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
