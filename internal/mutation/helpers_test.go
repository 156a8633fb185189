package mutation

import (
	"context"
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

	"github.com/hitoshi/cmsshowcase/internal/content"
	"github.com/hitoshi/cmsshowcase/internal/security"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNormalizer() *content.Normalizer {
	return content.NewNormalizer(security.NewHTMLSanitizer())
}

// mockSession はSessionのモック。
type mockSession struct {
	api               *upstream.Client
	isAuthenticatedFn func(ctx context.Context) bool
	freshTokenFn      func(ctx context.Context) (string, error)

	mu            sync.Mutex
	authenticated bool
	gen           uint64
	invalidated   int
	invalidGens   []uint64
	tokenCalls    int
}

func newMockSession(t *testing.T, baseURL string) *mockSession {
	t.Helper()
	return &mockSession{
		api:           upstream.NewClient(&http.Client{Timeout: 2 * time.Second}, "drupal", baseURL, 1<<20, nil, testLogger()),
		authenticated: true,
		gen:           1,
	}
}

func (m *mockSession) AuthenticatedGeneration(ctx context.Context) (uint64, bool) {
	if m.isAuthenticatedFn != nil {
		if !m.isAuthenticatedFn(ctx) {
			return 0, false
		}
		return 1, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticated {
		return 0, false
	}
	return m.gen, true
}

func (m *mockSession) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.AuthenticatedGeneration(ctx)
	return ok
}

func (m *mockSession) FreshToken(ctx context.Context) (string, error) {
	if m.freshTokenFn != nil {
		return m.freshTokenFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCalls++
	return "fresh-" + strconv.Itoa(m.tokenCalls), nil
}

func (m *mockSession) Invalidate(ctx context.Context, gen uint64, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
	m.invalidGens = append(m.invalidGens, gen)
	if gen != m.gen {
		return false
	}
	m.authenticated = false
	return true
}

func (m *mockSession) API() *upstream.Client {
	return m.api
}

// fakeArticles はDrupalの記事エンドポイントを模したテスト用サーバー。
// 作成・更新された記事はメモリに保持し、一覧と単一取得で返す。
type fakeArticles struct {
	server *httptest.Server
	calls  atomic.Int32

	mu         sync.Mutex
	articles   []content.DrupalNode
	nextID     int
	status     int    // 0以外なら変更系リクエストにこのステータスを返す
	errorBody  string // statusと一緒に返す本文
	lastMethod string
	lastToken  string
	lastType   string
	lastBody   map[string]any
	tokenSeq   int
}

func newFakeArticles(t *testing.T) *fakeArticles {
	t.Helper()
	f := &fakeArticles{nextID: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/token", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		f.tokenSeq++
		n := f.tokenSeq
		f.mu.Unlock()
		io.WriteString(w, "server-token-"+strconv.Itoa(n))
	})
	mux.HandleFunc("POST /user/login", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var body struct {
			Name string `json:"name"`
			Pass string `json:"pass"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Name != "editor" || body.Pass != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SSESS1", Value: "v", Path: "/"})
		io.WriteString(w, `{"current_user":{"uid":"2","name":"editor"},"logout_token":"lt"}`)
	})
	mux.HandleFunc("GET /jsonapi/node/article", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		doc := content.DrupalListDocument{Data: append([]content.DrupalNode{}, f.articles...)}
		f.mu.Unlock()
		writeJSONAPI(w, http.StatusOK, doc)
	})
	mux.HandleFunc("GET /jsonapi/node/article/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		node, ok := f.find(r.PathValue("id"))
		if !ok {
			writeJSONAPI(w, http.StatusNotFound, map[string]any{"errors": []map[string]string{{"status": "404", "title": "Not Found"}}})
			return
		}
		writeJSONAPI(w, http.StatusOK, content.DrupalSingleDocument{Data: &node})
	})
	mux.HandleFunc("POST /jsonapi/node/article", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		in, failed := f.record(w, r)
		if failed {
			return
		}
		f.mu.Lock()
		in.ID = "node-" + strconv.Itoa(f.nextID)
		f.nextID++
		in.Attributes.Created = "2024-02-01T09:00:00+00:00"
		f.articles = append(f.articles, in)
		f.mu.Unlock()
		writeJSONAPI(w, http.StatusCreated, content.DrupalSingleDocument{Data: &in})
	})
	mux.HandleFunc("PATCH /jsonapi/node/article/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		in, failed := f.record(w, r)
		if failed {
			return
		}
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.articles {
			if f.articles[i].ID == id {
				in.ID = id
				in.Attributes.Created = f.articles[i].Attributes.Created
				f.articles[i] = in
				writeJSONAPI(w, http.StatusOK, content.DrupalSingleDocument{Data: &in})
				return
			}
		}
		writeJSONAPI(w, http.StatusNotFound, map[string]any{"errors": []map[string]string{{"status": "404", "title": "Not Found"}}})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// record はリクエストを記録し、失敗を返す設定ならその応答を書く。
func (f *fakeArticles) record(w http.ResponseWriter, r *http.Request) (content.DrupalNode, bool) {
	raw, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.lastMethod = r.Method
	f.lastToken = r.Header.Get("X-CSRF-Token")
	f.lastType = r.Header.Get("Content-Type")
	f.lastBody = nil
	json.Unmarshal(raw, &f.lastBody)
	status, errorBody := f.status, f.errorBody
	f.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", content.JSONAPIMediaType)
		w.WriteHeader(status)
		io.WriteString(w, errorBody)
		return content.DrupalNode{}, true
	}

	var doc content.DrupalSingleDocument
	json.Unmarshal(raw, &doc)
	if doc.Data == nil {
		return content.DrupalNode{}, false
	}
	return *doc.Data, false
}

func (f *fakeArticles) find(id string) (content.DrupalNode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.ID == id {
			return a, true
		}
	}
	return content.DrupalNode{}, false
}

func (f *fakeArticles) seed(node content.DrupalNode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, node)
}

func (f *fakeArticles) fail(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.errorBody = body
}

// last は直近の変更系リクエストの記録を返す。
func (f *fakeArticles) last() (method, token, contentType string, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMethod, f.lastToken, f.lastType, f.lastBody
}

func writeJSONAPI(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", content.JSONAPIMediaType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
