package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/cart"
	"github.com/hitoshi/cmsshowcase/internal/middleware"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/storefront"
)

// --- モック定義 ---

type mockContentService struct {
	listArticlesFn func(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error)
	listEventsFn   func(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error)
	getByIDFn      func(ctx context.Context, platform model.Platform, kind model.ContentKind, id string) (*model.ContentItem, error)
}

func (m *mockContentService) ListArticles(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error) {
	if m.listArticlesFn != nil {
		return m.listArticlesFn(ctx, platform, limit)
	}
	return nil, nil
}

func (m *mockContentService) ListEvents(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, platform, limit)
	}
	return nil, nil
}

func (m *mockContentService) GetByID(ctx context.Context, platform model.Platform, kind model.ContentKind, id string) (*model.ContentItem, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, platform, kind, id)
	}
	return nil, model.NewContentNotFoundError(id)
}

type mockSessionService struct {
	loginFn   func(ctx context.Context, username, password string) (bool, error)
	currentFn func(ctx context.Context) (model.Session, bool)
	state     model.SessionState

	logoutCalls int
}

func (m *mockSessionService) Login(ctx context.Context, username, password string) (bool, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return false, nil
}

func (m *mockSessionService) Logout(ctx context.Context) {
	m.logoutCalls++
}

func (m *mockSessionService) Current(ctx context.Context) (model.Session, bool) {
	if m.currentFn != nil {
		return m.currentFn(ctx)
	}
	return model.Session{}, false
}

func (m *mockSessionService) State() model.SessionState {
	if m.state == "" {
		return model.SessionUnauthenticated
	}
	return m.state
}

type mockArticleMutator struct {
	createFn func(ctx context.Context, title, body string) (*model.ContentItem, error)
	updateFn func(ctx context.Context, id, title, body string) (*model.ContentItem, error)
}

func (m *mockArticleMutator) Create(ctx context.Context, title, body string) (*model.ContentItem, error) {
	if m.createFn != nil {
		return m.createFn(ctx, title, body)
	}
	return nil, model.NewAuthRequiredError()
}

func (m *mockArticleMutator) Update(ctx context.Context, id, title, body string) (*model.ContentItem, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, title, body)
	}
	return nil, model.NewAuthRequiredError()
}

type mockCatalog struct {
	listProductsFn func(ctx context.Context, limit int) []model.Product
	getProductFn   func(ctx context.Context, id int) (*model.Product, error)
}

func (m *mockCatalog) ListProducts(ctx context.Context, limit int) []model.Product {
	if m.listProductsFn != nil {
		return m.listProductsFn(ctx, limit)
	}
	return nil
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, id)
	}
	return nil, nil
}

// catalogOf は指定商品だけを持つカタログを返す。
func catalogOf(products ...model.Product) *mockCatalog {
	return &mockCatalog{
		listProductsFn: func(ctx context.Context, limit int) []model.Product {
			return products
		},
		getProductFn: func(ctx context.Context, id int) (*model.Product, error) {
			for _, p := range products {
				if p.ID == id {
					found := p
					return &found, nil
				}
			}
			return nil, nil
		},
	}
}

// --- テストヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testDeps struct {
	content  *mockContentService
	session  *mockSessionService
	articles *mockArticleMutator
	catalog  *mockCatalog
	cart     *cart.Cart
	orders   *storefront.OrderService
}

func newTestDeps() *testDeps {
	c := cart.New()
	return &testDeps{
		content:  &mockContentService{},
		session:  &mockSessionService{},
		articles: &mockArticleMutator{},
		catalog:  &mockCatalog{},
		cart:     c,
		orders:   storefront.NewOrderService(c, nil, discardLogger()),
	}
}

// router はテスト用の完全なルーターを構築する。
func (d *testDeps) router(t *testing.T) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate: 1000, GeneralBurst: 1000,
		MutationRate: 1000, MutationBurst: 1000,
		CleanupInterval: time.Hour,
	}, discardLogger())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:            discardLogger(),
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{Logger: discardLogger()},
		RateLimiter:       rl,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
		ContentService: d.content,
		SessionService: d.session,
		ArticleMutator: d.articles,
		Catalog:        d.catalog,
		Cart:           d.cart,
		Orders:         d.orders,
	})
}

const testCSRFToken = "test-csrf-token"

// do はCSRFトークン付きでリクエストを送る。
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	req.Header.Set("X-CSRF-Token", testCSRFToken)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v (body=%s)", err, w.Body.String())
	}
	return result
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body=%s)", err, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body=%s)", w.Code, wantStatus, w.Body.String())
		return
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != wantCode {
		t.Errorf("code = %q, want %q", got, wantCode)
	}
}

// newJSONRequest はCSRFトークンなしのJSONリクエストを生成する。
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
