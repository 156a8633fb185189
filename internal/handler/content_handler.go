package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// ContentServiceInterface はコンテンツ閲覧ハンドラーが必要とするサービスインターフェース。
// content.Gatewayが実装する。
type ContentServiceInterface interface {
	// ListArticles は記事一覧を返す。取得元の障害はサンプルで代替される。
	ListArticles(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error)
	// ListEvents はイベント一覧を返す。
	ListEvents(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error)
	// GetByID は1件返す。見つからない場合はCONTENT_NOT_FOUND。
	GetByID(ctx context.Context, platform model.Platform, kind model.ContentKind, id string) (*model.ContentItem, error)
}

// ContentHandler はDrupal・WordPressのコンテンツ閲覧のHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// ListArticles は記事一覧を返す。
// GET /api/{platform}/articles?limit=
func (h *ContentHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListArticles)
}

// ListEvents はイベント一覧を返す。
// GET /api/{platform}/events?limit=
func (h *ContentHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListEvents)
}

type listFunc func(ctx context.Context, platform model.Platform, limit int) ([]model.ContentItem, error)

func (h *ContentHandler) list(w http.ResponseWriter, r *http.Request, fn listFunc) {
	platform, ok := model.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUnknownPlatformError(chi.URLParam(r, "platform")))
		return
	}
	limit, apiErr := parseLimit(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := fn(r.Context(), platform, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentItemResponses(items))
}

// GetContent はコンテンツ詳細を返す。
// GET /api/{platform}/{kind}/{id}
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, chi.URLParam(r, "kind"))
}

// GetArticle は記事詳細を返す。同じパスにPATCHがあるため個別に登録する。
// GET /api/{platform}/articles/{id}
func (h *ContentHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, string(model.ContentKindArticle))
}

func (h *ContentHandler) get(w http.ResponseWriter, r *http.Request, rawKind string) {
	platform, ok := model.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUnknownPlatformError(chi.URLParam(r, "platform")))
		return
	}
	kind, ok := model.ParseContentKind(rawKind)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUnknownPlatformError(rawKind))
		return
	}

	item, err := h.service.GetByID(r.Context(), platform, kind, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentItemResponse(*item))
}
