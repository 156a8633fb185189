package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// ArticleMutatorInterface は記事の作成・更新ハンドラーが必要とするサービスインターフェース。
// mutation.Clientが実装する。
type ArticleMutatorInterface interface {
	Create(ctx context.Context, title, body string) (*model.ContentItem, error)
	Update(ctx context.Context, id, title, body string) (*model.ContentItem, error)
}

// ArticleHandler はDrupal記事の作成・更新のHTTPハンドラー。
type ArticleHandler struct {
	mutator ArticleMutatorInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(mutator ArticleMutatorInterface) *ArticleHandler {
	return &ArticleHandler{mutator: mutator}
}

// articleRequest は記事作成・更新リクエストのボディ。
type articleRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateArticle は記事を作成する。
// POST /api/drupal/articles
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.mutator.Create(r.Context(), req.Title, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toContentItemResponse(*item))
}

// UpdateArticle は記事のタイトルと本文を更新する。
// PATCH /api/drupal/articles/{id}
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.mutator.Update(r.Context(), chi.URLParam(r, "id"), req.Title, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentItemResponse(*item))
}
