package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// SessionServiceInterface はCMSセッションハンドラーが必要とするサービスインターフェース。
// session.Clientが実装する。
type SessionServiceInterface interface {
	Login(ctx context.Context, username, password string) (bool, error)
	Logout(ctx context.Context)
	Current(ctx context.Context) (model.Session, bool)
	State() model.SessionState
}

// SessionHandler はDrupalへのログイン・ログアウトのHTTPハンドラー。
type SessionHandler struct {
	service SessionServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GetSession は現在のセッション状態を返す。
// GET /api/drupal/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status(r.Context()))
}

// Login はDrupalにログインする。
// POST /api/drupal/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewLoginRejectedError())
		return
	}

	writeJSON(w, http.StatusOK, h.status(r.Context()))
}

// Logout はDrupalからログアウトする。取得元の結果にかかわらず常に204を返す。
// DELETE /api/drupal/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) status(ctx context.Context) sessionResponse {
	s, ok := h.service.Current(ctx)
	if !ok {
		return sessionResponse{State: string(h.service.State())}
	}
	expiresAt := s.ExpiresAt
	return sessionResponse{
		State:         string(model.SessionAuthenticated),
		Authenticated: true,
		Username:      s.Username,
		ExpiresAt:     &expiresAt,
	}
}
