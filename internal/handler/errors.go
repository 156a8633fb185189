package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/cmsshowcase/internal/middleware"
	"github.com/hitoshi/cmsshowcase/internal/model"
)

// errCodeInvalidRequest はリクエストボディやパラメータを解釈できない場合のエラーコード。
const errCodeInvalidRequest = "INVALID_REQUEST"

func invalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     errCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをデコードする。失敗時は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidQuantity, errCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeAuthRequired, model.ErrCodeAuthenticationFailed, model.ErrCodeLoginRejected:
		return http.StatusUnauthorized
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeContentNotFound, model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound,
		model.ErrCodeUnknownPlatform:
		return http.StatusNotFound
	case model.ErrCodeLoginSuperseded:
		return http.StatusConflict
	case model.ErrCodeInvalidPrice, model.ErrCodeCartEmpty:
		return http.StatusUnprocessableEntity
	case model.ErrCodeUpstreamUnavailable, model.ErrCodeMutationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit はクエリパラメータlimitを解析する。未指定は0（既定値を使う）。
func parseLimit(r *http.Request) (int, *model.APIError) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.NewValidationError("limitは0以上の整数で指定してください")
	}
	return n, nil
}

// parseIntID はパスパラメータの数値IDを解析する。
func parseIntID(raw, label string) (int, *model.APIError) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, model.NewValidationError(label + "は正の整数で指定してください")
	}
	return n, nil
}
