// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, shop, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeAuthRequired         = "AUTH_REQUIRED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeLoginRejected        = "LOGIN_REJECTED"
	ErrCodeLoginSuperseded      = "LOGIN_SUPERSEDED"
	ErrCodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	ErrCodeMutationFailed       = "MUTATION_FAILED"
	ErrCodeContentNotFound      = "CONTENT_NOT_FOUND"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidPrice         = "INVALID_PRICE"
	ErrCodeCartEmpty            = "CART_EMPTY"
	ErrCodeUnknownPlatform      = "UNKNOWN_PLATFORM"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "必須項目を入力してから再度お試しください。",
	}
}

// NewAuthRequiredError はログインが必要な操作を未ログインで実行した場合のエラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "Drupalにログインしてから再度お試しください。",
	}
}

// NewAuthenticationFailedError は取得元が401を返した場合のエラーを生成する。
// このエラーが返された時点でセッションは破棄されている。
func NewAuthenticationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationFailed,
		Message:  fmt.Sprintf("認証の有効期限が切れました: %s", detail),
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewPermissionDeniedError は取得元が403を返した場合のエラーを生成する。
// セッション自体は有効なまま維持される。
func NewPermissionDeniedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", detail),
		Category: "auth",
		Action:   "権限を持つアカウントでログインするか、サイト管理者に連絡してください。",
	}
}

// NewLoginRejectedError はユーザー名またはパスワードが誤っている場合のエラーを生成する。
func NewLoginRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRejected,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewLoginSupersededError はログイン処理中にログアウト等が行われ、結果を破棄した場合のエラーを生成する。
func NewLoginSupersededError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginSuperseded,
		Message:  "ログイン処理中にセッションが破棄されたため、ログイン結果を無効にしました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUpstreamUnavailableError は取得元との通信に失敗した場合のエラーを生成する。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("CMSとの通信に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMutationFailedError はコンテンツの作成・更新に失敗した場合のエラーを生成する。
func NewMutationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMutationFailed,
		Message:  fmt.Sprintf("コンテンツの保存に失敗しました: %s", reason),
		Category: "content",
		Action:   "入力内容を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewContentNotFoundError はコンテンツ未検出エラーを生成する。
func NewContentNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツが見つかりません: %s", id),
		Category: "content",
		Action:   "一覧から再度選択してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(id int) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %d", id),
		Category: "shop",
		Action:   "商品一覧から再度選択してください。",
	}
}

// NewOrderNotFoundError は注文未検出エラーを生成する。
func NewOrderNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定された注文が見つかりません: %s", id),
		Category: "shop",
		Action:   "注文IDを確認してください。",
	}
}

// MaxLineQuantity はカート1行あたりの数量の上限。
const MaxLineQuantity = 999

// NewInvalidQuantityError は数量が不正な場合のエラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: "validation",
		Action:   fmt.Sprintf("1以上%d以下の数量を指定してください。", MaxLineQuantity),
	}
}

// NewInvalidPriceError は商品価格を解釈できない場合のエラーを生成する。
func NewInvalidPriceError(price string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  fmt.Sprintf("商品価格を解釈できません: %q", price),
		Category: "shop",
		Action:   "別の商品を選択してください。",
	}
}

// NewCartEmptyError はカートが空の状態でチェックアウトした場合のエラーを生成する。
func NewCartEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeCartEmpty,
		Message:  "カートが空です。",
		Category: "shop",
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewUnknownPlatformError は未対応のプラットフォーム・種別を指定した場合のエラーを生成する。
func NewUnknownPlatformError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownPlatform,
		Message:  fmt.Sprintf("未対応のコンテンツ種別です: %s", name),
		Category: "validation",
		Action:   "drupal または wordpress、article または event を指定してください。",
	}
}
