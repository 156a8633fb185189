// Package model はドメインモデルを定義する。
package model

import "time"

// Session はDrupalに対する認証セッションを表す。
// Tokenが空でなく、かつ現在時刻がExpiresAtより前の場合のみ有効とみなす。
type Session struct {
	Token       string // 変更系リクエスト用のCSRFトークン（ログイン後に取得したもの）
	LogoutToken string
	Username    string
	ExpiresAt   time.Time
	Cookies     []SessionCookie // 取得元のセッションCookie（再起動後の復元用）
}

// SessionCookie は取得元サイトが発行したCookieの永続化用表現。
type SessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ValidAt は指定時刻においてセッションが有効かどうかを返す。
func (s Session) ValidAt(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// SessionState はセッションクライアントの状態を表す。
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAuthenticating  SessionState = "authenticating"
	SessionAuthenticated   SessionState = "authenticated"
	SessionExpired         SessionState = "expired"
)
