package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// StorageKey はセッションレコードを保存するキー。
const StorageKey = "cms.session"

// persistedVersion は保存形式のバージョン。形式を変える場合は増やす。
const persistedVersion = 1

// LoadState は保存済みレコードの分類。
type LoadState int

const (
	// LoadAbsent はレコードが存在しない、または読めない状態。
	LoadAbsent LoadState = iota
	// LoadExpired はレコードはあるが有効期限切れの状態。
	LoadExpired
	// LoadValid は有効なレコードがある状態。
	LoadValid
)

func (s LoadState) String() string {
	switch s {
	case LoadExpired:
		return "expired"
	case LoadValid:
		return "valid"
	default:
		return "absent"
	}
}

// PersistedSession はKeyValueStoreに保存するセッションレコード。
type PersistedSession struct {
	V           int                   `json:"v"`
	Token       string                `json:"token"`
	LogoutToken string                `json:"logout_token,omitempty"`
	Username    string                `json:"username,omitempty"`
	ExpiresAt   time.Time             `json:"expires_at"`
	Cookies     []model.SessionCookie `json:"cookies,omitempty"`
}

// Encode はセッションを保存用の文字列にする。
func Encode(s model.Session) (string, error) {
	rec := PersistedSession{
		V:           persistedVersion,
		Token:       s.Token,
		LogoutToken: s.LogoutToken,
		Username:    s.Username,
		ExpiresAt:   s.ExpiresAt.UTC(),
		Cookies:     s.Cookies,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode session record: %w", err)
	}
	return string(data), nil
}

// DecodePersistedSession は保存文字列をセッションに戻す。
// 未知のバージョンとトークンのないレコードはエラーとする。
func DecodePersistedSession(raw string) (model.Session, error) {
	var rec PersistedSession
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return model.Session{}, fmt.Errorf("failed to decode session record: %w", err)
	}
	if rec.V != persistedVersion {
		return model.Session{}, fmt.Errorf("unsupported session record version: %d", rec.V)
	}
	if rec.Token == "" {
		return model.Session{}, fmt.Errorf("session record has no token")
	}
	return model.Session{
		Token:       rec.Token,
		LogoutToken: rec.LogoutToken,
		Username:    rec.Username,
		ExpiresAt:   rec.ExpiresAt,
		Cookies:     rec.Cookies,
	}, nil
}

// Classify はストアから読んだ値を Absent / Expired / Valid に分類する。
// 読めないレコードはAbsentとして扱い、errに理由を返す。
func Classify(raw string, found bool, now time.Time) (model.Session, LoadState, error) {
	if !found || raw == "" {
		return model.Session{}, LoadAbsent, nil
	}
	s, err := DecodePersistedSession(raw)
	if err != nil {
		return model.Session{}, LoadAbsent, err
	}
	if !s.ValidAt(now) {
		return s, LoadExpired, nil
	}
	return s, LoadValid, nil
}
