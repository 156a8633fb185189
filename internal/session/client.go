// Package session はDrupalに対する認証セッションを管理する。
//
// プロセスあたり1つの論理セッションを持ち、ログイン・ログアウト・有効期限の追跡と
// KeyValueStoreへの永続化を行う。Cookieを保持するHTTPクライアントは変更クライアントと共有する。
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/cmsshowcase/internal/metrics"
	"github.com/hitoshi/cmsshowcase/internal/model"
	"github.com/hitoshi/cmsshowcase/internal/repository"
	"github.com/hitoshi/cmsshowcase/internal/upstream"
)

// Drupalのセッション関連エンドポイント
const (
	TokenPath  = "/session/token"
	LoginPath  = "/user/login?_format=json"
	LogoutPath = "/user/logout"
)

// DefaultTTL はログイン後のセッション有効期間のデフォルト値。
const DefaultTTL = time.Hour

// ログイン結果のメトリクスラベル
const (
	loginSuccess    = "success"
	loginRejected   = "rejected"
	loginError      = "error"
	loginSuperseded = "superseded"
)

// Config はセッションクライアントの設定。
type Config struct {
	BaseURL     string
	MaxBodySize int64
	TTL         time.Duration
}

// Client はDrupalとのセッションを管理する。
//
// 状態の変更はmuで保護し、ネットワーク呼び出しはロックを保持せずに行う。
// genはログイン開始・ログアウト・無効化のたびに増加し、
// 古いログインの結果がセッションを復活させることを防ぐ。
type Client struct {
	api     *upstream.Client
	notify  *upstream.Client
	jar     *resettableJar
	origin  *url.URL
	store   repository.KeyValueStore
	ttl     time.Duration
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   model.SessionState
	current model.Session
	loaded  bool
	gen     uint64

	// storeMu はストアへの書き込みとgenの照合を直列化する
	storeMu sync.Mutex
}

// NewClient はClientを生成する。
// httpClientにはCookieJarが設定されるため、他の用途と共有しないこと。
func NewClient(httpClient *http.Client, store repository.KeyValueStore, cfg Config, m metrics.MetricsCollector, logger *slog.Logger) (*Client, error) {
	origin, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid Drupal base URL: %q", cfg.BaseURL)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar := newResettableJar()
	httpClient.Jar = jar

	// ログアウト通知は保存済みCookieを明示的に送るため、Jarを持たないクライアントを使う
	plain := *httpClient
	plain.Jar = nil

	return &Client{
		api:     upstream.NewClient(httpClient, "drupal", origin.String(), cfg.MaxBodySize, m, logger),
		notify:  upstream.NewClient(&plain, "drupal", origin.String(), cfg.MaxBodySize, m, logger),
		jar:     jar,
		origin:  origin,
		store:   store,
		ttl:     cfg.TTL,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		state:   model.SessionUnauthenticated,
		gen:     1, // 0は照合なしを表すため1から始める
	}, nil
}

// API はセッションCookieを送信する取得元クライアントを返す。
func (c *Client) API() *upstream.Client {
	return c.api
}

// State は現在の状態を返す。副作用はない。
func (c *Client) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == model.SessionAuthenticated && !c.current.ValidAt(c.now()) {
		return model.SessionExpired
	}
	return c.state
}

// Current は有効なセッションがあればそのコピーを返す。
func (c *Client) Current(ctx context.Context) (model.Session, bool) {
	if !c.IsAuthenticated(ctx) {
		return model.Session{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current
	s.Cookies = append([]model.SessionCookie(nil), c.current.Cookies...)
	return s, s.ValidAt(c.now())
}

// Login はユーザー名とパスワードでログインする。
//
// 認証情報が拒否された場合は(false, nil)を返す。
// 通信失敗や想定外のステータスの場合は(false, err)を返す。
// 処理中にログアウトまたは無効化が行われた場合、結果は破棄されLOGIN_SUPERSEDEDを返す。
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, model.NewValidationError("ユーザー名とパスワードは必須です")
	}

	// 既存のセッションは通知せずに破棄してからログインを始める
	c.mu.Lock()
	c.resetLocked()
	c.state = model.SessionAuthenticating
	gen := c.gen
	c.mu.Unlock()
	c.deleteRecord(ctx)

	c.logger.Info("ログインを開始します", slog.String("username", username))

	token, err := c.fetchToken(ctx)
	if err != nil {
		c.abortLogin(gen)
		c.metrics.RecordLogin(loginError)
		return false, model.NewUpstreamUnavailableError(err.Error())
	}

	status, login, err := c.postLogin(ctx, token, username, password)
	if err != nil {
		c.abortLogin(gen)
		c.metrics.RecordLogin(loginError)
		return false, model.NewUpstreamUnavailableError(err.Error())
	}
	switch status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		c.abortLogin(gen)
		c.metrics.RecordLogin(loginRejected)
		c.logger.Info("ログインが拒否されました",
			slog.String("username", username),
			slog.Int("http_status", status),
		)
		return false, nil
	default:
		c.abortLogin(gen)
		c.metrics.RecordLogin(loginError)
		return false, model.NewUpstreamUnavailableError(fmt.Sprintf("ログインAPIがステータス %d を返しました", status))
	}

	// 変更系リクエスト用のトークンはログイン後に取り直す
	token, err = c.fetchToken(ctx)
	if err != nil {
		c.abortLogin(gen)
		c.metrics.RecordLogin(loginError)
		return false, model.NewUpstreamUnavailableError(err.Error())
	}

	name := login.CurrentUser.Name
	if name == "" {
		name = username
	}
	s := model.Session{
		Token:       token,
		LogoutToken: login.LogoutToken,
		Username:    name,
		ExpiresAt:   c.now().Add(c.ttl),
		Cookies:     c.jar.snapshot(c.origin),
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.metrics.RecordLogin(loginSuperseded)
		c.logger.Warn("ログイン中にセッションが破棄されたため結果を破棄しました",
			slog.String("username", username),
		)
		return false, model.NewLoginSupersededError()
	}
	c.current = s
	c.state = model.SessionAuthenticated
	c.mu.Unlock()

	c.persist(ctx, s, gen)
	c.metrics.RecordLogin(loginSuccess)
	c.logger.Info("ログインしました",
		slog.String("username", name),
		slog.Time("expires_at", s.ExpiresAt),
	)
	return true, nil
}

// Logout はログアウトする。取得元への通知は失敗しても無視し、エラーを返さない。
func (c *Client) Logout(ctx context.Context) {
	c.ensureLoaded(ctx)
	if c.teardown(ctx, true, 0) {
		c.logger.Info("ログアウトしました")
	}
}

// Invalidate は取得元が401を返した場合などにセッションを強制的に破棄する。
// genはAuthenticatedGenerationで得た世代で、その後に別のログインが完了していれば何もしない。
// 取得元側のセッションは既に無効なため通知は行わない。破棄した場合はtrueを返す。
func (c *Client) Invalidate(ctx context.Context, gen uint64, reason string) bool {
	c.ensureLoaded(ctx)
	if !c.teardown(ctx, false, gen) {
		c.logger.Info("セッションが更新済みのため無効化を見送りました", slog.String("reason", reason))
		return false
	}
	c.logger.Warn("セッションを無効化しました", slog.String("reason", reason))
	return true
}

// IsAuthenticated はセッションが有効かどうかを返す。
// 初回呼び出し時にストアから復元する。期限切れの場合は暗黙にログアウトしてfalseを返す。
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, ok := c.AuthenticatedGeneration(ctx)
	return ok
}

// AuthenticatedGeneration はIsAuthenticatedと同じ判定を行い、有効な場合はその時点の世代も返す。
// 変更系リクエストはこの世代をInvalidateに渡す。
func (c *Client) AuthenticatedGeneration(ctx context.Context) (uint64, bool) {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	s, gen := c.current, c.gen
	if s.ValidAt(c.now()) {
		c.mu.Unlock()
		return gen, true
	}
	expired := s.Token != ""
	if expired {
		c.state = model.SessionExpired
	}
	c.mu.Unlock()

	if expired {
		c.logger.Info("セッションの有効期限が切れました",
			slog.String("username", s.Username),
			slog.Time("expires_at", s.ExpiresAt),
		)
		c.teardown(ctx, true, gen)
	}
	return 0, false
}

// FreshToken は変更系リクエスト直前に使うCSRFトークンを取得する。
// ログイン時のトークンは再利用しない。
func (c *Client) FreshToken(ctx context.Context) (string, error) {
	return c.fetchToken(ctx)
}

// resetLocked はメモリ上のセッションとCookieを破棄し、世代を進める。muを保持して呼ぶこと。
func (c *Client) resetLocked() {
	c.gen++
	c.current = model.Session{}
	c.state = model.SessionUnauthenticated
	c.loaded = true
	c.jar.Reset()
}

// abortLogin はログイン失敗時に状態を戻す。世代が変わっていれば何もしない。
func (c *Client) abortLogin(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.state = model.SessionUnauthenticated
	c.jar.Reset()
}

// teardown はセッションを破棄する。expectGenが0でなく現在の世代と異なる場合は何もしない。
// 世代は1から始まるため、0は照合なしを表す。
// 破棄した場合はtrueを返す。
func (c *Client) teardown(ctx context.Context, notify bool, expectGen uint64) bool {
	c.mu.Lock()
	if expectGen != 0 && c.gen != expectGen {
		c.mu.Unlock()
		return false
	}
	s := c.current
	c.resetLocked()
	c.mu.Unlock()

	if notify && s.Token != "" {
		c.notifyLogout(ctx, s)
	}
	c.deleteRecord(ctx)
	return true
}

// notifyLogout は取得元にログアウトを通知する。失敗はログに記録するのみ。
func (c *Client) notifyLogout(ctx context.Context, s model.Session) {
	q := url.Values{}
	q.Set("_format", "json")
	if s.LogoutToken != "" {
		q.Set("token", s.LogoutToken)
	}
	req, err := c.notify.NewRequest(ctx, http.MethodPost, LogoutPath+"?"+q.Encode(), nil)
	if err != nil {
		c.logger.Warn("ログアウト通知の作成に失敗しました", slog.String("error", err.Error()))
		return
	}
	for _, ck := range s.Cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.notify.Do(req)
	if err != nil {
		c.logger.Warn("ログアウト通知に失敗しました", slog.String("error", err.Error()))
		return
	}
	if !resp.OK() {
		c.logger.Warn("ログアウト通知がエラーを返しました", slog.Int("http_status", resp.StatusCode))
	}
}

// ensureLoaded は未読み込みの場合にストアからセッションを復元する。
// ストアの読み取りに失敗した場合は次回呼び出し時に再試行する。
func (c *Client) ensureLoaded(ctx context.Context) {
	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()

	raw, found, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		c.logger.Warn("セッションレコードの読み込みに失敗しました", slog.String("error", err.Error()))
		return
	}
	s, state, err := Classify(raw, found, c.now())
	if err != nil {
		c.logger.Warn("セッションレコードを解釈できないため破棄します", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded || c.gen != gen {
		return
	}
	c.loaded = true
	switch state {
	case LoadValid:
		c.current = s
		c.state = model.SessionAuthenticated
		c.jar.restore(c.origin, s.Cookies)
		c.logger.Info("保存済みセッションを復元しました", slog.String("username", s.Username))
	case LoadExpired:
		// IsAuthenticatedが期限切れとして破棄する
		c.current = s
		c.state = model.SessionExpired
	}
}

// persist はセッションを保存する。世代が変わっていれば保存しない。
// 保存に失敗してもメモリ上のセッションは有効なまま。
func (c *Client) persist(ctx context.Context, s model.Session, gen uint64) {
	raw, err := Encode(s)
	if err != nil {
		c.logger.Error("セッションのエンコードに失敗しました", slog.String("error", err.Error()))
		return
	}

	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	c.mu.Lock()
	current := c.gen
	c.mu.Unlock()
	if current != gen {
		return
	}
	if err := c.store.Set(ctx, StorageKey, raw); err != nil {
		c.logger.Error("セッションの保存に失敗しました", slog.String("error", err.Error()))
	}
}

func (c *Client) deleteRecord(ctx context.Context) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if err := c.store.Delete(ctx, StorageKey); err != nil {
		c.logger.Warn("セッションレコードの削除に失敗しました", slog.String("error", err.Error()))
	}
}

// fetchToken はCSRFトークンを取得する。
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	resp, err := c.api.Get(ctx, TokenPath, "text/plain")
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("トークンAPIがステータス %d を返しました", resp.StatusCode)
	}
	token := strings.TrimSpace(string(resp.Body))
	if token == "" {
		c.api.RecordFailure("parse")
		return "", fmt.Errorf("空のCSRFトークンを受信しました")
	}
	return token, nil
}

type loginRequest struct {
	Name string `json:"name"`
	Pass string `json:"pass"`
}

type loginResponse struct {
	CurrentUser struct {
		UID  string `json:"uid"`
		Name string `json:"name"`
	} `json:"current_user"`
	CSRFToken   string `json:"csrf_token"`
	LogoutToken string `json:"logout_token"`
}

// postLogin は認証情報を送信する。200以外のステータスはエラーにせず返す。
func (c *Client) postLogin(ctx context.Context, token, username, password string) (int, loginResponse, error) {
	var login loginResponse

	body, err := json.Marshal(loginRequest{Name: username, Pass: password})
	if err != nil {
		return 0, login, fmt.Errorf("ログインリクエストのエンコードに失敗しました: %w", err)
	}
	req, err := c.api.NewRequest(ctx, http.MethodPost, LoginPath, bytes.NewReader(body))
	if err != nil {
		return 0, login, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := c.api.Do(req)
	if err != nil {
		return 0, login, err
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(resp.Body, &login); err != nil {
			// セッションCookieは発行済みのため、ユーザー情報が読めなくてもログインは成立とする
			c.api.RecordFailure("parse")
			c.logger.Warn("ログインレスポンスのパースに失敗しました", slog.String("error", err.Error()))
		}
	}
	return resp.StatusCode, login, nil
}
