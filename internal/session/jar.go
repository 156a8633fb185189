package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/hitoshi/cmsshowcase/internal/model"
)

// resettableJar はログアウト時に丸ごと破棄できるCookieJar。
// http.Client.Jar を差し替えると実行中のリクエストと競合するため、内側だけを入れ替える。
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newResettableJar() *resettableJar {
	return &resettableJar{jar: newJar()}
}

func newJar() *cookiejar.Jar {
	// PublicSuffixListを渡さないと"co.jp"のようなドメインにCookieを設定できてしまう
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset はすべてのCookieを破棄する。
func (j *resettableJar) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = newJar()
}

// snapshot は取得元URLに送られるCookieを永続化用に取り出す。
func (j *resettableJar) snapshot(u *url.URL) []model.SessionCookie {
	cookies := j.Cookies(u)
	out := make([]model.SessionCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, model.SessionCookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// restore は永続化したCookieを取得元URLに対して設定し直す。
func (j *resettableJar) restore(u *url.URL, cookies []model.SessionCookie) {
	if len(cookies) == 0 {
		return
	}
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc = append(hc, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     "/",
			Secure:   u.Scheme == "https",
			HttpOnly: true,
		})
	}
	j.SetCookies(u, hc)
}

var _ http.CookieJar = (*resettableJar)(nil)
