// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// UpstreamGuard は取得元CMSへの接続に使うHTTPクライアントの生成と、
// 設定された取得元URLの事前検証を行う。
type UpstreamGuard interface {
	// NewClient は取得元への接続用HTTPクライアントを生成する。
	// プライベートネットワークが許可されていない場合はsafeurlにより
	// プライベートIP、ループバック、リンクローカル、メタデータIPへの接続がブロックされる。
	NewClient(timeout time.Duration) *http.Client

	// ValidateBaseURL は取得元のベースURLを静的に検証する。
	ValidateBaseURL(rawURL string) error
}

// allowedSchemes は取得元URLとして許可されるスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はプライベートネットワーク不許可時にブロックするネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		// クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// upstreamGuard はUpstreamGuardの実装。
type upstreamGuard struct {
	// allowPrivate はローカル開発用のCMS（例: *.ddev.site → 127.0.0.1）への接続を許可する。
	allowPrivate bool
}

// NewUpstreamGuard はUpstreamGuardの新しいインスタンスを生成する。
func NewUpstreamGuard(allowPrivate bool) *upstreamGuard {
	return &upstreamGuard{allowPrivate: allowPrivate}
}

// NewClient は取得元への接続用HTTPクライアントを生成する。
// 呼び出し元がJarを設定できるよう、毎回新しいインスタンスを返す。
func (g *upstreamGuard) NewClient(timeout time.Duration) *http.Client {
	if g.allowPrivate {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateBaseURL は取得元のベースURLを静的に検証する。
// DNS解決を伴わないため、起動時の設定検証に使う。
// 名前解決後のアドレス検証はNewClientが返すクライアント側で行われる。
func (g *upstreamGuard) ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if g.allowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
