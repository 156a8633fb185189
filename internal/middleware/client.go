// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// clientKeyContextKey はリクエストコンテキストにクライアント識別子を格納するためのキー。
var clientKeyContextKey = contextKey("client_key")

// NewClientKeyMiddleware は接続元IPアドレスをクライアント識別子としてコンテキストに注入する。
// レート制限とログで使う。プロキシ配下ではchiのRealIPミドルウェアの後に配置する。
func NewClientKeyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ContextWithClientKey(r.Context(), clientKeyFromRemoteAddr(r.RemoteAddr))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientKeyFromContext はリクエストコンテキストからクライアント識別子を取得する。
func ClientKeyFromContext(ctx context.Context) (string, error) {
	key, ok := ctx.Value(clientKeyContextKey).(string)
	if !ok || key == "" {
		return "", fmt.Errorf("client key not found in context")
	}
	return key, nil
}

// ContextWithClientKey はコンテキストにクライアント識別子を注入する。
func ContextWithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyContextKey, key)
}

// clientKeyFromRemoteAddr はRemoteAddrからポートを除いたホスト部分を返す。
func clientKeyFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RealIPミドルウェアはポートなしのアドレスを設定する
		return remoteAddr
	}
	return host
}
