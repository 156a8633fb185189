package middleware

import (
	"net/http"
	"strconv"
	"sync/atomic"
)

// ResponseSeqHeader はレスポンスの発行順を示すヘッダー名。
const ResponseSeqHeader = "X-Response-Seq"

// NewResponseSeqMiddleware はすべてのレスポンスに単調増加する連番を付与するミドルウェアを返す。
// 連番はリクエスト受信時に採番する。UIは同じリソースの再取得が前後して完了した場合に、
// 最後に受け取ったものより小さい連番のレスポンスを破棄できる。
func NewResponseSeqMiddleware() func(next http.Handler) http.Handler {
	var seq atomic.Uint64
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(ResponseSeqHeader, strconv.FormatUint(seq.Add(1), 10))
			next.ServeHTTP(w, r)
		})
	}
}

// ResponseSeq はレスポンスヘッダーから連番を読み取る。ヘッダーがなければ0。
func ResponseSeq(h http.Header) uint64 {
	n, err := strconv.ParseUint(h.Get(ResponseSeqHeader), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
