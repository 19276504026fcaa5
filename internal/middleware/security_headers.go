package middleware

import (
	"net/http"
	"strings"
)

// apiContentSecurityPolicy はJSONとレンダリング済み手順HTMLの断片に適用するCSP。
// 断片内の<img>は自オリジンの/static配下のみを参照する。
const apiContentSecurityPolicy = "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// /static配下の画像にはCSPを付けず、キャッシュ可能なまま配信する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			if !strings.HasPrefix(r.URL.Path, "/static/") {
				h.Set("Content-Security-Policy", apiContentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
