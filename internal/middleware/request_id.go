package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
)

const requestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware はリクエストIDを採番するミドルウェアを返す。
// ブラウザやロードバランサーがUUID形式のX-Request-IDを付けていればそれを引き継ぐ。
// IDはレスポンスヘッダーに付与し、コンテキスト経由でバックエンドへの呼び出しにも転送する。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, id)
			ctx := apiclient.ContextWithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
