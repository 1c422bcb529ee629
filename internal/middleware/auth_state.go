package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/auth"
)

// AuthStateConfig はAuthStateミドルウェアの設定。
type AuthStateConfig struct {
	API          auth.SessionAPI
	Logger       *slog.Logger
	Observer     auth.Observer
	CookieDomain string
	CookieSecure bool
}

// NewAuthStateMiddleware はブラウザのリクエストごとにログイン状態を用意するミドルウェアを返す。
//
// ブラウザのCookie（CSRFトークンを除く）をCookieRelayに詰めてコンテキストに載せ、
// バックエンドへの呼び出しでセッションCookieを中継する。バックエンドが発行したCookieは
// レスポンスの最初の書き込みの直前にブラウザへ中継する。
// ログイン状態の確認はハンドラーが必要としたときにState.EnsureCheckedで行う。
func NewAuthStateMiddleware(cfg AuthStateConfig) func(next http.Handler) http.Handler {
	var opts []auth.StateOption
	if cfg.Observer != nil {
		opts = append(opts, auth.WithObserver(cfg.Observer))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			relay := apiclient.NewCookieRelay(backendCookies(r))
			state := auth.NewState(cfg.API, cfg.Logger, opts...)

			ctx := apiclient.ContextWithCookieJar(r.Context(), relay)
			ctx = auth.NewContext(ctx, state)

			cw := &cookieRelayWriter{ResponseWriter: w, relay: relay, cfg: cfg}
			next.ServeHTTP(cw, r.WithContext(ctx))
			cw.flush()

			if u := state.CurrentUser(); u != nil && u.ID != 0 {
				SetLogUserID(ctx, strconv.FormatInt(u.ID, 10))
			}
		})
	}
}

// backendCookies はバックエンドに送るブラウザのCookieを返す。
func backendCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range r.Cookies() {
		if c.Name == csrfCookieName {
			continue
		}
		out = append(out, c)
	}
	return out
}

// cookieRelayWriter はヘッダー送信前にバックエンドのSet-Cookieをブラウザ向けに書き出す。
type cookieRelayWriter struct {
	http.ResponseWriter
	relay *apiclient.CookieRelay
	cfg   AuthStateConfig
	once  sync.Once
}

func (cw *cookieRelayWriter) WriteHeader(code int) {
	cw.flush()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cookieRelayWriter) Write(b []byte) (int, error) {
	cw.flush()
	return cw.ResponseWriter.Write(b)
}

// Unwrap はhttp.ResponseControllerのために元のResponseWriterを返す。
func (cw *cookieRelayWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (cw *cookieRelayWriter) flush() {
	cw.once.Do(func() {
		for _, c := range cw.relay.Received() {
			http.SetCookie(cw.ResponseWriter, &http.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Path:     "/",
				Domain:   cw.cfg.CookieDomain,
				Expires:  c.Expires,
				MaxAge:   c.MaxAge,
				HttpOnly: true,
				Secure:   cw.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	})
}
