package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// フロントエンドはcsrf_tokenをJavaScriptで読み取り、X-CSRF-Tokenヘッダーに載せて送る（ダブルサブミット方式）。
const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"

	csrfTokenBytes  = 32
	csrfTokenMaxAge = 24 * 60 * 60
)

var (
	errCSRFCookieMissing = errors.New("csrf cookie missing")
	errCSRFHeaderMissing = errors.New("csrf header missing")
	errCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// CSRFConfig はCSRFミドルウェアの設定。
// Logger が nil の場合は slog.Default() を使う。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	Logger       *slog.Logger
}

// csrfGuard はCSRFトークンの発行と検証を行う。
type csrfGuard struct {
	secure bool
	domain string
	logger *slog.Logger
}

func newCSRFGuard(config CSRFConfig) *csrfGuard {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &csrfGuard{secure: config.CookieSecure, domain: config.CookieDomain, logger: logger}
}

// NewCSRFMiddleware はCSRF検証ミドルウェアを返す。
// GET, HEAD, OPTIONS は検証せず、トークンCookieがなければ発行する。
// それ以外のメソッドはCookieとヘッダーのトークンが一致しない限り403を返す。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	g := newCSRFGuard(config)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				if _, ok := csrfCookieToken(r); !ok {
					g.issue(w, r)
				}
				next.ServeHTTP(w, r)
				return
			}

			if err := verifyCSRF(r); err != nil {
				g.logger.WarnContext(r.Context(), "CSRFトークンの検証に失敗しました",
					slog.String("reason", err.Error()),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", apiclient.RequestIDFromContext(r.Context())),
				)
				writeCSRFError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler は GET /api/csrf-token のハンドラーを返す。
// Cookieにトークンがあればそれを、なければ新しく発行したトークンを {"token": ...} で返す。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	g := newCSRFGuard(config)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := csrfCookieToken(r)
		if !ok {
			token = g.issue(w, r)
			if token == "" {
				WriteInternalServerError(w)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
}

// verifyCSRF はダブルサブミットの検証を行い、失敗理由を返す。
func verifyCSRF(r *http.Request) error {
	cookieToken, ok := csrfCookieToken(r)
	if !ok {
		return errCSRFCookieMissing
	}
	headerToken := r.Header.Get(csrfHeaderName)
	if headerToken == "" {
		return errCSRFHeaderMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return errCSRFTokenMismatch
	}
	return nil
}

func csrfCookieToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// issue は新しいトークンをCookieに設定して返す。生成に失敗した場合は空文字。
func (g *csrfGuard) issue(w http.ResponseWriter, r *http.Request) string {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		g.logger.ErrorContext(r.Context(), "CSRFトークンの生成に失敗しました",
			slog.String("error", err.Error()),
		)
		return ""
	}
	token := hex.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.domain,
		MaxAge:   csrfTokenMaxAge,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func writeCSRFError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
		Code:     model.ErrCodeForbidden,
		Message:  "보안 토큰이 유효하지 않습니다.",
		Category: "auth",
		Action:   "페이지를 새로고침한 후 다시 시도해 주세요.",
	})
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
