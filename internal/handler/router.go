package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/metrics"
	"github.com/hitoshi/knowledgeout/internal/middleware"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	CookieDomain      string
	CookieSecure      bool
	SessionAPI        auth.SessionAPI

	// メトリクス。Collectorがnilの場合は収集しない
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer

	// 機能
	AuthService     AuthServiceInterface
	MyPageLoader    MyPageLoaderInterface
	MemberService   MemberServiceInterface
	QuestionService QuestionServiceInterface
	AnswerService   AnswerServiceInterface
	CategoryService CategoryServiceInterface
	AdminService    DashboardServiceInterface
	Sanitizer       security.Sanitizer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS → CSRF → AuthState
//
// /health と /metrics はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
		Logger:       deps.Logger,
	}

	var authObserver auth.Observer
	if deps.Collector != nil {
		authObserver = deps.Collector
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	myPageHandler := NewMyPageHandler(deps.MyPageLoader, deps.MemberService, deps.Sanitizer, deps.Logger)
	questionHandler := NewQuestionHandler(deps.QuestionService, deps.Sanitizer, deps.Logger)
	answerHandler := NewAnswerHandler(deps.AnswerService, deps.Sanitizer, deps.Logger)
	catalogHandler := NewCatalogHandler(deps.CategoryService, deps.AdminService, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewRequestIDMiddleware())
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		if deps.Collector != nil {
			r.Use(middleware.NewMetricsMiddleware(deps.Collector))
		}
		r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(middleware.NewAuthStateMiddleware(middleware.AuthStateConfig{
			API:          deps.SessionAPI,
			Logger:       deps.Logger,
			Observer:     authObserver,
			CookieDomain: deps.CookieDomain,
			CookieSecure: deps.CookieSecure,
		}))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", authHandler.Me)
			r.Post("/login", authHandler.Login)
			r.Post("/signup", authHandler.Signup)
			r.Post("/logout", authHandler.Logout)
		})

		r.Route("/mypage", func(r chi.Router) {
			r.Get("/", myPageHandler.Get)
			r.Put("/", myPageHandler.Update)
			r.Delete("/", myPageHandler.Withdraw)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.List)
			r.Post("/", questionHandler.Create)
			r.Get("/count-summary", questionHandler.CountSummary)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", questionHandler.Get)
				r.Put("/", questionHandler.Update)
				r.Delete("/", questionHandler.Delete)
				r.Post("/likes", questionHandler.Like)

				r.Get("/answers", answerHandler.List)
				r.Post("/answers", answerHandler.Create)
				r.Put("/answers/{answerId}", answerHandler.Update)
				r.Delete("/answers/{answerId}", answerHandler.Delete)
			})
		})

		r.Post("/answers/{id}/likes", answerHandler.Like)
		r.Get("/categories", catalogHandler.Categories)
		r.Get("/admin/dashboard", catalogHandler.Dashboard)
	})

	return r
}

// healthHandler はプロセスの生存確認に応答する。バックエンドの状態は確認しない。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
