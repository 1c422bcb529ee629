package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/knowledgeout/internal/admin"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// CategoryServiceInterface はカテゴリ一覧の取得に必要なサービスインターフェース。
type CategoryServiceInterface interface {
	List(ctx context.Context) ([]model.Category, error)
}

// DashboardServiceInterface は管理者ダッシュボードの取得に必要なサービスインターフェース。
type DashboardServiceInterface interface {
	Dashboard(ctx context.Context, days int) (*model.Dashboard, error)
}

// CatalogHandler はカテゴリと管理者ダッシュボードのHTTPハンドラー。
type CatalogHandler struct {
	categories CategoryServiceInterface
	dashboard  DashboardServiceInterface
	logger     *slog.Logger
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(categories CategoryServiceInterface, dashboard DashboardServiceInterface, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		categories: categories,
		dashboard:  dashboard,
		logger:     logger,
	}
}

// Categories はカテゴリ一覧を返す。
// GET /api/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Dashboard は直近days日間の統計を返す。
// 管理者かどうかの判定はバックエンドが行い、ここではログを残すだけにとどめる。
// GET /api/admin/dashboard?days=N
func (h *CatalogHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	days := admin.DefaultDays
	if v := r.URL.Query().Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("days"))
			return
		}
		days = d
	}

	state.EnsureChecked(r.Context())
	if !state.IsAdmin() {
		h.logger.Info("dashboard requested by non-admin session",
			slog.Bool("authenticated", state.IsAuthenticated()),
		)
	}

	dashboard, err := h.dashboard.Dashboard(r.Context(), days)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
