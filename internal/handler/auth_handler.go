package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// AuthServiceInterface はログイン・会員登録ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はログインし、stateをログイン状態にする。
	Login(ctx context.Context, state *auth.State, cred member.Credentials) (*model.CurrentUser, error)
	// Signup は会員登録と自動ログインを行い、stateをログイン状態にする。
	Signup(ctx context.Context, state *auth.State, form auth.SignupForm) (*model.CurrentUser, error)
}

// AuthHandler はログイン状態に関するHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	logger  *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Me は現在のログイン状態を返す。未ログインでも200で応答する。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	state.EnsureChecked(r.Context())
	writeJSON(w, http.StatusOK, state.Snapshot())
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	var cred member.Credentials
	if !decodeJSON(w, r, &cred) {
		return
	}

	if _, err := h.service.Login(r.Context(), state, cred); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, state.Snapshot())
}

// Signup は会員登録し、続けて自動ログインする。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	var form auth.SignupForm
	if !decodeJSON(w, r, &form) {
		return
	}

	if _, err := h.service.Signup(r.Context(), state, form); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, state.Snapshot())
}

// Logout はバックエンドのセッションを破棄する。
// バックエンドの呼び出しに失敗してもローカルの状態は消去し、200で応答する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	if err := state.Logout(r.Context()); err != nil {
		h.logger.Warn("logout failed on backend; cleared local state",
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, state.Snapshot())
}
