package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/errorcode"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/model"
	"github.com/hitoshi/knowledgeout/internal/mypage"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// MyPageLoaderInterface はマイページの表示データを取得するインターフェース。
type MyPageLoaderInterface interface {
	Load(ctx context.Context, state *auth.State) (*mypage.View, error)
}

// MemberServiceInterface は会員情報の変更に必要なサービスインターフェース。
type MemberServiceInterface interface {
	UpdateMember(ctx context.Context, req member.UpdateRequest) (*model.Member, error)
	Withdraw(ctx context.Context) error
}

// MyPageHandler はマイページのHTTPハンドラー。
type MyPageHandler struct {
	loader    MyPageLoaderInterface
	members   MemberServiceInterface
	sanitizer security.Sanitizer
	logger    *slog.Logger
}

// NewMyPageHandler はMyPageHandlerを生成する。
func NewMyPageHandler(loader MyPageLoaderInterface, members MemberServiceInterface, sanitizer security.Sanitizer, logger *slog.Logger) *MyPageHandler {
	return &MyPageHandler{
		loader:    loader,
		members:   members,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Get はユーザー情報と活動一覧を返す。
// セッションが切れている場合は401とログイン画面への遷移先を返す。
// GET /api/mypage
func (h *MyPageHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	view, err := h.loader.Load(r.Context(), state)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	security.RenderQuestions(h.sanitizer, view.Questions)
	security.RenderMyAnswers(h.sanitizer, view.Answers)
	security.RenderQuestions(h.sanitizer, view.LikedQuestions)

	writeJSON(w, http.StatusOK, view)
}

// Update はニックネームまたはパスワードを変更する。
// PUT /api/mypage
func (h *MyPageHandler) Update(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	var req member.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Nickname == nil && req.Password == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewFieldError("", errorcode.Message(errorcode.NoChangesDetected)))
		return
	}

	updated, err := h.members.UpdateMember(r.Context(), req)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Withdraw は退会し、ローカルの状態をログアウトにする。
// DELETE /api/mypage
func (h *MyPageHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	if err := h.members.Withdraw(r.Context()); err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	state.ForceLogout()
	w.WriteHeader(http.StatusNoContent)
}
