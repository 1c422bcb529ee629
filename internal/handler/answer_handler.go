package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/knowledgeout/internal/answer"
	"github.com/hitoshi/knowledgeout/internal/model"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// AnswerServiceInterface は回答ハンドラーが必要とするサービスインターフェース。
type AnswerServiceInterface interface {
	List(ctx context.Context, questionID int64) ([]model.Answer, error)
	Create(ctx context.Context, questionID int64, req answer.Request) (int64, error)
	Update(ctx context.Context, questionID, answerID int64, req answer.Request) error
	Delete(ctx context.Context, questionID, answerID int64) error
	Like(ctx context.Context, answerID int64) (int64, error)
}

// AnswerHandler は回答のHTTPハンドラー。
type AnswerHandler struct {
	service   AnswerServiceInterface
	sanitizer security.Sanitizer
	logger    *slog.Logger
}

// NewAnswerHandler はAnswerHandlerを生成する。
func NewAnswerHandler(service AnswerServiceInterface, sanitizer security.Sanitizer, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{
		service:   service,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// answerLikeResponse は回答の推薦後の件数。
type answerLikeResponse struct {
	LikeCount int64 `json:"likeCount"`
}

// List は質問に付いた回答一覧を返す。
// GET /api/questions/{id}/answers
func (h *AnswerHandler) List(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	answers, err := h.service.List(r.Context(), questionID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	security.RenderAnswers(h.sanitizer, answers)
	writeJSON(w, http.StatusOK, answers)
}

// Create は回答を作成する。
// POST /api/questions/{id}/answers
func (h *AnswerHandler) Create(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req answer.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.Create(r.Context(), questionID, req)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// Update は回答を更新する。
// PUT /api/questions/{id}/answers/{answerId}
func (h *AnswerHandler) Update(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	answerID, ok := pathID(w, r, "answerId")
	if !ok {
		return
	}

	var req answer.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Update(r.Context(), questionID, answerID, req); err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete は回答を削除する。
// DELETE /api/questions/{id}/answers/{answerId}
func (h *AnswerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	answerID, ok := pathID(w, r, "answerId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), questionID, answerID); err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like は回答を推薦する。
// POST /api/answers/{id}/likes
func (h *AnswerHandler) Like(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	answerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	count, err := h.service.Like(r.Context(), answerID)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	writeJSON(w, http.StatusOK, answerLikeResponse{LikeCount: count})
}
