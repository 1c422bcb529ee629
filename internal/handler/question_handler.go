package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/knowledgeout/internal/model"
	"github.com/hitoshi/knowledgeout/internal/question"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// QuestionServiceInterface は質問ハンドラーが必要とするサービスインターフェース。
type QuestionServiceInterface interface {
	List(ctx context.Context, params question.ListParams) (*model.QuestionPage, error)
	Counts(ctx context.Context, params question.CountParams) model.QuestionCounts
	Get(ctx context.Context, id int64) (*model.Question, error)
	Create(ctx context.Context, req question.CreateRequest) (int64, error)
	Update(ctx context.Context, id int64, req question.UpdateRequest) error
	Delete(ctx context.Context, id int64) error
	Like(ctx context.Context, id int64) (int64, error)
}

// QuestionHandler は質問のHTTPハンドラー。
type QuestionHandler struct {
	service   QuestionServiceInterface
	sanitizer security.Sanitizer
	logger    *slog.Logger
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(service QuestionServiceInterface, sanitizer security.Sanitizer, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{
		service:   service,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// questionDetailResponse は質問詳細に閲覧者の推薦状態を加えたレスポンス。
type questionDetailResponse struct {
	*model.Question
	Liked bool `json:"liked"`
}

// createdResponse は作成したリソースのIDを返すレスポンス。
type createdResponse struct {
	ID int64 `json:"id"`
}

// likeResponse は推薦後の件数と閲覧者の推薦状態を返すレスポンス。
type likeResponse struct {
	LikeCount int64 `json:"likeCount"`
	Liked     bool  `json:"liked"`
}

// List は質問一覧を返す。
// GET /api/questions?page=&size=&sort=&search=&category=&tag=&status=
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := question.ListParams{
		Page:     queryInt(q.Get("page")),
		Size:     queryInt(q.Get("size")),
		Sort:     q.Get("sort"),
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Status:   q.Get("status"),
	}

	page, err := h.service.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	security.RenderQuestions(h.sanitizer, page.Content)
	writeJSON(w, http.StatusOK, page)
}

// CountSummary は状態別の質問件数を返す。取得に失敗した場合は0件を返す。
// GET /api/questions/count-summary?category=&search=
func (h *QuestionHandler) CountSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	counts := h.service.Counts(r.Context(), question.CountParams{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	writeJSON(w, http.StatusOK, counts)
}

// Get は質問詳細を返す。
// GET /api/questions/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	security.RenderQuestion(h.sanitizer, q)
	state.EnsureChecked(r.Context())
	writeJSON(w, http.StatusOK, questionDetailResponse{
		Question: q,
		Liked:    state.HasLiked(q.ID),
	})
}

// Create は質問を作成する。タグが指定されていない場合は本文のハッシュタグを使う。
// POST /api/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}

	var req question.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// Update は質問を更新する。
// PUT /api/questions/{id}
func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req question.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Update(r.Context(), id, req); err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete は質問を削除する。
// DELETE /api/questions/{id}
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like は質問の推薦を切り替える。
// 件数はこの呼び出しのレスポンスの値を使い、推薦状態はローカルの集合を切り替えて返す。
// POST /api/questions/{id}/likes
func (h *QuestionHandler) Like(w http.ResponseWriter, r *http.Request) {
	state, ok := stateFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	state.EnsureChecked(r.Context())

	count, err := h.service.Like(r.Context(), id)
	if err != nil {
		handleStateError(w, r, h.logger, state, err)
		return
	}

	writeJSON(w, http.StatusOK, likeResponse{
		LikeCount: count,
		Liked:     state.ToggleQuestionLike(id),
	})
}

// queryInt は数値のクエリパラメータを解釈する。空や不正な値はnilとして送らない。
func queryInt(v string) *int {
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return nil
	}
	return &i
}
