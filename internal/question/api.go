// Package question はバックエンドの質問APIを呼び出す。
package question

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// AllFilter はカテゴリ・状態フィルタで「すべて」を表す値。この値はクエリに含めない。
const AllFilter = "전체"

// 既定のエラーメッセージ。
const (
	msgListFailed   = "질문 목록을 불러올 수 없습니다."
	msgGetFailed    = "질문을 불러올 수 없습니다."
	msgCreateFailed = "질문 등록에 실패했습니다."
	msgUpdateFailed = "질문 수정에 실패했습니다."
	msgDeleteFailed = "질문 삭제에 실패했습니다."
	msgLikeFailed   = "추천에 실패했습니다."
)

// ListParams は質問一覧の検索条件。PageとSizeはnilの場合に送らない。
type ListParams struct {
	Page     *int
	Size     *int
	Sort     string
	Search   string
	Category string
	Tag      string
	Status   string
}

// CountParams は状態別件数の検索条件。
type CountParams struct {
	Category string
	Search   string
}

// CreateRequest は質問作成のリクエスト。
type CreateRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CategoryID *int64   `json:"categoryId,omitempty"`
	TagNames   []string `json:"tagNames,omitempty"`
}

// UpdateRequest は質問更新のリクエスト。
type UpdateRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CategoryID *int64   `json:"categoryId,omitempty"`
	TagNames   []string `json:"tagNames,omitempty"`
}

// API は質問APIのクライアント。
type API struct {
	client *apiclient.Client
	logger *slog.Logger
}

// NewAPI はAPIの新しいインスタンスを生成する。
func NewAPI(client *apiclient.Client, logger *slog.Logger) *API {
	return &API{
		client: client,
		logger: logger,
	}
}

// Query はListParamsをバックエンドのクエリ文字列に変換する。
// 検索語は前後の空白を除き、「전체」のカテゴリ・状態は省略する。
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Page != nil {
		q.Set("page", strconv.Itoa(*p.Page))
	}
	if p.Size != nil {
		q.Set("size", strconv.Itoa(*p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	if p.Category != "" && p.Category != AllFilter {
		q.Set("category", p.Category)
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.Status != "" && p.Status != AllFilter {
		q.Set("status", p.Status)
	}
	return q
}

// Query はCountParamsをバックエンドのクエリ文字列に変換する。
func (p CountParams) Query() url.Values {
	q := url.Values{}
	if p.Category != "" && p.Category != AllFilter {
		q.Set("category", p.Category)
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	return q
}

// List は質問一覧を取得する。
// バックエンドが配列を返した場合は全件を1ページとして返す。
func (a *API) List(ctx context.Context, params ListParams) (*model.QuestionPage, error) {
	resp, err := a.client.Get(ctx, withQuery("/questions", params.Query()))
	if err != nil {
		return nil, apiclient.WrapError(err, msgListFailed)
	}

	page, err := decodePage(resp.Body)
	if err != nil {
		a.logger.Error("質問一覧のデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, &apiclient.ClientError{Message: msgListFailed, Err: err}
	}
	return page, nil
}

// Counts は状態別の質問件数を取得する。
// 失敗した場合はログを記録して件数0を返す。
func (a *API) Counts(ctx context.Context, params CountParams) model.QuestionCounts {
	var counts model.QuestionCounts
	resp, err := a.client.Get(ctx, withQuery("/questions/count-summary", params.Query()))
	if err != nil {
		a.logger.Warn("質問件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.QuestionCounts{}
	}
	if err := resp.Decode(&counts); err != nil {
		a.logger.Warn("質問件数のデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return model.QuestionCounts{}
	}
	return counts
}

// Get は質問の詳細を取得する。
func (a *API) Get(ctx context.Context, id int64) (*model.Question, error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/questions/%d", id))
	if err != nil {
		return nil, apiclient.WrapError(err, msgGetFailed)
	}

	var q model.Question
	if err := resp.Decode(&q); err != nil {
		return nil, &apiclient.ClientError{Message: msgGetFailed, Err: err}
	}
	return &q, nil
}

// Create は質問を作成し、作成された質問のIDを返す。
// タグが指定されていない場合は本文の#タグから抽出する。
func (a *API) Create(ctx context.Context, req CreateRequest) (int64, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if len(req.TagNames) == 0 {
		req.TagNames = ExtractTags(req.Content)
	}

	resp, err := a.client.Post(ctx, "/questions", req)
	if err != nil {
		return 0, apiclient.WrapError(err, msgCreateFailed)
	}

	id, err := resp.Int64()
	if err != nil {
		var created struct {
			ID int64 `json:"id"`
		}
		if decErr := resp.Decode(&created); decErr != nil || created.ID == 0 {
			return 0, &apiclient.ClientError{Message: msgCreateFailed, Err: err}
		}
		id = created.ID
	}
	return id, nil
}

// Update は質問を更新する。
func (a *API) Update(ctx context.Context, id int64, req UpdateRequest) error {
	if len(req.TagNames) == 0 {
		req.TagNames = ExtractTags(req.Content)
	}
	if _, err := a.client.Put(ctx, fmt.Sprintf("/questions/%d", id), req); err != nil {
		return apiclient.WrapError(err, msgUpdateFailed)
	}
	return nil
}

// Delete は質問を削除する。
func (a *API) Delete(ctx context.Context, id int64) error {
	if _, err := a.client.Delete(ctx, fmt.Sprintf("/questions/%d", id)); err != nil {
		return apiclient.WrapError(err, msgDeleteFailed)
	}
	return nil
}

// Like は質問の推薦を切り替え、この呼び出しのレスポンスに含まれる推薦数を返す。
// 推薦数は一覧や詳細と同時に更新される保証はない。
func (a *API) Like(ctx context.Context, id int64) (int64, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/questions/%d/likes", id), nil)
	if err != nil {
		return 0, apiclient.WrapError(err, msgLikeFailed)
	}

	count, err := resp.Int64()
	if err != nil {
		return 0, &apiclient.ClientError{Message: msgLikeFailed, Err: err}
	}
	return count, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func decodePage(body []byte) (*model.QuestionPage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &model.QuestionPage{Content: []model.Question{}, TotalPages: 1}, nil
	}

	if trimmed[0] == '[' {
		var list []model.Question
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return &model.QuestionPage{
			Content:       list,
			TotalElements: int64(len(list)),
			TotalPages:    1,
			Size:          len(list),
		}, nil
	}

	var page model.QuestionPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []model.Question{}
	}
	return &page, nil
}
