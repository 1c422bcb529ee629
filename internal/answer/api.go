// Package answer はバックエンドの回答APIを呼び出す。
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/model"
)

const (
	msgListFailed   = "답변 목록을 불러올 수 없습니다."
	msgCreateFailed = "답변 등록에 실패했습니다."
	msgUpdateFailed = "답변 수정에 실패했습니다."
	msgDeleteFailed = "답변 삭제에 실패했습니다."
	msgLikeFailed   = "추천에 실패했습니다."
)

// Request は回答の作成・更新リクエスト。
type Request struct {
	Content string `json:"content"`
}

// API は回答APIのクライアント。
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

// List は質問に対する回答一覧を取得する。
func (a *API) List(ctx context.Context, questionID int64) ([]model.Answer, error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/questions/%d/answers", questionID))
	if err != nil {
		return nil, apiclient.WrapError(err, msgListFailed)
	}

	answers := []model.Answer{}
	if resp.IsEmpty() {
		return answers, nil
	}
	if err := resp.Decode(&answers); err != nil {
		a.logger.Error("回答一覧のデコードに失敗しました",
			slog.Int64("question_id", questionID),
			slog.String("error", err.Error()),
		)
		return nil, &apiclient.ClientError{Message: msgListFailed, Err: err}
	}
	return answers, nil
}

// Create は回答を作成し、作成された回答のIDを返す。
func (a *API) Create(ctx context.Context, questionID int64, req Request) (int64, error) {
	req.Content = strings.TrimSpace(req.Content)
	resp, err := a.client.Post(ctx, fmt.Sprintf("/questions/%d/answers", questionID), req)
	if err != nil {
		return 0, apiclient.WrapError(err, msgCreateFailed)
	}

	id, err := resp.Int64()
	if err != nil {
		a.logger.Warn("作成された回答IDを解釈できませんでした",
			slog.Int64("question_id", questionID),
			slog.String("error", err.Error()),
		)
		return 0, nil
	}
	return id, nil
}

// Update は回答を更新する。
func (a *API) Update(ctx context.Context, questionID, answerID int64, req Request) error {
	req.Content = strings.TrimSpace(req.Content)
	if _, err := a.client.Put(ctx, fmt.Sprintf("/questions/%d/answers/%d", questionID, answerID), req); err != nil {
		return apiclient.WrapError(err, msgUpdateFailed)
	}
	return nil
}

// Delete は回答を削除する。
func (a *API) Delete(ctx context.Context, questionID, answerID int64) error {
	if _, err := a.client.Delete(ctx, fmt.Sprintf("/questions/%d/answers/%d", questionID, answerID)); err != nil {
		return apiclient.WrapError(err, msgDeleteFailed)
	}
	return nil
}

// Like は回答の推薦を切り替え、この呼び出しのレスポンスに含まれる推薦数を返す。
func (a *API) Like(ctx context.Context, answerID int64) (int64, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/answers/%d/likes", answerID), nil)
	if err != nil {
		return 0, apiclient.WrapError(err, msgLikeFailed)
	}

	count, err := resp.Int64()
	if err != nil {
		var body struct {
			LikeCount int64 `json:"likeCount"`
		}
		if decErr := resp.Decode(&body); decErr != nil {
			return 0, &apiclient.ClientError{Message: msgLikeFailed, Err: err}
		}
		count = body.LikeCount
	}
	return count, nil
}
