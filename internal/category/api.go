// Package category はバックエンドのカテゴリAPIを呼び出す。
package category

import (
	"context"
	"log/slog"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/model"
)

const msgListFailed = "카테고리 목록을 불러올 수 없습니다."

// API はカテゴリAPIのクライアント。
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

// List はすべてのカテゴリを取得する。
func (a *API) List(ctx context.Context) ([]model.Category, error) {
	resp, err := a.client.Get(ctx, "/categories")
	if err != nil {
		return nil, apiclient.WrapError(err, msgListFailed)
	}

	categories := []model.Category{}
	if resp.IsEmpty() {
		return categories, nil
	}
	if err := resp.Decode(&categories); err != nil {
		a.logger.Error("カテゴリ一覧のデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, &apiclient.ClientError{Message: msgListFailed, Err: err}
	}
	return categories, nil
}
