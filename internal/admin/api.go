// Package admin はバックエンドの管理者APIを呼び出す。
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// DefaultDays はダッシュボードの既定の集計期間（日数）。
const DefaultDays = 7

const msgDashboardFailed = "대시보드 정보를 불러올 수 없습니다."

// API は管理者APIのクライアント。
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

// Dashboard は指定日数分のダッシュボード統計を取得する。
// daysが0以下の場合はDefaultDaysを使う。管理者権限の判定はバックエンドが行う。
func (a *API) Dashboard(ctx context.Context, days int) (*model.Dashboard, error) {
	if days <= 0 {
		days = DefaultDays
	}

	resp, err := a.client.Get(ctx, fmt.Sprintf("/admin/dashboard?days=%d", days))
	if err != nil {
		return nil, apiclient.WrapError(err, msgDashboardFailed)
	}

	var d model.Dashboard
	if err := resp.Decode(&d); err != nil {
		a.logger.Error("ダッシュボードのデコードに失敗しました",
			slog.Int("days", days),
			slog.String("error", err.Error()),
		)
		return nil, &apiclient.ClientError{Message: msgDashboardFailed, Err: err}
	}
	if d.TopTags == nil {
		d.TopTags = []model.ItemCount{}
	}
	if d.TopCategories == nil {
		d.TopCategories = []model.ItemCount{}
	}
	return &d, nil
}
