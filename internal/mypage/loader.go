// Package mypage はマイページに必要なデータをまとめて取得する。
package mypage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// MemberAPI はマイページの取得に必要なバックエンドAPI。
type MemberAPI interface {
	GetMyPage(ctx context.Context) (*model.Member, error)
	GetMyQuestions(ctx context.Context) ([]model.Question, error)
	GetMyAnswers(ctx context.Context) ([]model.MyAnswer, error)
	GetMyQuestionLikes(ctx context.Context) ([]model.Question, error)
}

// View はマイページの表示データ。
type View struct {
	User             *model.Member    `json:"user"`
	Questions        []model.Question `json:"questions"`
	Answers          []model.MyAnswer `json:"answers"`
	LikedQuestions   []model.Question `json:"likedQuestions"`
	LikedQuestionIDs []string         `json:"likedQuestionIds"`
}

// Loader はマイページのデータを取得する。
type Loader struct {
	api    MemberAPI
	logger *slog.Logger
}

// NewLoader はLoaderを生成する。
func NewLoader(api MemberAPI, logger *slog.Logger) *Loader {
	return &Loader{
		api:    api,
		logger: logger,
	}
}

// Load はユーザー情報を取得した後、作成した質問・回答・推薦した質問を並行して取得する。
// 一覧の取得失敗は空の一覧として扱う。ただしセッション切れの場合は残りの取得を
// 取り消し、stateをローカルでログアウトさせてmember.ErrLoginRequiredを返す。
func (l *Loader) Load(ctx context.Context, state *auth.State) (*View, error) {
	user, err := l.api.GetMyPage(ctx)
	if err != nil {
		if errors.Is(err, member.ErrLoginRequired) {
			state.ForceLogout()
			return nil, member.ErrLoginRequired
		}
		return nil, fmt.Errorf("マイページ情報の取得に失敗しました: %w", err)
	}

	view := &View{
		User:           user,
		Questions:      []model.Question{},
		Answers:        []model.MyAnswer{},
		LikedQuestions: []model.Question{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		questions, err := l.api.GetMyQuestions(gctx)
		if err != nil {
			return l.degrade("my_questions", err)
		}
		view.Questions = questions
		return nil
	})

	g.Go(func() error {
		answers, err := l.api.GetMyAnswers(gctx)
		if err != nil {
			return l.degrade("my_answers", err)
		}
		view.Answers = answers
		return nil
	})

	g.Go(func() error {
		liked, err := l.api.GetMyQuestionLikes(gctx)
		if err != nil {
			return l.degrade("my_likes", err)
		}
		view.LikedQuestions = liked
		return nil
	})

	if err := g.Wait(); err != nil {
		state.ForceLogout()
		return nil, err
	}

	ids := make([]string, 0, len(view.LikedQuestions))
	for _, q := range view.LikedQuestions {
		ids = append(ids, fmt.Sprint(q.ID))
	}
	view.LikedQuestionIDs = ids
	return view, nil
}

// degrade はセッション切れ以外の失敗をログに記録して握りつぶす。
// セッション切れの場合はエラーを返してerrgroupに残りの取得を取り消させる。
func (l *Loader) degrade(section string, err error) error {
	if errors.Is(err, member.ErrLoginRequired) {
		return member.ErrLoginRequired
	}
	l.logger.Warn("マイページの一覧取得に失敗しました",
		slog.String("section", section),
		slog.String("error", err.Error()),
	)
	return nil
}
