// Package member はバックエンドの会員・セッションAPIを呼び出す。
// 認証はセッションCookie（JSESSIONID）で行い、現在のユーザーはバックエンドが
// セッションから判定するため、このパッケージはユーザーIDを保持しない。
package member

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/errorcode"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// ErrLoginRequired はセッションがないか失効している場合のエラー。
// メッセージはLOGIN_REQUIREDの正規メッセージと一致する。
var ErrLoginRequired = errors.New(errorcode.Message(errorcode.LoginRequired))

// 既定のエラーメッセージ。
const (
	msgSignupFailed        = "회원가입에 실패했습니다."
	msgLoginFailed         = "로그인에 실패했습니다."
	msgLogoutFailed        = "로그아웃에 실패했습니다."
	msgMyPageFailed        = "마이페이지 정보를 불러올 수 없습니다."
	msgUpdateFailed        = "회원 정보 수정에 실패했습니다."
	msgMyQuestionsFailed   = "질문 목록을 불러올 수 없습니다."
	msgMyAnswersFailed     = "답변 목록을 불러올 수 없습니다."
	msgMyLikedFailed       = "추천한 질문 목록을 불러올 수 없습니다."
	msgWithdrawFailed      = "회원 탈퇴에 실패했습니다."
	defaultSignupResultMsg = "회원가입 성공"
)

// SignupRequest は会員登録のリクエスト。
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// Credentials はログインのリクエスト。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse はログイン成功時のレスポンス。
type LoginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateRequest は会員情報更新のリクエスト。nilの項目は変更しない。
type UpdateRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Password *string `json:"password,omitempty"`
}

// API は会員・セッションAPIのクライアント。
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

// Signup は会員登録を行い、バックエンドの結果メッセージを返す。
func (a *API) Signup(ctx context.Context, req SignupRequest) (string, error) {
	resp, err := a.client.Post(ctx, "/members/signup", req)
	if err != nil {
		return "", apiclient.WrapError(err, msgSignupFailed)
	}

	if resp.JSON {
		var msg string
		if err := resp.Decode(&msg); err == nil {
			return msg, nil
		}
		var lr LoginResponse
		if err := resp.Decode(&lr); err == nil && lr.Message != "" {
			return lr.Message, nil
		}
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text, nil
	}
	return defaultSignupResultMsg, nil
}

// Login はログインを行う。セッションCookieはCookieJarに記録される。
func (a *API) Login(ctx context.Context, cred Credentials) (*LoginResponse, error) {
	resp, err := a.client.Post(ctx, "/members/login", cred)
	if err != nil {
		return nil, apiclient.WrapError(err, msgLoginFailed)
	}

	lr := &LoginResponse{}
	if resp.JSON {
		if err := resp.Decode(lr); err != nil {
			a.logger.Warn("ログインレスポンスのデコードに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
	return lr, nil
}

// Logout はログアウトを行う。
func (a *API) Logout(ctx context.Context) error {
	if _, err := a.client.Post(ctx, "/members/logout", nil); err != nil {
		return apiclient.WrapError(err, msgLogoutFailed)
	}
	return nil
}

// ProbeCurrentUser は現在のセッションのユーザーを問い合わせる。
// 未ログインや通信失敗を含むすべての失敗はAnonymousとして扱い、エラーは返さない。
func (a *API) ProbeCurrentUser(ctx context.Context) Probe {
	resp, err := a.client.Get(ctx, "/members/current")
	if err != nil {
		if !apiclient.IsUnauthorized(err) {
			a.logger.Debug("現在のユーザーの取得に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return Anonymous()
	}
	if resp.StatusCode == http.StatusNoContent || resp.IsEmpty() {
		return Anonymous()
	}

	var m model.Member
	if err := resp.Decode(&m); err != nil {
		a.logger.Warn("現在のユーザーのデコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return Anonymous()
	}
	if m.ID == 0 && m.Email == "" {
		return Anonymous()
	}
	return Authenticated(&m)
}

// GetMyPage はログイン中のユーザー情報を取得する。
// 401/403の場合はErrLoginRequiredを返す。
func (a *API) GetMyPage(ctx context.Context) (*model.Member, error) {
	var m model.Member
	if err := a.getJSON(ctx, "/members/mypage", &m, msgMyPageFailed); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMember はログイン中のユーザーの会員情報を更新する。
// 更新対象のIDはGetMyPageで取得する。
func (a *API) UpdateMember(ctx context.Context, req UpdateRequest) (*model.Member, error) {
	current, err := a.GetMyPage(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Put(ctx, fmt.Sprintf("/members/%d", current.ID), req)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return nil, ErrLoginRequired
		}
		return nil, apiclient.WrapError(err, msgUpdateFailed)
	}

	if resp.JSON {
		var updated model.Member
		if err := resp.Decode(&updated); err == nil && updated.ID != 0 {
			return &updated, nil
		}
	}

	// 本文なしの成功は送った内容を反映して返す
	if req.Nickname != nil {
		current.Nickname = *req.Nickname
	}
	return current, nil
}

// GetMyQuestions はログイン中のユーザーが作成した質問一覧を取得する。
func (a *API) GetMyQuestions(ctx context.Context) ([]model.Question, error) {
	questions := []model.Question{}
	if err := a.getJSON(ctx, "/members/mypage/questions", &questions, msgMyQuestionsFailed); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetMyAnswers はログイン中のユーザーが作成した回答一覧を取得する。
func (a *API) GetMyAnswers(ctx context.Context) ([]model.MyAnswer, error) {
	answers := []model.MyAnswer{}
	if err := a.getJSON(ctx, "/members/mypage/answers", &answers, msgMyAnswersFailed); err != nil {
		return nil, err
	}
	return answers, nil
}

// GetMyQuestionLikes はログイン中のユーザーが推薦した質問一覧を取得する。
func (a *API) GetMyQuestionLikes(ctx context.Context) ([]model.Question, error) {
	questions := []model.Question{}
	if err := a.getJSON(ctx, "/members/mypage/likes", &questions, msgMyLikedFailed); err != nil {
		return nil, err
	}
	return questions, nil
}

// Withdraw はログイン中のユーザーを退会させる。
func (a *API) Withdraw(ctx context.Context) error {
	if _, err := a.client.Delete(ctx, "/members/mypage/withdraw"); err != nil {
		if apiclient.IsUnauthorized(err) {
			return ErrLoginRequired
		}
		return apiclient.WrapError(err, msgWithdrawFailed)
	}
	return nil
}

// getJSON はログイン必須のGETを発行してvにデコードする。
// 401/403はErrLoginRequired、それ以外の失敗はdefaultMessage付きのエラーになる。
func (a *API) getJSON(ctx context.Context, path string, v any, defaultMessage string) error {
	resp, err := a.client.Get(ctx, path)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return ErrLoginRequired
		}
		return apiclient.WrapError(err, defaultMessage)
	}
	if resp.IsEmpty() {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		a.logger.Error("レスポンスのデコードに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &apiclient.ClientError{Message: defaultMessage, Err: err}
	}
	return nil
}
