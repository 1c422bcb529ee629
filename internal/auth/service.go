package auth

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/errorcode"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// 会員登録フォームの項目名。
const (
	FieldEmail           = "email"
	FieldNickname        = "nickname"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

// 会員登録の入力制約。
const (
	minNicknameLength = 2
	minPasswordLength = 8
)

// MemberAPI はログイン・会員登録フローに必要なバックエンドAPI。
type MemberAPI interface {
	SessionAPI
	Login(ctx context.Context, cred member.Credentials) (*member.LoginResponse, error)
	Signup(ctx context.Context, req member.SignupRequest) (string, error)
}

// SignupForm は会員登録フォームの入力値。
type SignupForm struct {
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// FieldError はフォームに表示するエラー。Fieldが空の場合はフォーム全体のエラー。
type FieldError struct {
	Field   string
	Message string
	// StatusCode はバックエンドのステータスコード。クライアント側の検証エラーでは0。
	StatusCode int
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FieldError) Error() string {
	return e.Message
}

// Unwrap は元のエラーを返す。
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Service はログイン・会員登録のフローを提供する。
type Service struct {
	api    MemberAPI
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(api MemberAPI, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		logger: logger,
	}
}

// Login はログインし、セッションのユーザーでstateを更新する。
// ユーザー情報を取得できない場合はメールアドレスのみのユーザーとする。
// 認証失敗のエラーメッセージはINVALID_EMAIL_OR_PASSWORDに統一する。
func (s *Service) Login(ctx context.Context, state *State, cred member.Credentials) (*model.CurrentUser, error) {
	if _, err := s.api.Login(ctx, cred); err != nil {
		status := apiclient.StatusCode(err)
		msg := errorcode.NormalizeLoginError(err.Error(), status)
		s.logger.Info("ログインに失敗しました",
			slog.Int("http_status", status),
			slog.String("message", msg),
		)
		return nil, &FieldError{Message: msg, StatusCode: status, Err: err}
	}

	user := s.resolveUser(ctx, model.CurrentUser{Email: cred.Email})
	state.Login(ctx, user)
	return &user, nil
}

// Signup は入力を検証して会員登録し、続けて自動ログインする。
// 検証エラーの場合はバックエンドを呼ばない。自動ログインやユーザー情報の取得に
// 失敗した場合はフォームのメールアドレスとニックネームでstateを更新する。
func (s *Service) Signup(ctx context.Context, state *State, form SignupForm) (*model.CurrentUser, error) {
	if err := ValidateSignup(form); err != nil {
		return nil, err
	}

	if _, err := s.api.Signup(ctx, member.SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		Nickname: form.Nickname,
	}); err != nil {
		msg := errorcode.GetErrorMessage(err.Error())
		return nil, &FieldError{
			Field:      signupErrorField(msg),
			Message:    msg,
			StatusCode: apiclient.StatusCode(err),
			Err:        err,
		}
	}

	fallback := model.CurrentUser{Email: form.Email, Nickname: form.Nickname}
	user := fallback
	if _, err := s.api.Login(ctx, member.Credentials{Email: form.Email, Password: form.Password}); err != nil {
		s.logger.Warn("会員登録後の自動ログインに失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		user = s.resolveUser(ctx, fallback)
	}

	state.Signup(ctx, user)
	return &user, nil
}

// resolveUser はセッションのユーザーを取得する。取得できない場合はfallbackを返す。
func (s *Service) resolveUser(ctx context.Context, fallback model.CurrentUser) model.CurrentUser {
	m, ok := s.api.ProbeCurrentUser(ctx).User()
	if !ok {
		return fallback
	}
	return *m.ToCurrentUser()
}

// ValidateSignup は会員登録フォームをクライアント側で検証する。
// ニックネーム、パスワード長、パスワード確認の順に調べ、最初のエラーを返す。
func ValidateSignup(form SignupForm) error {
	if utf8.RuneCountInString(strings.TrimSpace(form.Nickname)) < minNicknameLength {
		return &FieldError{
			Field:   FieldNickname,
			Message: errorcode.Message(errorcode.NicknameLengthViolation),
		}
	}
	if utf8.RuneCountInString(form.Password) < minPasswordLength {
		return &FieldError{
			Field:   FieldPassword,
			Message: errorcode.Message(errorcode.PasswordPolicyViolation),
		}
	}
	if form.Password != form.ConfirmPassword {
		return &FieldError{
			Field:   FieldConfirmPassword,
			Message: errorcode.Message(errorcode.PasswordMismatch),
		}
	}
	return nil
}

// signupErrorField はバックエンドのエラーメッセージに対応するフォーム項目を返す。
func signupErrorField(msg string) string {
	switch {
	case errorcode.IsErrorCode(msg, errorcode.DuplicateEmail):
		return FieldEmail
	case errorcode.IsErrorCode(msg, errorcode.NicknameDuplicated):
		return FieldNickname
	case errorcode.IsErrorCode(msg, errorcode.PasswordPolicyViolation):
		return FieldPassword
	default:
		return ""
	}
}
