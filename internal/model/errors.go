// Package model はドメインモデルを定義する。
package model

import (
	"fmt"

	"github.com/hitoshi/knowledgeout/internal/errorcode"
)

// APIError はブラウザに返す統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, backend, system
	Action   string // ユーザー向け対処方法
	Field    string // フォーム項目に紐づくエラーの場合の項目名
	Redirect string // 遷移先（ログイン必須エラーなど）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// BFF独自のエラーコード。バックエンド由来のコードはerrorcodeパッケージを参照。
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeBackendError   = "BACKEND_ERROR"
	ErrCodeBackendDown    = "BACKEND_UNAVAILABLE"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeForbidden      = "FORBIDDEN"
)

// LoginPath はログイン必須エラー時の遷移先。
const LoginPath = "/login"

// NewLoginRequiredError はログイン必須エラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     string(errorcode.LoginRequired),
		Message:  errorcode.Message(errorcode.LoginRequired),
		Category: "auth",
		Action:   "로그인 페이지로 이동합니다.",
		Redirect: LoginPath,
	}
}

// NewInvalidRequestError はリクエストボディ不正のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("잘못된 요청입니다: %s", reason),
		Category: "validation",
		Action:   "입력 내용을 확인해 주세요.",
	}
}

// NewFieldError はフォーム項目に紐づく検証エラーを生成する。
// メッセージが正規テーブルに含まれる場合はそのキーをCodeとする。
func NewFieldError(field, message string) *APIError {
	e := NewBackendError(message)
	e.Category = "validation"
	e.Field = field
	return e
}

// NewBackendError はバックエンドが返したメッセージからエラーを生成する。
// メッセージが正規テーブルに含まれる場合はそのキーをCodeとする。
func NewBackendError(message string) *APIError {
	message = errorcode.GetErrorMessage(message)
	code := ErrCodeBackendError
	if c, ok := errorcode.Lookup(message); ok {
		code = string(c)
	}
	return &APIError{
		Code:     code,
		Message:  message,
		Category: "backend",
		Action:   "",
	}
}

// NewBackendUnavailableError はバックエンドに到達できない場合のエラーを生成する。
func NewBackendUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendDown,
		Message:  "서버에 연결할 수 없습니다.",
		Category: "system",
		Action:   "잠시 후 다시 시도해 주세요.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "서버 오류가 발생했습니다.",
		Category: "system",
		Action:   "잠시 후 다시 시도해 주세요.",
	}
}
