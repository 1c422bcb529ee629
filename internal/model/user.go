// Package model はドメインモデルを定義する。
package model

import "strings"

// Role は会員の権限を表す。
type Role string

const (
	// RoleUser は一般会員。
	RoleUser Role = "ROLE_USER"
	// RoleAdmin は管理者。ダッシュボードへの導線表示に使う（クライアント側の判定は参考情報に過ぎない）。
	RoleAdmin Role = "ROLE_ADMIN"
)

// deletedUserPrefix は退会済み会員のニックネームに付与される接頭辞。
const deletedUserPrefix = "deletedUser_"

// deletedUserDisplayName は退会済み会員の表示名。
const deletedUserDisplayName = "탈퇴한 사용자"

// Member はバックエンドの会員レスポンスを表す。
type Member struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Nickname   string     `json:"nickname"`
	Role       Role       `json:"role"`
	Status     string     `json:"status,omitempty"`
	CreatedAt  *Timestamp `json:"createdAt,omitempty"`
	ModifiedAt *Timestamp `json:"modifiedAt,omitempty"`
}

// CurrentUser はフロントエンドが保持するログイン中ユーザーを表す。
// プロフィール取得に失敗した場合はEmailのみ、またはEmailとNicknameのみで生成されることがある。
type CurrentUser struct {
	ID       int64  `json:"id,omitempty"`
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// ToCurrentUser はMemberからCurrentUserを生成する。
func (m *Member) ToCurrentUser() *CurrentUser {
	return &CurrentUser{
		ID:       m.ID,
		Email:    m.Email,
		Nickname: m.Nickname,
		Role:     m.Role,
	}
}

// IsAdmin は管理者ロールかどうかを返す。
func (u *CurrentUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsDeletedUser は退会済み会員のニックネームかどうかを判定する。
// ニックネームが空の場合も退会済みとして扱う。
func IsDeletedUser(nickname string) bool {
	return nickname == "" || strings.HasPrefix(nickname, deletedUserPrefix)
}

// DisplayName は画面表示用のニックネームを返す。
func DisplayName(nickname string) string {
	if IsDeletedUser(nickname) {
		return deletedUserDisplayName
	}
	return nickname
}
