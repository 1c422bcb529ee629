package member

import "github.com/hitoshi/knowledgeout/internal/model"

// Probe はセッション問い合わせの結果。未ログインかログイン済みのどちらか。
type Probe struct {
	user *model.Member
}

// Anonymous は未ログインを表すProbeを返す。
func Anonymous() Probe {
	return Probe{}
}

// Authenticated はログイン済みを表すProbeを返す。userがnilの場合はAnonymousと同じ。
func Authenticated(user *model.Member) Probe {
	return Probe{user: user}
}

// User はログイン済みの場合にユーザーを返す。
func (p Probe) User() (*model.Member, bool) {
	return p.user, p.user != nil
}

// IsAuthenticated はログイン済みかどうかを返す。
func (p Probe) IsAuthenticated() bool {
	return p.user != nil
}
