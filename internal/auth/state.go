// Package auth はログイン状態の管理とログイン・会員登録フローを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// SessionAPI はログイン状態の確認に必要なバックエンドAPI。
type SessionAPI interface {
	ProbeCurrentUser(ctx context.Context) member.Probe
	GetMyQuestionLikes(ctx context.Context) ([]model.Question, error)
	Logout(ctx context.Context) error
}

// Observer はログイン状態の変化を受け取るインターフェース。
type Observer interface {
	ObserveAuthProbe(authenticated bool)
	ObserveForcedLogout()
}

// Snapshot はログイン状態のJSON表現。
type Snapshot struct {
	CurrentUser      *model.CurrentUser `json:"currentUser"`
	IsAuthenticated  bool               `json:"isAuthenticated"`
	IsAdmin          bool               `json:"isAdmin"`
	IsCheckingAuth   bool               `json:"isCheckingAuth"`
	LikedQuestionIDs []string           `json:"likedQuestionIds"`
}

// State はログイン中のユーザーと推薦済み質問IDの集合を保持する。
// 複数のgoroutineから同時に使える。BFFではブラウザのリクエストごとに1つ生成する。
type State struct {
	api      SessionAPI
	logger   *slog.Logger
	observer Observer

	mu       sync.RWMutex
	checking bool
	checked  bool
	user     *model.CurrentUser
	liked    map[string]struct{}
}

// StateOption はStateの生成オプション。
type StateOption func(*State)

// WithObserver はログイン状態の観測者を設定する。
func WithObserver(o Observer) StateOption {
	return func(s *State) {
		s.observer = o
	}
}

// NewState はStateを生成する。最初のCheckAuthが完了するまでIsCheckingAuthはtrueを返す。
func NewState(api SessionAPI, logger *slog.Logger, opts ...StateOption) *State {
	s := &State{
		api:      api,
		logger:   logger,
		checking: true,
		liked:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsCheckingAuth は最初のログイン状態確認が完了していないかどうかを返す。
func (s *State) IsCheckingAuth() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checking
}

// CurrentUser はログイン中のユーザーのコピーを返す。未ログインの場合はnil。
func (s *State) CurrentUser() *model.CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated はログイン済みかどうかを返す。
func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin はログイン中のユーザーが管理者ロールを持つかどうかを返す。
// 画面表示の切り替え用で、権限の最終判定はバックエンドが行う。
func (s *State) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// LikedQuestionIDs は推薦済みの質問IDを昇順で返す。
func (s *State) LikedQuestionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.likedIDsLocked()
}

// HasLiked は質問を推薦済みかどうかを返す。IDは文字列形式で比較する。
func (s *State) HasLiked(questionID any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[idKey(questionID)]
	return ok
}

// CheckAuth はバックエンドにセッションを問い合わせて状態を更新する。
// ログイン済みの場合は推薦済み質問も取得する（失敗時は空集合）。
// 問い合わせの失敗は未ログインとして扱い、エラーは返さない。
func (s *State) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	s.checking = true
	s.mu.Unlock()

	probe := s.api.ProbeCurrentUser(ctx)
	m, ok := probe.User()
	if s.observer != nil {
		s.observer.ObserveAuthProbe(ok)
	}

	if !ok {
		s.mu.Lock()
		s.user = nil
		s.liked = make(map[string]struct{})
		s.checking = false
		s.checked = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.user = m.ToCurrentUser()
	s.mu.Unlock()

	liked := s.fetchLiked(ctx)

	s.mu.Lock()
	s.liked = liked
	s.checking = false
	s.checked = true
	s.mu.Unlock()
}

// EnsureChecked はまだ一度もCheckAuthしていない場合にだけCheckAuthを実行する。
func (s *State) EnsureChecked(ctx context.Context) {
	s.mu.RLock()
	checked := s.checked
	s.mu.RUnlock()
	if !checked {
		s.CheckAuth(ctx)
	}
}

// Login は呼び出し側が取得したユーザーでログイン状態にし、推薦済み質問を取り直す。
func (s *State) Login(ctx context.Context, user model.CurrentUser) {
	s.mu.Lock()
	s.user = &user
	s.checking = false
	s.checked = true
	s.mu.Unlock()

	liked := s.fetchLiked(ctx)

	s.mu.Lock()
	s.liked = liked
	s.mu.Unlock()
}

// Signup は会員登録直後のユーザーでログイン状態にする。Loginと同じ動作。
func (s *State) Signup(ctx context.Context, user model.CurrentUser) {
	s.Login(ctx, user)
}

// Logout はバックエンドのログアウトを呼び出し、結果に関わらずローカルの状態を消去する。
// 返されるエラーはログ記録用で、状態は常に未ログインになる。
func (s *State) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		s.logger.Warn("ログアウトAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	s.clear()
	return err
}

// ForceLogout はバックエンドを呼ばずにローカルの状態を消去する。
// ログイン必須のAPIがセッション切れを報告した場合に使う。
func (s *State) ForceLogout() {
	if s.observer != nil {
		s.observer.ObserveForcedLogout()
	}
	s.clear()
}

// ToggleQuestionLike は推薦済み集合の質問IDを追加・削除し、変更後に含まれているかを返す。
// ネットワーク呼び出しは行わない。
func (s *State) ToggleQuestionLike(questionID any) bool {
	key := idKey(questionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liked[key]; ok {
		delete(s.liked, key)
		return false
	}
	s.liked[key] = struct{}{}
	return true
}

// Snapshot は現在の状態のコピーを返す。
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user *model.CurrentUser
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return Snapshot{
		CurrentUser:      user,
		IsAuthenticated:  s.user != nil,
		IsAdmin:          s.user.IsAdmin(),
		IsCheckingAuth:   s.checking,
		LikedQuestionIDs: s.likedIDsLocked(),
	}
}

func (s *State) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.liked = make(map[string]struct{})
	s.checking = false
	s.checked = true
}

// fetchLiked は推薦済み質問を取得してID集合を返す。失敗時は空集合。
func (s *State) fetchLiked(ctx context.Context) map[string]struct{} {
	liked := make(map[string]struct{})
	questions, err := s.api.GetMyQuestionLikes(ctx)
	if err != nil {
		s.logger.Warn("推薦済み質問の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return liked
	}
	for _, q := range questions {
		liked[idKey(q.ID)] = struct{}{}
	}
	return liked
}

func (s *State) likedIDsLocked() []string {
	ids := make([]string, 0, len(s.liked))
	for id := range s.liked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// idKey は質問IDを集合のキー（文字列形式）に変換する。
func idKey(id any) string {
	return fmt.Sprint(id)
}
