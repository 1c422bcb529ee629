package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/knowledgeout/internal/answer"
	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/middleware"
	"github.com/hitoshi/knowledgeout/internal/model"
	"github.com/hitoshi/knowledgeout/internal/mypage"
	"github.com/hitoshi/knowledgeout/internal/question"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// --- モック定義 ---

// mockSessionAPI はauth.SessionAPIのモック実装。
type mockSessionAPI struct {
	user     *model.Member
	liked    []model.Question
	logoutFn func(ctx context.Context) error
	probes   int
}

func (m *mockSessionAPI) ProbeCurrentUser(ctx context.Context) member.Probe {
	m.probes++
	if m.user == nil {
		return member.Anonymous()
	}
	return member.Authenticated(m.user)
}

func (m *mockSessionAPI) GetMyQuestionLikes(ctx context.Context) ([]model.Question, error) {
	return m.liked, nil
}

func (m *mockSessionAPI) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn  func(ctx context.Context, state *auth.State, cred member.Credentials) (*model.CurrentUser, error)
	signupFn func(ctx context.Context, state *auth.State, form auth.SignupForm) (*model.CurrentUser, error)
}

func (m *mockAuthService) Login(ctx context.Context, state *auth.State, cred member.Credentials) (*model.CurrentUser, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, state, cred)
	}
	user := model.CurrentUser{Email: cred.Email}
	state.Login(ctx, user)
	return &user, nil
}

func (m *mockAuthService) Signup(ctx context.Context, state *auth.State, form auth.SignupForm) (*model.CurrentUser, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, state, form)
	}
	user := model.CurrentUser{Email: form.Email, Nickname: form.Nickname}
	state.Signup(ctx, user)
	return &user, nil
}

// mockMyPageLoader はMyPageLoaderInterfaceのモック実装。
type mockMyPageLoader struct {
	loadFn func(ctx context.Context, state *auth.State) (*mypage.View, error)
}

func (m *mockMyPageLoader) Load(ctx context.Context, state *auth.State) (*mypage.View, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, state)
	}
	return &mypage.View{}, nil
}

// mockMemberService はMemberServiceInterfaceのモック実装。
type mockMemberService struct {
	updateFn   func(ctx context.Context, req member.UpdateRequest) (*model.Member, error)
	withdrawFn func(ctx context.Context) error
}

func (m *mockMemberService) UpdateMember(ctx context.Context, req member.UpdateRequest) (*model.Member, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return &model.Member{ID: 1}, nil
}

func (m *mockMemberService) Withdraw(ctx context.Context) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx)
	}
	return nil
}

// mockQuestionService はQuestionServiceInterfaceのモック実装。
type mockQuestionService struct {
	listFn   func(ctx context.Context, params question.ListParams) (*model.QuestionPage, error)
	countsFn func(ctx context.Context, params question.CountParams) model.QuestionCounts
	getFn    func(ctx context.Context, id int64) (*model.Question, error)
	createFn func(ctx context.Context, req question.CreateRequest) (int64, error)
	updateFn func(ctx context.Context, id int64, req question.UpdateRequest) error
	deleteFn func(ctx context.Context, id int64) error
	likeFn   func(ctx context.Context, id int64) (int64, error)
}

func (m *mockQuestionService) List(ctx context.Context, params question.ListParams) (*model.QuestionPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return &model.QuestionPage{Content: []model.Question{}}, nil
}

func (m *mockQuestionService) Counts(ctx context.Context, params question.CountParams) model.QuestionCounts {
	if m.countsFn != nil {
		return m.countsFn(ctx, params)
	}
	return model.QuestionCounts{}
}

func (m *mockQuestionService) Get(ctx context.Context, id int64) (*model.Question, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Question{ID: id}, nil
}

func (m *mockQuestionService) Create(ctx context.Context, req question.CreateRequest) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return 1, nil
}

func (m *mockQuestionService) Update(ctx context.Context, id int64, req question.UpdateRequest) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil
}

func (m *mockQuestionService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockQuestionService) Like(ctx context.Context, id int64) (int64, error) {
	if m.likeFn != nil {
		return m.likeFn(ctx, id)
	}
	return 0, nil
}

// mockAnswerService はAnswerServiceInterfaceのモック実装。
type mockAnswerService struct {
	listFn   func(ctx context.Context, questionID int64) ([]model.Answer, error)
	createFn func(ctx context.Context, questionID int64, req answer.Request) (int64, error)
	updateFn func(ctx context.Context, questionID, answerID int64, req answer.Request) error
	deleteFn func(ctx context.Context, questionID, answerID int64) error
	likeFn   func(ctx context.Context, answerID int64) (int64, error)
}

func (m *mockAnswerService) List(ctx context.Context, questionID int64) ([]model.Answer, error) {
	if m.listFn != nil {
		return m.listFn(ctx, questionID)
	}
	return []model.Answer{}, nil
}

func (m *mockAnswerService) Create(ctx context.Context, questionID int64, req answer.Request) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, questionID, req)
	}
	return 1, nil
}

func (m *mockAnswerService) Update(ctx context.Context, questionID, answerID int64, req answer.Request) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, questionID, answerID, req)
	}
	return nil
}

func (m *mockAnswerService) Delete(ctx context.Context, questionID, answerID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, questionID, answerID)
	}
	return nil
}

func (m *mockAnswerService) Like(ctx context.Context, answerID int64) (int64, error) {
	if m.likeFn != nil {
		return m.likeFn(ctx, answerID)
	}
	return 0, nil
}

// mockCategoryService はCategoryServiceInterfaceのモック実装。
type mockCategoryService struct {
	listFn func(ctx context.Context) ([]model.Category, error)
}

func (m *mockCategoryService) List(ctx context.Context) ([]model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Category{}, nil
}

// mockDashboardService はDashboardServiceInterfaceのモック実装。
type mockDashboardService struct {
	dashboardFn func(ctx context.Context, days int) (*model.Dashboard, error)
}

func (m *mockDashboardService) Dashboard(ctx context.Context, days int) (*model.Dashboard, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, days)
	}
	return &model.Dashboard{TopTags: []model.ItemCount{}, TopCategories: []model.ItemCount{}}, nil
}

// --- テストヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// withState はログイン状態をコンテキストに載せたリクエストを返す。
func withState(req *http.Request, api auth.SessionAPI) (*http.Request, *auth.State) {
	state := auth.NewState(api, discardLogger())
	return req.WithContext(auth.NewContext(req.Context(), state)), state
}

// withURLParams はchiのURLパラメータを設定したリクエストを返す。
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func newSanitizer() security.Sanitizer {
	return security.NewContentSanitizer()
}
