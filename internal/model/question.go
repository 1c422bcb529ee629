package model

// Question はバックエンドの質問レスポンスを表す。
type Question struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	ContentHTML    string     `json:"contentHtml,omitempty"`
	ViewCount      int        `json:"viewCount"`
	AnswerCount    int        `json:"answerCount"`
	LikeCount      int64      `json:"likeCount"`
	CreatedAt      *Timestamp `json:"createdAt,omitempty"`
	ModifiedAt     *Timestamp `json:"modifiedAt,omitempty"`
	MemberID       int64      `json:"memberId"`
	MemberNickname string     `json:"memberNickname"`
	CategoryID     *int64     `json:"categoryId"`
	CategoryName   string     `json:"categoryName,omitempty"`
	TagNames       []string   `json:"tagNames"`
	Answers        []Answer   `json:"answers,omitempty"`
}

// QuestionPage は質問一覧のページングレスポンスを表す。
// バックエンドが配列を返した場合は1ページに全件を詰めて表現する。
type QuestionPage struct {
	Content       []Question `json:"content"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
	Number        int        `json:"number"`
	Size          int        `json:"size"`
}

// QuestionCounts は状態別の質問件数を表す。
type QuestionCounts struct {
	TotalCount    int64 `json:"totalCount"`
	PendingCount  int64 `json:"pendingCount"`
	AnsweredCount int64 `json:"answeredCount"`
}

// Answer はバックエンドの回答レスポンスを表す。
type Answer struct {
	ID             int64      `json:"id"`
	Content        string     `json:"content"`
	ContentHTML    string     `json:"contentHtml,omitempty"`
	CreatedAt      *Timestamp `json:"createdAt,omitempty"`
	ModifiedAt     *Timestamp `json:"modifiedAt,omitempty"`
	MemberID       int64      `json:"memberId"`
	MemberNickname string     `json:"memberNickname"`
}

// MyAnswer はマイページの自分の回答一覧の1件を表す。
type MyAnswer struct {
	AnswerID      int64      `json:"answerId"`
	Content       string     `json:"content"`
	ContentHTML   string     `json:"contentHtml,omitempty"`
	CreatedAt     *Timestamp `json:"createdAt,omitempty"`
	QuestionID    int64      `json:"questionId"`
	QuestionTitle string     `json:"questionTitle"`
}

// Category は質問カテゴリを表す。
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ItemCount は名前付きの件数（タグ別・カテゴリ別集計）を表す。
type ItemCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Dashboard は管理者ダッシュボードの統計情報を表す。
type Dashboard struct {
	TopTags       []ItemCount      `json:"topTags"`
	TopCategories []ItemCount      `json:"topCategories"`
	CategoryCount map[string]int64 `json:"categoryCount"`
	TagCount      map[string]int64 `json:"tagCount"`
}
