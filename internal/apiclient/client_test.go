package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	opts = append([]Option{WithHTTPClient(server.Client()), WithLogger(newTestLogger(&buf))}, opts...)
	return New(server.URL, opts...), server
}

type recordingObserver struct {
	mu      sync.Mutex
	methods []string
	codes   []int
}

func (o *recordingObserver) ObserveBackendRequest(method string, statusCode int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods = append(o.methods, method)
	o.codes = append(o.codes, statusCode)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://backend/api/")
	if c.BaseURL() != "http://backend/api" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestClient_Get_DecodesJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if r.URL.Path != "/categories" {
			t.Errorf("パス = %s, want /categories", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Go"}]`))
	})

	resp, err := c.Get(context.Background(), "/categories")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
	if !resp.JSON {
		t.Error("JSONレスポンスとして判定されるべき")
	}
	var got []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.Decode(&got); err != nil {
		t.Fatalf("Decode がエラーを返した: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Go" {
		t.Errorf("got = %+v", got)
	}
}

func TestClient_Post_SendsJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("ボディのデコードに失敗: %v", err)
		}
		if body["email"] != "a@example.com" {
			t.Errorf("email = %q", body["email"])
		}
		w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
		w.Write([]byte("회원가입 성공"))
	})

	resp, err := c.Post(context.Background(), "/members/signup", map[string]string{"email": "a@example.com"})
	if err != nil {
		t.Fatalf("Post がエラーを返した: %v", err)
	}
	if resp.JSON {
		t.Error("テキストレスポンスをJSONと判定してはならない")
	}
	if resp.Text() != "회원가입 성공" {
		t.Errorf("Text = %q", resp.Text())
	}
}

func TestClient_Post_NilBodySendsEmptyObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if string(b) != "{}" {
			t.Errorf("ボディ = %q, want {}", b)
		}
		w.WriteHeader(http.StatusOK)
	})

	resp, err := c.Post(context.Background(), "/logout", nil)
	if err != nil {
		t.Fatalf("Post がエラーを返した: %v", err)
	}
	if !resp.Success() {
		t.Error("空ボディの成功レスポンスは Success であるべき")
	}
}

func TestClient_ErrorMessage_JSONMessageField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"이미 사용 중인 이메일입니다."}`))
	})

	_, err := c.Post(context.Background(), "/members/signup", nil)
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("ResponseError が返されるべき: %v", err)
	}
	if respErr.Message != "이미 사용 중인 이메일입니다." {
		t.Errorf("Message = %q", respErr.Message)
	}
	if respErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d", respErr.StatusCode)
	}
}

func TestClient_ErrorMessage_Extraction(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		status      int
		body        string
		want        string
	}{
		{"errorフィールド", http.MethodGet, "application/json", 401, `{"error":"Unauthorized"}`, "Unauthorized"},
		{"messageがerrorより優先", http.MethodGet, "application/json", 400, `{"message":"m","error":"e"}`, "m"},
		{"JSON文字列", http.MethodDelete, "application/json", 403, `"권한이 없습니다."`, "권한이 없습니다."},
		{"フィールドなしJSON", http.MethodGet, "application/json", 418, `{"status":418}`, "요청에 실패했습니다."},
		{"解析不能400", http.MethodGet, "text/html", 400, `<html>`, "잘못된 요청입니다."},
		{"解析不能409", http.MethodDelete, "", 409, `oops`, "이미 존재하는 정보입니다."},
		{"解析不能500", http.MethodGet, "application/json", 500, `{broken`, "서버 오류가 발생했습니다."},
		{"解析不能その他", http.MethodGet, "", 502, ``, "요청에 실패했습니다."},
		{"POSTテキスト本文", http.MethodPost, "text/plain", 400, "닉네임은 2자 이상 20자 이하로 입력해야 합니다.", "닉네임은 2자 이상 20자 이하로 입력해야 합니다."},
		{"PUTテキスト本文", http.MethodPut, "text/plain", 400, "변경된 내용이 없습니다.", "변경된 내용이 없습니다."},
		{"POST空本文", http.MethodPost, "text/plain", 500, "", "서버 오류가 발생했습니다."},
		{"POST壊れたJSON", http.MethodPost, "application/json", 409, `{`, "이미 존재하는 정보입니다."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			var err error
			switch tt.method {
			case http.MethodGet:
				_, err = c.Get(context.Background(), "/x")
			case http.MethodPost:
				_, err = c.Post(context.Background(), "/x", nil)
			case http.MethodPut:
				_, err = c.Put(context.Background(), "/x", nil)
			case http.MethodDelete:
				_, err = c.Delete(context.Background(), "/x")
			}
			if err == nil {
				t.Fatal("エラーが返されるべき")
			}
			if err.Error() != tt.want {
				t.Errorf("メッセージ = %q, want %q", err.Error(), tt.want)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode = %d, want %d", StatusCode(err), tt.status)
			}
		})
	}
}

func TestClient_Put_EmptyBodyIsSuccess(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Content-Length 0", ""},
		{"空白のみ", "  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})
			resp, err := c.Put(context.Background(), "/members/1", map[string]string{"nickname": "bob"})
			if err != nil {
				t.Fatalf("Put がエラーを返した: %v", err)
			}
			if !resp.Success() {
				t.Error("本文なしのPUTは Success であるべき")
			}
		})
	}
}

func TestClient_Put_TextBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("회원 정보가 수정되었습니다."))
	})
	resp, err := c.Put(context.Background(), "/members/1", nil)
	if err != nil {
		t.Fatalf("Put がエラーを返した: %v", err)
	}
	if resp.JSON || resp.Success() {
		t.Error("テキスト本文はJSONでも本文なしでもない")
	}
	if resp.Text() != "회원 정보가 수정되었습니다." {
		t.Errorf("Text = %q", resp.Text())
	}
}

func TestClient_Delete_NonJSONIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("HTTPメソッド = %s, want DELETE", r.Method)
		}
		w.Write([]byte("deleted"))
	})
	resp, err := c.Delete(context.Background(), "/questions/1")
	if err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}
	if !resp.Success() {
		t.Error("JSON以外のDELETEレスポンスは Success であるべき")
	}
}

func TestClient_Delete_JSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deleted":true}`))
	})
	resp, err := c.Delete(context.Background(), "/questions/1")
	if err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}
	if !resp.JSON || resp.Success() {
		t.Error("JSONのDELETEレスポンスはJSONとして扱うべき")
	}
}

func TestClient_WithHeader_OverridesContentType(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "text/plain" {
			t.Errorf("Content-Type = %q, want text/plain", got)
		}
		if got := r.Header.Get("X-Extra"); got != "1" {
			t.Errorf("X-Extra = %q", got)
		}
	})
	if _, err := c.Post(context.Background(), "/x", nil, WithHeader("Content-Type", "text/plain"), WithHeader("X-Extra", "1")); err != nil {
		t.Fatalf("Post がエラーを返した: %v", err)
	}
}

func TestClient_ForwardsRequestID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-ID"); got != "req-123" {
			t.Errorf("X-Request-ID = %q, want req-123", got)
		}
	})
	ctx := ContextWithRequestID(context.Background(), "req-123")
	if _, err := c.Get(ctx, "/x"); err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.Get(context.Background(), "/slow")
	if err == nil {
		t.Fatal("タイムアウトでエラーが返されるべき")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("context.DeadlineExceeded を含むべき: %v", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("通信エラーの StatusCode は 0: %d", StatusCode(err))
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Get(ctx, "/x"); !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled を返すべき: %v", err)
	}
}

func TestClient_Observer(t *testing.T) {
	obs := &recordingObserver{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}, WithObserver(obs))

	c.Get(context.Background(), "/ok")
	c.Get(context.Background(), "/fail")

	if len(obs.codes) != 2 || obs.codes[0] != 200 || obs.codes[1] != 500 {
		t.Errorf("観測結果 = %v, want [200 500]", obs.codes)
	}
}

func TestClient_WithJar_SendsAndRecordsCookies(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "new-session", Path: "/", HttpOnly: true})
		case "/members/current":
			cookie, err := r.Cookie("JSESSIONID")
			if err != nil || cookie.Value != "new-session" {
				t.Errorf("ログイン後のセッションCookieが送られていない: %v", cookie)
			}
		}
	})

	relay := NewCookieRelay([]*http.Cookie{{Name: "JSESSIONID", Value: "old-session"}})
	scoped := c.WithJar(relay)

	if _, err := scoped.Post(context.Background(), "/login", nil); err != nil {
		t.Fatalf("Post がエラーを返した: %v", err)
	}
	if _, err := scoped.Get(context.Background(), "/members/current"); err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}

	received := relay.Received()
	if len(received) != 1 || received[0].Value != "new-session" {
		t.Errorf("Received = %+v", received)
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&ResponseError{StatusCode: 401}, true},
		{&ResponseError{StatusCode: 403}, true},
		{&ResponseError{StatusCode: 404}, false},
		{errors.New("network"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsUnauthorized(tt.err); got != tt.want {
			t.Errorf("IsUnauthorized(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	if got := ErrorMessage(&ResponseError{Message: "m"}, "d"); got != "m" {
		t.Errorf("ErrorMessage = %q, want m", got)
	}
	if got := ErrorMessage(errors.New("dial tcp"), "d"); got != "d" {
		t.Errorf("ErrorMessage = %q, want d", got)
	}
}

func TestResponse_DecodeEmpty(t *testing.T) {
	r := &Response{Body: []byte("  ")}
	var v map[string]any
	if err := r.Decode(&v); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("ErrEmptyBody を返すべき: %v", err)
	}
}

func TestClient_ContextCookieJar(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "from-context" {
			t.Errorf("コンテキストのJarのCookieが送られていない: %v", cookie)
		}
	})

	relay := NewCookieRelay([]*http.Cookie{{Name: "JSESSIONID", Value: "from-context"}})
	ctx := ContextWithCookieJar(context.Background(), relay)
	if _, err := c.Get(ctx, "/members/current"); err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
}

func TestClient_NoRelay_DoesNotShareCookies(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "alice-session", Path: "/"})
			return
		}
		if cookie, err := r.Cookie("JSESSIONID"); err == nil {
			t.Errorf("中継Jarなしの呼び出しに別リクエストのCookieが送られた: %v", cookie)
		}
	})

	if _, err := c.Post(context.Background(), "/members/login", nil); err != nil {
		t.Fatalf("1回目の呼び出しがエラーを返した: %v", err)
	}
	if _, err := c.Get(context.Background(), "/members/current"); err != nil {
		t.Fatalf("2回目の呼び出しがエラーを返した: %v", err)
	}
	if calls != 2 {
		t.Fatalf("呼び出し回数 = %d, want 2", calls)
	}
}

func TestClient_WithHTTPClient_IgnoresSharedJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("JSESSIONID"); err == nil {
			t.Errorf("共有JarのCookieが送られた: %v", cookie)
		}
	}))
	t.Cleanup(server.Close)

	hc := server.Client()
	hc.Jar = NewCookieRelay([]*http.Cookie{{Name: "JSESSIONID", Value: "shared"}})
	c := New(server.URL, WithHTTPClient(hc))
	if _, err := c.Get(context.Background(), "/members/current"); err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
}

func TestClient_ResponseTooLarge(t *testing.T) {
	observer := &recordingObserver{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(bytes.Repeat([]byte("a"), maxResponseSize+1))
	}, WithObserver(observer))

	_, err := c.Get(context.Background(), "/questions")
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("err = %v, want ErrResponseTooLarge", err)
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		t.Errorf("サイズ超過は ResponseError ではなく通信エラーとして扱うべき: %v", err)
	}
	if len(observer.codes) != 1 || observer.codes[0] != http.StatusOK {
		t.Errorf("observer codes = %v, want [200]", observer.codes)
	}
}

func TestClient_ResponseAtLimitIsAccepted(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), maxResponseSize))
	})

	resp, err := c.Get(context.Background(), "/questions")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
	if len(resp.Body) != maxResponseSize {
		t.Errorf("len(Body) = %d, want %d", len(resp.Body), maxResponseSize)
	}
}

func TestWrapError(t *testing.T) {
	respErr := &ResponseError{Message: "m", StatusCode: 400}
	if got := WrapError(respErr, "d"); got != respErr {
		t.Errorf("ResponseError はそのまま返すべき: %v", got)
	}

	wrapped := WrapError(context.DeadlineExceeded, "d")
	if wrapped.Error() != "d" {
		t.Errorf("メッセージ = %q, want d", wrapped.Error())
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("元のエラーを Unwrap できるべき")
	}
	if WrapError(nil, "d") != nil {
		t.Error("nil は nil のまま返すべき")
	}
}

func TestResponse_Int64(t *testing.T) {
	tests := []struct {
		body    string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" 7\n", 7, false},
		{`"13"`, 13, false},
		{"", 0, true},
		{`{"count":1}`, 0, true},
	}
	for _, tt := range tests {
		got, err := (&Response{Body: []byte(tt.body)}).Int64()
		if (err != nil) != tt.wantErr {
			t.Errorf("Int64(%q) err = %v, wantErr %v", tt.body, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Int64(%q) = %d, want %d", tt.body, got, tt.want)
		}
	}
}
