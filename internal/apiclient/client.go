// Package apiclient はバックエンドAPIへのHTTPリクエストを共通化するクライアントを提供する。
// 全リクエストでJSONボディ・Cookie送信・エラーメッセージ抽出を統一的に扱う。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL はバックエンドAPIのデフォルトのベースURL。
	DefaultBaseURL = "http://localhost:8080/api/knowledgeout"
	// defaultTimeout は1リクエストあたりのデフォルトのタイムアウト。
	defaultTimeout = 10 * time.Second
	// maxResponseSize はレスポンスボディの最大読み取りサイズ（5MB）。
	maxResponseSize = 5 << 20
	// userAgent はバックエンドに送るUser-Agent。
	userAgent = "Knowledgeout-Web/1.0"
	// requestIDHeader はリクエストIDを伝搬するヘッダー名。
	requestIDHeader = "X-Request-ID"
)

// ErrResponseTooLarge はレスポンスボディがmaxResponseSizeを超えた場合のエラー。
var ErrResponseTooLarge = errors.New("レスポンスボディが大きすぎます")

// Observer はバックエンド呼び出しの結果を受け取るインターフェース。
// 通信エラーの場合statusCodeは0になる。
type Observer interface {
	ObserveBackendRequest(method string, statusCode int, duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
// ベースURLに対する相対パスでGET/POST/PUT/DELETEを発行する。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
	timeout    time.Duration
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithHTTPClient は使用するhttp.Clientを差し替える。
// 渡されたJarは無視し、Cookieはリクエストごとのコンテキストまたは WithJar でのみ扱う。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		copied.Jar = discardJar{}
		c.httpClient = &copied
	}
}

// discardJar はCookieを保存も送信もしないJar。
// 複数ユーザーのリクエストを扱うため、既定ではセッションCookieを共有しない。
type discardJar struct{}

func (discardJar) SetCookies(*url.URL, []*http.Cookie) {}

func (discardJar) Cookies(*url.URL) []*http.Cookie { return nil }

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver はバックエンド呼び出しの観測者を設定する。
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithTimeout は1リクエストあたりのタイムアウトを設定する。0以下の場合はタイムアウトなし。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: discardJar{}},
		logger:     slog.Default(),
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithJar は指定したCookieJarを使う複製を返す。
// BFFではブラウザのリクエストごとにCookieRelayを渡して使う。
func (c *Client) WithJar(jar http.CookieJar) *Client {
	hc := *c.httpClient
	hc.Jar = jar

	copied := *c
	copied.httpClient = &hc
	return &copied
}

// jarKey はコンテキストにCookieJarを格納するためのキー。
type jarKey struct{}

// ContextWithCookieJar はコンテキストにCookieJarを注入する。
// 注入されたJarはClient既定のJarより優先して使われる。
func ContextWithCookieJar(ctx context.Context, jar http.CookieJar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

func jarFromContext(ctx context.Context) http.CookieJar {
	jar, _ := ctx.Value(jarKey{}).(http.CookieJar)
	return jar
}

// BaseURL はベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption は個々のリクエストのオプション。
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

// WithHeader はリクエストヘッダーを追加・上書きする。
// Content-Typeを指定した場合はデフォルトのapplication/jsonを置き換える。
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.headers.Set(key, value)
	}
}

// Get はGETリクエストを発行する。
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, false, opts)
	if err != nil {
		return nil, err
	}
	return finishDefault(resp), nil
}

// Post はPOSTリクエストを発行する。bodyがnilの場合は空オブジェクトを送る。
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body, true, opts)
	if err != nil {
		return nil, err
	}
	return finishDefault(resp), nil
}

// Put はPUTリクエストを発行する。bodyがnilの場合は空オブジェクトを送る。
// 本文なし（Content-Length: 0 または空白のみ）のレスポンスは成功扱いにする。
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPut, path, body, true, opts)
	if err != nil {
		return nil, err
	}
	return finishPut(resp), nil
}

// Delete はDELETEリクエストを発行する。
// JSON以外のレスポンスは成功扱いにする。
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	resp, err := c.do(ctx, http.MethodDelete, path, nil, false, opts)
	if err != nil {
		return nil, err
	}
	return finishDelete(resp), nil
}

// do はリクエストを組み立てて送信し、ボディを読み切った結果を返す。
// 2xx以外のステータスは*ResponseErrorとして返す。
func (c *Client) do(ctx context.Context, method, path string, body any, hasBody bool, opts []RequestOption) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rc := &requestConfig{headers: make(http.Header)}
	for _, opt := range opts {
		opt(rc)
	}

	var reader io.Reader
	if hasBody {
		if body == nil {
			body = struct{}{}
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	for key, values := range rc.headers {
		req.Header[key] = values
	}

	hc := c.httpClient
	if jar := jarFromContext(ctx); jar != nil {
		scoped := *hc
		scoped.Jar = jar
		hc = &scoped
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.observe(method, 0, time.Since(start))
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s %s の呼び出しに失敗しました: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	c.observe(method, resp.StatusCode, time.Since(start))
	if err == nil && len(data) > maxResponseSize {
		err = fmt.Errorf("%w: %d バイトを超えています", ErrResponseTooLarge, maxResponseSize)
	}
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respErr := newResponseError(method, resp, data)
		level := slog.LevelDebug
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "バックエンドAPIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", respErr.Message),
		)
		return nil, respErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) observe(method string, statusCode int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(method, statusCode, d)
	}
}

// requestIDKey はコンテキストにリクエストIDを格納するためのキー。
type requestIDKey struct{}

// ContextWithRequestID はコンテキストにリクエストIDを注入する。
// 注入されたIDはバックエンドへのリクエストにX-Request-IDとして付与される。
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
