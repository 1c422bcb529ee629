package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/knowledgeout/internal/errorcode"
)

// ErrEmptyBody はJSONとしてデコードすべき本文が空だった場合のエラー。
var ErrEmptyBody = errors.New("レスポンスボディが空です")

// statusFallbackMessages はエラーボディから文言を取り出せない場合のステータス別メッセージ。
var statusFallbackMessages = map[int]string{
	http.StatusBadRequest:          "잘못된 요청입니다.",
	http.StatusConflict:            "이미 존재하는 정보입니다.",
	http.StatusInternalServerError: "서버 오류가 발생했습니다.",
}

// Response はバックエンドの成功レスポンスを表す。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// JSON はボディがJSONとして解釈できることを示す。
	JSON bool
	// void は本文なしの成功（PUTの空ボディ、DELETEの非JSONなど）を示す。
	void bool
}

// Decode はJSONボディをvにデコードする。
func (r *Response) Decode(v any) error {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(r.Body, v)
}

// Text はボディを文字列として返す。
func (r *Response) Text() string {
	return string(r.Body)
}

// IsEmpty はボディが空（空白のみを含む）かどうかを返す。
func (r *Response) IsEmpty() bool {
	return strings.TrimSpace(string(r.Body)) == ""
}

// Int64 はボディを整数として解釈する。
// JSONの数値と数字のみのテキストの両方を受け付ける（バックエンドはIDや件数を素のLongで返す）。
func (r *Response) Int64() (int64, error) {
	text := strings.TrimSpace(string(r.Body))
	if text == "" {
		return 0, ErrEmptyBody
	}
	var n json.Number
	if err := json.Unmarshal([]byte(text), &n); err == nil {
		return n.Int64()
	}
	return strconv.ParseInt(strings.Trim(text, `"`), 10, 64)
}

// Success は本文なしの成功レスポンスかどうかを返す。
func (r *Response) Success() bool {
	return r.void
}

// isJSONContent はContent-TypeがJSONかどうかを判定する。
func isJSONContent(h http.Header) bool {
	return strings.Contains(h.Get("Content-Type"), "application/json")
}

// finishDefault はGET/POSTのレスポンスを確定する。
func finishDefault(r *Response) *Response {
	r.JSON = isJSONContent(r.Header) && json.Valid(r.Body)
	r.void = r.IsEmpty()
	return r
}

// finishPut はPUTのレスポンスを確定する。
// Content-Length: 0 または空白のみの本文は成功扱い。JSONとして解釈できない本文はテキストとして扱う。
func finishPut(r *Response) *Response {
	if r.Header.Get("Content-Length") == "0" || r.IsEmpty() {
		r.void = true
		return r
	}
	r.JSON = isJSONContent(r.Header) && json.Valid(r.Body)
	return r
}

// finishDelete はDELETEのレスポンスを確定する。JSON以外は成功扱い。
func finishDelete(r *Response) *Response {
	if isJSONContent(r.Header) && json.Valid(r.Body) {
		r.JSON = true
		return r
	}
	r.void = true
	return r
}

// ResponseError はバックエンドが2xx以外を返した場合のエラー。
// Messageはバックエンドの文言そのもので、errorcodeの正規メッセージと比較できる。
type ResponseError struct {
	Message    string
	StatusCode int
	Header     http.Header
}

// Error はerrorインターフェースを実装する。
func (e *ResponseError) Error() string {
	return e.Message
}

// StatusCode はerrがResponseErrorの場合にそのステータスコードを返す。それ以外は0。
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsUnauthorized はerrが401または403のResponseErrorかどうかを返す。
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// ErrorMessage はerrがResponseErrorの場合はバックエンドの文言を、
// それ以外はdefaultMessageを返す。
func ErrorMessage(err error, defaultMessage string) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.Message != "" {
		return respErr.Message
	}
	return defaultMessage
}

// ClientError はバックエンドに到達できなかった場合など、
// ステータスコードを伴わない失敗にユーザー向けの文言を付けたエラー。
type ClientError struct {
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *ClientError) Error() string {
	return e.Message
}

// Unwrap は元のエラーを返す。
func (e *ClientError) Unwrap() error {
	return e.Err
}

// WrapError はerrにユーザー向けの文言を付ける。
// ResponseErrorはバックエンドの文言を持つためそのまま返し、
// それ以外はdefaultMessageを持つClientErrorで包む。
func WrapError(err error, defaultMessage string) error {
	if err == nil {
		return nil
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return &ClientError{Message: defaultMessage, Err: err}
}

func newResponseError(method string, resp *http.Response, body []byte) *ResponseError {
	return &ResponseError{
		Message:    extractErrorMessage(method, resp.Header, resp.StatusCode, body),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
}

// extractErrorMessage はエラーレスポンスからユーザー向けの文言を取り出す。
// JSONの場合はmessage、error、文字列そのものの順に採用する。
// POST/PUTでJSON以外の本文が返った場合は本文をそのまま文言とする。
// 解析できない場合はステータス別の定型文言にフォールバックする。
func extractErrorMessage(method string, h http.Header, statusCode int, body []byte) string {
	textual := method == http.MethodPost || method == http.MethodPut
	if textual && !isJSONContent(h) {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		return fallbackMessage(statusCode)
	}

	if msg, ok := messageFromJSON(body); ok {
		return msg
	}
	return fallbackMessage(statusCode)
}

func messageFromJSON(body []byte) (string, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t["message"].(string); ok && s != "" {
			return s, true
		}
		if s, ok := t["error"].(string); ok && s != "" {
			return s, true
		}
	case string:
		if t != "" {
			return t, true
		}
	}
	return errorcode.DefaultMessage, true
}

func fallbackMessage(statusCode int) string {
	if msg, ok := statusFallbackMessages[statusCode]; ok {
		return msg
	}
	return errorcode.DefaultMessage
}
