package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/errorcode"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/middleware"
	"github.com/hitoshi/knowledgeout/internal/model"
)

// maxRequestBodySize はブラウザから受け付けるリクエストボディの上限。
const maxRequestBodySize = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSON はリクエストボディをvにデコードする。失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSON"))
		return false
	}
	return true
}

// pathID はURLパラメータを正のIDとして解釈する。失敗した場合は400を書き込みfalseを返す。
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(name))
		return 0, false
	}
	return id, true
}

// stateFrom はリクエストのログイン状態を返す。AuthStateミドルウェアの外では500を書き込む。
func stateFrom(w http.ResponseWriter, r *http.Request) (*auth.State, bool) {
	state, ok := auth.FromContext(r.Context())
	if !ok {
		slog.Error("auth state is missing from request context",
			slog.String("path", r.URL.Path),
		)
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return state, true
}

// handleServiceError はバックエンド呼び出しのエラーをHTTPステータスと統一エラーに変換する。
//
//   - member.ErrLoginRequired: 401とログイン画面への遷移先
//   - *auth.FieldError: 検証エラーは400、ログイン失敗は401、バックエンドの4xxはそのまま
//   - *apiclient.ResponseError: 401はログイン必須、その他の4xxはそのまま、5xxは502
//   - タイムアウト: 504、その他の通信エラー: 502
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, apiErr := mapServiceError(err)
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeAPIErrorResponse(w, status, apiErr)
}

func mapServiceError(err error) (int, *model.APIError) {
	if errors.Is(err, member.ErrLoginRequired) {
		return http.StatusUnauthorized, model.NewLoginRequiredError()
	}

	var fieldErr *auth.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErrorStatus(fieldErr), model.NewFieldError(fieldErr.Field, fieldErr.Message)
	}

	var respErr *apiclient.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == http.StatusUnauthorized:
			apiErr := model.NewLoginRequiredError()
			if respErr.Message != "" {
				apiErr.Message = errorcode.GetErrorMessage(respErr.Message)
			}
			return http.StatusUnauthorized, apiErr
		case respErr.StatusCode >= 500:
			return http.StatusBadGateway, model.NewBackendError(respErr.Message)
		default:
			return respErr.StatusCode, model.NewBackendError(respErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, model.NewBackendUnavailableError()
	}

	var clientErr *apiclient.ClientError
	if errors.As(err, &clientErr) {
		apiErr := model.NewBackendError(clientErr.Message)
		apiErr.Category = "system"
		return http.StatusBadGateway, apiErr
	}

	return http.StatusInternalServerError, model.NewInternalError()
}

// handleStateError はセッション切れの場合にローカルの状態をログアウトしてからエラーを書き込む。
func handleStateError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, state *auth.State, err error) {
	if isLoginRequired(err) {
		state.ForceLogout()
	}
	handleServiceError(w, r, logger, err)
}

// isLoginRequired はセッション切れを示すエラーかどうかを返す。
func isLoginRequired(err error) bool {
	return errors.Is(err, member.ErrLoginRequired) || apiclient.StatusCode(err) == http.StatusUnauthorized
}

// fieldErrorStatus はフォームのエラーに対応するHTTPステータスを返す。
func fieldErrorStatus(e *auth.FieldError) int {
	switch {
	case e.Err == nil:
		return http.StatusBadRequest
	case errorcode.IsErrorCode(e.Message, errorcode.InvalidEmailOrPassword):
		return http.StatusUnauthorized
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return e.StatusCode
	default:
		return http.StatusBadGateway
	}
}
