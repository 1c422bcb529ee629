// Package errorcode はバックエンドが返すエラーメッセージの正規テーブルを提供する。
// バックエンドのErrorCode enumと一致させること。
// ワイヤー上にはキーが含まれずメッセージ本文のみが流れるため、照合は文字列の完全一致で行う。
package errorcode

// Code はエラーコードのキーを表す。
type Code string

const (
	// 認証関連
	InvalidEmailOrPassword Code = "INVALID_EMAIL_OR_PASSWORD"
	AuthenticationFailed   Code = "AUTHENTICATION_FAILED"
	LoginRequired          Code = "LOGIN_REQUIRED"

	// 権限関連
	AccessDenied Code = "ACCESS_DENIED"

	// 会員関連
	MemberNotFound         Code = "MEMBER_NOT_FOUND"
	MemberAlreadyWithdrawn Code = "MEMBER_ALREADY_WITHDRAWN"

	// 重複関連
	DuplicateEmail          Code = "DUPLICATE_EMAIL"
	NicknameDuplicated      Code = "NICKNAME_DUPLICATED"
	NicknameLengthViolation Code = "NICKNAME_LENGTH_VIOLATION"
	NoChangesDetected       Code = "NO_CHANGES_DETECTED"

	// パスワード関連
	PasswordPolicyViolation Code = "PASSWORD_POLICY_VIOLATION"
	PasswordMismatch        Code = "PASSWORD_MISMATCH"
	PasswordSameAsCurrent   Code = "PASSWORD_SAME_AS_CURRENT"
)

// DefaultMessage はメッセージが得られなかった場合の汎用メッセージ。
const DefaultMessage = "요청에 실패했습니다."

// entry はテーブルの1行。宣言順を保持するためスライスで持つ。
type entry struct {
	code    Code
	message string
}

// table は正規メッセージの一覧。バックエンドが返す文字列と一字一句一致させる。
var table = []entry{
	{InvalidEmailOrPassword, "이메일 또는 비밀번호가 올바르지 않습니다."},
	{AuthenticationFailed, "인증에 실패했습니다."},
	{LoginRequired, "로그인이 필요합니다."},
	{AccessDenied, "본인만 수정할 수 있습니다."},
	{MemberNotFound, "회원을 찾을 수 없습니다."},
	{MemberAlreadyWithdrawn, "이미 탈퇴 처리된 회원입니다."},
	{DuplicateEmail, "이미 가입된 이메일입니다."},
	{NicknameDuplicated, "이미 사용 중인 닉네임입니다."},
	{NicknameLengthViolation, "닉네임은 2자 이상이어야 합니다."},
	{NoChangesDetected, "변경할 내용이 없습니다."},
	{PasswordPolicyViolation, "비밀번호는 8자 이상이어야 합니다."},
	{PasswordMismatch, "비밀번호와 비밀번호 확인이 일치하지 않습니다."},
	{PasswordSameAsCurrent, "현재 비밀번호와 동일한 비밀번호로는 변경할 수 없습니다."},
}

var (
	byCode    = make(map[Code]string, len(table))
	byMessage = make(map[string]Code, len(table))
)

func init() {
	for _, e := range table {
		byCode[e.code] = e.message
		byMessage[e.message] = e.code
	}
}

// Message はキーに対応する正規メッセージを返す。
// 未登録のキーには空文字列を返す。
func Message(code Code) string {
	return byCode[code]
}

// Codes は登録済みの全キーを宣言順で返す。
func Codes() []Code {
	codes := make([]Code, len(table))
	for i, e := range table {
		codes[i] = e.code
	}
	return codes
}

// Lookup はメッセージ本文からキーを逆引きする。
func Lookup(message string) (Code, bool) {
	code, ok := byMessage[message]
	return code, ok
}

// GetErrorMessage はサーバーから受け取ったメッセージを正規テーブルと照合する。
// 一致すればそのメッセージを、一致しなければ元のメッセージをそのまま返す。
// 空文字列にはDefaultMessageを返す。何度適用しても結果は変わらない。
func GetErrorMessage(message string) string {
	if message == "" {
		return DefaultMessage
	}
	if code, ok := byMessage[message]; ok {
		return byCode[code]
	}
	return message
}

// IsErrorCode はメッセージが指定キーの正規メッセージと完全一致するかを判定する。
func IsErrorCode(message string, code Code) bool {
	expected, ok := byCode[code]
	if !ok {
		return false
	}
	return message == expected
}

// NormalizeLoginError はログイン失敗時のメッセージを統一する。
// アカウントが存在しないのかパスワードが誤っているのかを区別させないため、
// 認証系のメッセージおよびHTTP 401はすべてINVALID_EMAIL_OR_PASSWORDに寄せる。
func NormalizeLoginError(message string, statusCode int) string {
	normalized := GetErrorMessage(message)
	if IsErrorCode(normalized, LoginRequired) ||
		IsErrorCode(normalized, AuthenticationFailed) ||
		IsErrorCode(normalized, InvalidEmailOrPassword) ||
		statusCode == 401 {
		return byCode[InvalidEmailOrPassword]
	}
	return normalized
}
