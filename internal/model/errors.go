// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, payment, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeDoodleNotFound       = "DOODLE_NOT_FOUND"
	ErrCodePromptNotFound       = "PROMPT_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeInvalidUsername      = "INVALID_USERNAME"
	ErrCodeUsernameTaken        = "USERNAME_TAKEN"
	ErrCodePremiumRequired      = "PREMIUM_REQUIRED"
	ErrCodeCheckoutNotReady     = "CHECKOUT_NOT_CONFIGURED"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeFetchFailed          = "FETCH_FAILED"
	ErrCodeParseFailed          = "PARSE_FAILED"
	ErrCodeImageTooLarge        = "IMAGE_TOO_LARGE"
	ErrCodeInvalidImage         = "INVALID_IMAGE"
	ErrCodeSelfFollow           = "SELF_FOLLOW_NOT_ALLOWED"
)

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "content",
		Action:   "通知IDを確認してください。",
	}
}

// NewDoodleNotFoundError は作品未検出エラーを生成する。
func NewDoodleNotFoundError(doodleID string) *APIError {
	return &APIError{
		Code:     ErrCodeDoodleNotFound,
		Message:  fmt.Sprintf("指定された作品が見つかりません: %s", doodleID),
		Category: "content",
		Action:   "作品IDを確認してください。",
	}
}

// NewPromptNotFoundError はお題未検出エラーを生成する。
func NewPromptNotFoundError(date string) *APIError {
	return &APIError{
		Code:     ErrCodePromptNotFound,
		Message:  fmt.Sprintf("指定された日付のお題が見つかりません: %s", date),
		Category: "content",
		Action:   "日付を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidUsernameError は使用できないユーザー名のエラーを生成する。
func NewInvalidUsernameError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  fmt.Sprintf("このユーザー名は使用できません: %s", reason),
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewPremiumRequiredError はプレミアム限定機能へのアクセスエラーを生成する。
func NewPremiumRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePremiumRequired,
		Message:  "この機能はプレミアム会員限定です。",
		Category: "payment",
		Action:   "プレミアムにアップグレードしてください。",
	}
}

// NewCheckoutNotConfiguredError は決済設定未完了エラーを生成する。
func NewCheckoutNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeCheckoutNotReady,
		Message:  "決済の設定が完了していません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドがありません: %s", field),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを指定してください。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "content",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "お題ソースの解析に失敗しました。",
		Category: "content",
		Action:   "ソースの形式（CSVまたはRSS/Atom）を確認してください。",
	}
}

// NewSelfFollowError は自分自身へのフォローエラーを生成する。
func NewSelfFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFollow,
		Message:  "自分自身をフォローすることはできません。",
		Category: "validation",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
func NewImageTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("画像サイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "validation",
		Action:   "画像を小さくしてから再度アップロードしてください。",
	}
}

// NewInvalidImageError は画像形式エラーを生成する。
func NewInvalidImageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  "画像の形式が不正です。PNG形式のみ対応しています。",
		Category: "validation",
		Action:   "PNG形式の画像をアップロードしてください。",
	}
}
