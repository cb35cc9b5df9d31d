// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
	ErrCodeUploadFailed   = "UPLOAD_FAILED"
	ErrCodeFileListFailed = "FILE_LIST_FAILED"
	ErrCodeUploadTooLarge = "UPLOAD_TOO_LARGE"
)

// NewUnauthorizedError は認証エラーを生成する。
// リソースの存在有無を漏らさないため、メッセージは常に同一。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
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

// NewUploadFailedError はファイル保存失敗エラーを生成する。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("ファイルの保存に失敗しました: %s", reason),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFileListFailedError はファイル一覧取得失敗エラーを生成する。
func NewFileListFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeFileListFailed,
		Message:  "ファイル一覧の取得に失敗しました。",
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUploadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewUploadTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("アップロードサイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "validation",
		Action:   "ファイルサイズを小さくして再度お試しください。",
	}
}
