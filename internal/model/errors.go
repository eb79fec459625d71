// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"time"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, content, rate_limit, auth, system
	Action   string // ユーザー向け対処方法

	// RetryAfter はレート制限時の再試行までの推奨待機時間。レスポンスボディには含めない。
	RetryAfter time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ErrStorageUnavailable はストレージに到達できないことを示す。
// 匿名IDの発行や投稿の保存に失敗した場合、呼び出し元へそのまま伝播させる。
var ErrStorageUnavailable = errors.New("storage unavailable")

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeContentPII         = "CONTENT_VIOLATION_PII"
	ErrCodeContentHarmful     = "CONTENT_VIOLATION_HARMFUL"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeOpinionNotFound    = "OPINION_NOT_FOUND"
	ErrCodeSolutionNotFound   = "SOLUTION_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力形式の不正を表すエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
// 検証エラーとは別のコードを返し、クライアントが「時間をおいて再試行」と表示できるようにする。
func NewRateLimitedError(retryAfter time.Duration) *APIError {
	return &APIError{
		Code:       ErrCodeRateLimited,
		Message:    "短時間に操作が集中しています。",
		Category:   "rate_limit",
		Action:     "しばらく待ってから再度お試しください。",
		RetryAfter: retryAfter,
	}
}

// NewContentPIIError は個人情報を含む投稿の拒否エラーを生成する。
// どの箇所が一致したかは返さない。
func NewContentPIIError() *APIError {
	return &APIError{
		Code:     ErrCodeContentPII,
		Message:  "個人を特定できる情報が含まれている可能性があります。",
		Category: "content",
		Action:   "メールアドレス・電話番号・SNSアカウントなどを削除してから投稿してください。",
	}
}

// NewContentHarmfulError は有害表現を含む投稿の拒否エラーを生成する。
func NewContentHarmfulError() *APIError {
	return &APIError{
		Code:     ErrCodeContentHarmful,
		Message:  "不適切な表現が含まれている可能性があります。",
		Category: "content",
		Action:   "表現を見直してから投稿してください。",
	}
}

// NewStorageUnavailableError はストレージ障害時のエラーを生成する。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "現在サービスを利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewOpinionNotFoundError は意見未検出エラーを生成する。
func NewOpinionNotFoundError(opinionID int64) *APIError {
	return &APIError{
		Code:     ErrCodeOpinionNotFound,
		Message:  fmt.Sprintf("指定された意見が見つかりません: %d", opinionID),
		Category: "validation",
		Action:   "意見IDを確認してください。",
	}
}

// NewSolutionNotFoundError は解決策未検出エラーを生成する。
func NewSolutionNotFoundError(solutionID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSolutionNotFound,
		Message:  fmt.Sprintf("指定された解決策が見つかりません: %d", solutionID),
		Category: "validation",
		Action:   "解決策IDを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %d", categoryID),
		Category: "validation",
		Action:   "カテゴリを選択し直してください。",
	}
}

// NewUnauthorizedError は管理者認証が必要なエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "管理者としてログインしてください。",
	}
}

// NewInvalidCredentialsError はパスワード不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "リクエストを検証できませんでした。",
		Category: "validation",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
