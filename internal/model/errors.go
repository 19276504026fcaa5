// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, recipe, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"
	ErrCodeStepNotFound       = "STEP_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeRecipeLogCorrupted = "RECIPE_LOG_CORRUPTED"
	ErrCodeImageImportFailed  = "IMAGE_IMPORT_FAILED"
	ErrCodeImageURLBlocked    = "IMAGE_URL_BLOCKED"
	ErrCodeInvalidInteraction = "INVALID_INTERACTION"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はユーザー名またはパスワードの誤りを表すエラーを生成する。
// どちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
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

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
func NewRecipeNotFoundError(recipeID int64) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  fmt.Sprintf("指定されたレシピが見つかりません: %d", recipeID),
		Category: "recipe",
		Action:   "レシピIDを確認してください。",
	}
}

// NewStepNotFoundError は手順未検出エラーを生成する。
func NewStepNotFoundError(recipeID int64, stepNumber int) *APIError {
	return &APIError{
		Code:     ErrCodeStepNotFound,
		Message:  fmt.Sprintf("レシピ %d に手順 %d は存在しません。", recipeID, stepNumber),
		Category: "recipe",
		Action:   "手順番号を確認してください。",
	}
}

// NewForbiddenError は他ユーザーのレシピを変更しようとした場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このレシピを変更する権限がありません。",
		Category: "recipe",
		Action:   "自分が作成したレシピのみ変更・削除できます。",
	}
}

// NewRecipeLogCorruptedError はレシピログの解析失敗エラーを生成する。
func NewRecipeLogCorruptedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRecipeLogCorrupted,
		Message:  fmt.Sprintf("レシピログの解析に失敗しました: %s", reason),
		Category: "system",
		Action:   "レシピログファイルの内容を確認してください。",
	}
}

// NewImageImportFailedError は画像取り込み失敗エラーを生成する。
func NewImageImportFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageImportFailed,
		Message:  fmt.Sprintf("画像の取り込みに失敗しました: %s", reason),
		Category: "recipe",
		Action:   "画像URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewImageURLBlockedError はSSRFブロックエラーを生成する。
func NewImageURLBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageURLBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトの画像URLを入力してください。",
	}
}

// NewInvalidInteractionError は不正なコメント・評価・報告のエラーを生成する。
func NewInvalidInteractionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInteraction,
		Message:  fmt.Sprintf("無効な操作です: %s", reason),
		Category: "validation",
		Action:   "種別には comment、rating、abuse_report のいずれかを指定してください。評価は1〜5です。",
	}
}
