package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// List は登録済みユーザーの一覧を返す。
	List(ctx context.Context) ([]*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// ユーザーと、ユーザーが所有するレシピを一括削除する。
	Withdraw(ctx context.Context, userID int64) error
}

// TokenRevoker はアクセストークンを失効させるインターフェース。
type TokenRevoker interface {
	Logout(ctx context.Context, token string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	revoker TokenRevoker
}

// NewUserHandler はUserHandlerを生成する。
// revokerがnilでない場合、退会時に使用中のトークンを失効させる。
func NewUserHandler(service UserServiceInterface, revoker TokenRevoker) *UserHandler {
	return &UserHandler{
		service: service,
		revoker: revoker,
	}
}

// List はユーザー一覧を返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	if token, ok := middleware.TokenFromContext(r.Context()); ok && h.revoker != nil {
		if err := h.revoker.Logout(r.Context(), token); err != nil {
			// 退会自体は完了しているため、失効の失敗はログのみ
			slog.Warn("failed to revoke token after withdrawal",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
