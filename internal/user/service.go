// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// RecipeDeleter はレシピの一括削除インターフェース。
type RecipeDeleter interface {
	DeleteByUserID(ctx context.Context, userID int64) error
}

// Service はユーザー管理のサービス層。
// 一覧取得と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo      repository.UserRepository
	recipeDeleter RecipeDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, recipeDeleter RecipeDeleter) *Service {
	return &Service{
		userRepo:      userRepo,
		recipeDeleter: recipeDeleter,
	}
}

// List は登録済みユーザーをID昇順で返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: recipes（+ CASCADE: steps, ingredients, interactions）→ user
// レシピログに追記済みの内容は削除しない。
func (s *Service) Withdraw(ctx context.Context, userID int64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.Int64("user_id", userID),
	)

	// 1. レシピを削除
	if s.recipeDeleter != nil {
		if err := s.recipeDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("レシピの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（残りのinteractionsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.Int64("user_id", userID),
	)

	return nil
}
