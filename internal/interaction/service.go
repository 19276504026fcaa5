package interaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// Entry はインタラクションとその説明文の組。
type Entry struct {
	Interaction *model.Interaction
	Description string
}

// Service はインタラクションのサービス層。
type Service struct {
	recipeRepo      repository.RecipeRepository
	interactionRepo repository.InteractionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(recipeRepo repository.RecipeRepository, interactionRepo repository.InteractionRepository) *Service {
	return &Service{
		recipeRepo:      recipeRepo,
		interactionRepo: interactionRepo,
	}
}

// Record はレシピに対する操作を保存する。
func (s *Service) Record(ctx context.Context, userID, recipeID int64, action Action) (*Entry, error) {
	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	in := &model.Interaction{
		RecipeID: recipeID,
		UserID:   userID,
		Kind:     action.Kind(),
	}
	action.fill(in)

	if err := s.interactionRepo.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("インタラクションの保存に失敗しました: %w", err)
	}

	if in.Kind == model.InteractionAbuseReport {
		slog.Warn("recipe reported",
			slog.Int64("recipe_id", recipeID),
			slog.Int64("user_id", userID),
		)
	}
	return &Entry{Interaction: in, Description: action.Describe(userID)}, nil
}

// List はレシピのインタラクションを作成日時順に返す。
func (s *Service) List(ctx context.Context, recipeID int64) ([]Entry, error) {
	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	items, err := s.interactionRepo.ListByRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("インタラクション一覧の取得に失敗しました: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, in := range items {
		action, err := FromModel(in)
		if err != nil {
			slog.Warn("skipping interaction", slog.Int64("id", in.ID), slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, Entry{Interaction: in, Description: action.Describe(in.UserID)})
	}
	return entries, nil
}

func (s *Service) ensureRecipe(ctx context.Context, recipeID int64) error {
	recipe, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("レシピの取得に失敗しました: %w", err)
	}
	if recipe == nil {
		return model.NewRecipeNotFoundError(recipeID)
	}
	return nil
}
