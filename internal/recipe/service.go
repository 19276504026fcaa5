// Package recipe はレシピ管理のドメインロジックを提供する。
package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipelog"
	"github.com/hitoshi/recipebook/internal/repository"
	"github.com/hitoshi/recipebook/internal/steprender"
)

// RecipeLog はレシピログの追記・読み込みのインターフェース。
// recipelog.FileLogを抽象化してテスタビリティを向上させる。
type RecipeLog interface {
	Append(entries []recipelog.Entry) error
	Load() ([]recipelog.Record, error)
}

// ImageImporter は外部URLの画像を取り込むインターフェース。
// Removeは取り込んだ画像をレシピに紐付けられなかった場合の後始末に使う。
type ImageImporter interface {
	Import(ctx context.Context, rawURL string) (string, error)
	Remove(publicPath string) error
}

// Service はレシピ管理のサービス層。
type Service struct {
	recipeRepo repository.RecipeRepository
	userRepo   repository.UserRepository
	renderer   *steprender.Renderer
	log        RecipeLog
	importer   ImageImporter
	metrics    metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewService(
	recipeRepo repository.RecipeRepository,
	userRepo repository.UserRepository,
	renderer *steprender.Renderer,
	log RecipeLog,
	importer ImageImporter,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		recipeRepo: recipeRepo,
		userRepo:   userRepo,
		renderer:   renderer,
		log:        log,
		importer:   importer,
		metrics:    mc,
	}
}

// Create はレシピを作成する。
func (s *Service) Create(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error) {
	recipe, err := buildRecipe(userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("レシピの作成に失敗しました: %w", err)
	}

	slog.Info("recipe created",
		slog.Int64("recipe_id", recipe.ID),
		slog.Int64("user_id", userID),
		slog.Int("steps", len(recipe.Steps)),
		slog.Int("ingredients", len(recipe.Ingredients)),
	)
	return recipe, nil
}

// Get はレシピを子レコード付きで取得する。
func (s *Service) Get(ctx context.Context, recipeID int64) (*model.Recipe, error) {
	recipe, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("レシピの取得に失敗しました: %w", err)
	}
	if recipe == nil {
		return nil, model.NewRecipeNotFoundError(recipeID)
	}
	return recipe, nil
}

// ListMine はユーザー自身のレシピ一覧を返す。
func (s *Service) ListMine(ctx context.Context, userID int64) ([]*model.Recipe, error) {
	recipes, err := s.recipeRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("レシピ一覧の取得に失敗しました: %w", err)
	}
	return recipes, nil
}

// ListAll は全ユーザーのレシピ一覧を返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Recipe, error) {
	recipes, err := s.recipeRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("レシピ一覧の取得に失敗しました: %w", err)
	}
	return recipes, nil
}

// getOwned はレシピを取得し、userIDが所有者であることを確認する。
func (s *Service) getOwned(ctx context.Context, userID, recipeID int64) (*model.Recipe, error) {
	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.UserID != userID {
		return nil, model.NewForbiddenError()
	}
	return recipe, nil
}

// Update はレシピを全置換で更新する。手順と材料は入力内容で置き換えられる。
func (s *Service) Update(ctx context.Context, userID, recipeID int64, in model.RecipeInput) (*model.Recipe, error) {
	current, err := s.getOwned(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	recipe, err := buildRecipe(userID, in)
	if err != nil {
		return nil, err
	}
	recipe.ID = current.ID
	recipe.CreatedAt = current.CreatedAt

	if err := s.recipeRepo.Update(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewRecipeNotFoundError(recipeID)
		}
		return nil, fmt.Errorf("レシピの更新に失敗しました: %w", err)
	}

	slog.Info("recipe updated",
		slog.Int64("recipe_id", recipe.ID),
		slog.Int64("user_id", userID),
	)
	return recipe, nil
}

// Delete はレシピを削除する。手順・材料・インタラクションも削除される。
func (s *Service) Delete(ctx context.Context, userID, recipeID int64) error {
	if _, err := s.getOwned(ctx, userID, recipeID); err != nil {
		return err
	}

	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewRecipeNotFoundError(recipeID)
		}
		return fmt.Errorf("レシピの削除に失敗しました: %w", err)
	}

	slog.Info("recipe deleted",
		slog.Int64("recipe_id", recipeID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// RenderSteps はレシピの手順をstep_number順にHTML断片へ変換する。
func (s *Service) RenderSteps(ctx context.Context, recipeID int64) ([]steprender.Fragment, error) {
	recipe, err := s.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	fragments := s.renderer.RenderAll(recipe.Steps)

	counts := make(map[steprender.Variant]int)
	for _, f := range fragments {
		counts[f.Variant]++
	}
	for variant, n := range counts {
		s.metrics.RecordStepsRendered(variant.String(), n)
	}
	return fragments, nil
}

// ExportLog はユーザーの全レシピをレシピログに追記し、追記件数を返す。
func (s *Service) ExportLog(ctx context.Context, userID int64) (int, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return 0, model.NewUserNotFoundError()
	}

	recipes, err := s.ListMine(ctx, userID)
	if err != nil {
		return 0, err
	}

	entries := make([]recipelog.Entry, len(recipes))
	for i, r := range recipes {
		entries[i] = recipelog.Entry{Recipe: *r, CreatedBy: user.Username}
	}
	return s.appendLog(entries)
}

// ExportAll は全ユーザーのレシピをレシピログに追記し、追記件数を返す。
// 定期スナップショットから呼ばれる。
func (s *Service) ExportAll(ctx context.Context) (int, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	usernames := make(map[int64]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	recipes, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	entries := make([]recipelog.Entry, len(recipes))
	for i, r := range recipes {
		entries[i] = recipelog.Entry{Recipe: *r, CreatedBy: usernames[r.UserID]}
	}
	return s.appendLog(entries)
}

func (s *Service) appendLog(entries []recipelog.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.log.Append(entries); err != nil {
		s.metrics.RecordLogAppendFailure()
		return 0, fmt.Errorf("レシピログへの追記に失敗しました: %w", err)
	}
	s.metrics.RecordLogAppend(len(entries))
	slog.Info("recipes appended to log", slog.Int("count", len(entries)))
	return len(entries), nil
}

// ReadLog はレシピログを読み込んでレシピを復元する。
// ログが存在しない場合は空の結果を返す。数値の解析に失敗した場合は結果を返さない。
func (s *Service) ReadLog(_ context.Context) ([]recipelog.Record, error) {
	records, err := s.log.Load()
	if err != nil {
		s.metrics.RecordLogDecodeFailure()
		var parseErr *recipelog.ParseError
		if errors.As(err, &parseErr) {
			slog.Warn("recipe log corrupted", slog.String("error", err.Error()))
			return nil, model.NewRecipeLogCorruptedError(parseErr.Error())
		}
		return nil, fmt.Errorf("レシピログの読み込みに失敗しました: %w", err)
	}
	s.metrics.RecordLogDecode(len(records))
	return records, nil
}

// SetCoverImage は外部URLの画像を取り込み、レシピのカバー画像に設定する。
func (s *Service) SetCoverImage(ctx context.Context, userID, recipeID int64, rawURL string) (*model.Recipe, error) {
	recipe, err := s.getOwned(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.importImage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := s.recipeRepo.UpdateImagePath(ctx, recipeID, imagePath); err != nil {
		s.discardImage(imagePath)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewRecipeNotFoundError(recipeID)
		}
		return nil, fmt.Errorf("カバー画像の更新に失敗しました: %w", err)
	}
	recipe.ImagePath = imagePath
	return recipe, nil
}

// SetStepImage は外部URLの画像を取り込み、指定手順の画像に設定する。
func (s *Service) SetStepImage(ctx context.Context, userID, recipeID int64, stepNumber int, rawURL string) (*model.Recipe, error) {
	recipe, err := s.getOwned(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, st := range recipe.Steps {
		if st.StepNumber == stepNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, model.NewStepNotFoundError(recipeID, stepNumber)
	}

	imagePath, err := s.importImage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := s.recipeRepo.UpdateStepImagePath(ctx, recipeID, stepNumber, imagePath); err != nil {
		s.discardImage(imagePath)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewStepNotFoundError(recipeID, stepNumber)
		}
		return nil, fmt.Errorf("手順画像の更新に失敗しました: %w", err)
	}
	recipe.Steps[idx].ImagePath = imagePath
	return recipe, nil
}

func (s *Service) importImage(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", model.NewValidationError("画像URLを指定してください")
	}
	imagePath, err := s.importer.Import(ctx, rawURL)
	if err != nil {
		s.metrics.RecordImageImport(false)
		return "", err
	}
	s.metrics.RecordImageImport(true)
	return imagePath, nil
}

// discardImage はDBに記録できなかった取り込み済み画像を削除する。失敗はログのみ。
func (s *Service) discardImage(imagePath string) {
	if err := s.importer.Remove(imagePath); err != nil {
		slog.Warn("failed to remove orphaned image",
			slog.String("path", imagePath),
			slog.String("error", err.Error()),
		)
	}
}
