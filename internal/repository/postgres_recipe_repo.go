package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/lib/pq"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

const selectRecipeColumns = `SELECT id, user_id, name, description, servings, cook_time_min, image_path, created_at FROM recipes`

// Create はレシピと子レコードを同一トランザクションで作成する。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO recipes (user_id, name, description, servings, cook_time_min, image_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		recipe.UserID, recipe.Name, recipe.Description, recipe.Servings, recipe.CookTimeMin, recipe.ImagePath,
	).Scan(&recipe.ID, &recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	if err := insertChildren(ctx, tx, recipe); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertChildren はrecipeのsteps、ingredientsを挿入し、採番されたIDを設定する。
func insertChildren(ctx context.Context, tx *sql.Tx, recipe *model.Recipe) error {
	for i := range recipe.Steps {
		s := &recipe.Steps[i]
		s.RecipeID = recipe.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO steps (recipe_id, step_number, instruction, image_path)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			s.RecipeID, s.StepNumber, s.Instruction, s.ImagePath,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", s.StepNumber, err)
		}
	}

	for i := range recipe.Ingredients {
		ing := &recipe.Ingredients[i]
		ing.RecipeID = recipe.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO ingredients (recipe_id, name, quantity, unit)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			ing.RecipeID, ing.Name, ing.Quantity, ing.Unit,
		).Scan(&ing.ID)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", ing.Name, err)
		}
	}
	return nil
}

// FindByID は子レコード付きでレシピを取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindByID(ctx context.Context, id int64) (*model.Recipe, error) {
	recipes, err := r.list(ctx, selectRecipeColumns+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, nil
	}
	return recipes[0], nil
}

// ListByOwner は指定ユーザーのレシピを子レコード付きでID昇順に返す。
func (r *PostgresRecipeRepo) ListByOwner(ctx context.Context, userID int64) ([]*model.Recipe, error) {
	return r.list(ctx, selectRecipeColumns+` WHERE user_id = $1 ORDER BY id`, userID)
}

// ListAll は全レシピを子レコード付きでID昇順に返す。
func (r *PostgresRecipeRepo) ListAll(ctx context.Context) ([]*model.Recipe, error) {
	return r.list(ctx, selectRecipeColumns+` ORDER BY id`)
}

// list はレシピ本体を取得した後、子レコードをまとめて読み込んで組み立てる。
func (r *PostgresRecipeRepo) list(ctx context.Context, query string, args ...any) ([]*model.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	byID := make(map[int64]*model.Recipe)
	for rows.Next() {
		rec := &model.Recipe{}
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Name, &rec.Description,
			&rec.Servings, &rec.CookTimeMin, &rec.ImagePath, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	ids := make([]int64, 0, len(recipes))
	for _, rec := range recipes {
		ids = append(ids, rec.ID)
	}
	if err := r.loadSteps(ctx, ids, byID); err != nil {
		return nil, err
	}
	if err := r.loadIngredients(ctx, ids, byID); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *PostgresRecipeRepo) loadSteps(ctx context.Context, ids []int64, byID map[int64]*model.Recipe) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, step_number, instruction, image_path
		 FROM steps WHERE recipe_id = ANY($1)
		 ORDER BY recipe_id, step_number`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Step
		if err := rows.Scan(&s.ID, &s.RecipeID, &s.StepNumber, &s.Instruction, &s.ImagePath); err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}
		if rec, ok := byID[s.RecipeID]; ok {
			rec.Steps = append(rec.Steps, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate steps: %w", err)
	}
	return nil
}

func (r *PostgresRecipeRepo) loadIngredients(ctx context.Context, ids []int64, byID map[int64]*model.Recipe) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, name, quantity, unit
		 FROM ingredients WHERE recipe_id = ANY($1)
		 ORDER BY recipe_id, id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ing model.Ingredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.Name, &ing.Quantity, &ing.Unit); err != nil {
			return fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if rec, ok := byID[ing.RecipeID]; ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate ingredients: %w", err)
	}
	return nil
}

// Update はレシピ本体を更新し、子レコードを全削除してから再挿入する。
// 部分的な差分更新は行わない。
func (r *PostgresRecipeRepo) Update(ctx context.Context, recipe *model.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE recipes
		 SET name = $1, description = $2, servings = $3, cook_time_min = $4, image_path = $5
		 WHERE id = $6`,
		recipe.Name, recipe.Description, recipe.Servings, recipe.CookTimeMin, recipe.ImagePath, recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if err := requireAffected(result, fmt.Sprintf("recipe %d", recipe.ID)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("failed to delete steps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
		return fmt.Errorf("failed to delete ingredients: %w", err)
	}

	if err := insertChildren(ctx, tx, recipe); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete はレシピを削除する。steps、ingredients、interactionsはCASCADE削除される。
func (r *PostgresRecipeRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("recipe %d", id))
}

// DeleteByUserID は指定ユーザーの全レシピを削除する。
func (r *PostgresRecipeRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipes by user_id: %w", err)
	}
	return nil
}

// UpdateImagePath はレシピのカバー画像パスを更新する。
func (r *PostgresRecipeRepo) UpdateImagePath(ctx context.Context, id int64, imagePath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recipes SET image_path = $1 WHERE id = $2`,
		imagePath, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe image: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("recipe %d", id))
}

// UpdateStepImagePath は指定手順の画像パスを更新する。
func (r *PostgresRecipeRepo) UpdateStepImagePath(ctx context.Context, recipeID int64, stepNumber int, imagePath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE steps SET image_path = $1 WHERE recipe_id = $2 AND step_number = $3`,
		imagePath, recipeID, stepNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update step image: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("recipe %d step %d", recipeID, stepNumber))
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
