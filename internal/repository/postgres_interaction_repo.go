package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/recipebook/internal/model"
)

// PostgresInteractionRepo はPostgreSQLを使用したインタラクションリポジトリ。
type PostgresInteractionRepo struct {
	db *sql.DB
}

// NewPostgresInteractionRepo はPostgresInteractionRepoを生成する。
func NewPostgresInteractionRepo(db *sql.DB) *PostgresInteractionRepo {
	return &PostgresInteractionRepo{db: db}
}

// Create はインタラクションを作成する。
func (r *PostgresInteractionRepo) Create(ctx context.Context, in *model.Interaction) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO interactions (recipe_id, user_id, kind, body, rating)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		in.RecipeID, in.UserID, string(in.Kind), in.Text, in.Rating,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

// ListByRecipe は指定レシピのインタラクションを作成日時昇順で返す。
func (r *PostgresInteractionRepo) ListByRecipe(ctx context.Context, recipeID int64) ([]*model.Interaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipe_id, user_id, kind, body, rating, created_at
		 FROM interactions WHERE recipe_id = $1
		 ORDER BY created_at, id`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var result []*model.Interaction
	for rows.Next() {
		in := &model.Interaction{}
		var kind string
		if err := rows.Scan(&in.ID, &in.RecipeID, &in.UserID, &kind, &in.Text, &in.Rating, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.Kind = model.InteractionKind(kind)
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ InteractionRepository = (*PostgresInteractionRepo)(nil)
