// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/recipebook/internal/model"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しない場合に返される。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約違反の場合に返される。
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有するrecipesとその子レコードはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// RecipeRepository はレシピ集約（recipe + steps + ingredients）の永続化インターフェース。
// 子レコードは常に親と一緒に読み書きされる。
type RecipeRepository interface {
	// Create はレシピと子レコードを同一トランザクションで作成し、採番されたIDを設定する。
	Create(ctx context.Context, recipe *model.Recipe) error

	// FindByID は子レコード付きでレシピを取得する。見つからない場合はnilを返す。
	// stepsはstep_number昇順、ingredientsはID昇順で返す。
	FindByID(ctx context.Context, id int64) (*model.Recipe, error)

	// ListByOwner は指定ユーザーのレシピを子レコード付きでID昇順に返す。
	ListByOwner(ctx context.Context, userID int64) ([]*model.Recipe, error)

	// ListAll は全レシピを子レコード付きでID昇順に返す。
	ListAll(ctx context.Context) ([]*model.Recipe, error)

	// Update はレシピ本体を更新し、子レコードを全削除してから再挿入する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, recipe *model.Recipe) error

	// Delete はレシピを削除する。子レコードはCASCADE削除される。
	Delete(ctx context.Context, id int64) error

	// UpdateImagePath はレシピのカバー画像パスを更新する。
	UpdateImagePath(ctx context.Context, id int64, imagePath string) error

	// UpdateStepImagePath は指定手順の画像パスを更新する。
	UpdateStepImagePath(ctx context.Context, recipeID int64, stepNumber int, imagePath string) error
}

// InteractionRepository はコメント・評価・報告の永続化インターフェース。
type InteractionRepository interface {
	// Create はインタラクションを作成し、採番されたIDと作成日時を設定する。
	Create(ctx context.Context, interaction *model.Interaction) error

	// ListByRecipe は指定レシピのインタラクションを作成日時昇順で返す。
	ListByRecipe(ctx context.Context, recipeID int64) ([]*model.Interaction, error)
}
