// Package model はドメインモデルを定義する。
package model

import "time"

// Recipe はユーザーが作成したレシピの集約ルートを表す。
// StepsとIngredientsはRecipeが排他的に所有し、Recipeの削除と同時に削除される。
type Recipe struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	Servings    int
	CookTimeMin int
	ImagePath   string // 空文字列は画像なし
	CreatedAt   time.Time
	Steps       []Step       // step_number昇順
	Ingredients []Ingredient // 順序は保証しない
}

// Step はレシピの手順1つを表す。
type Step struct {
	ID          int64
	RecipeID    int64
	StepNumber  int // 1始まり
	Instruction string
	ImagePath   string // 空文字列は画像なし
}

// HasImage は手順に画像が付いているかを返す。
// 画像パスが空でない場合のみ画像付き手順として扱う。
func (s Step) HasImage() bool {
	return s.ImagePath != ""
}

// Ingredient はレシピの材料1つを表す。
type Ingredient struct {
	ID       int64
	RecipeID int64
	Name     string
	Quantity float64
	Unit     string // 空文字列を許容する
}

// RecipeInput はレシピ作成・更新時の入力を表す。
// 手順はこの順序で1から採番し直される。
type RecipeInput struct {
	Name        string
	Description string
	Servings    int
	CookTimeMin int
	ImagePath   string
	Steps       []StepInput
	Ingredients []IngredientInput
}

// StepInput は手順の入力を表す。
type StepInput struct {
	Instruction string
	ImagePath   string
}

// IngredientInput は材料の入力を表す。
type IngredientInput struct {
	Name     string
	Quantity float64
	Unit     string
}
