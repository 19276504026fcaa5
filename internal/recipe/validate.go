package recipe

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/recipebook/internal/model"
)

// 入力値の制約
const (
	maxNameLength        = 100
	maxDescriptionLength = 2000
	maxIngredientName    = 100
	maxUnitLength        = 20
	maxInstructionLength = 2000
	maxImagePathLength   = 255
	// quantityはNUMERIC(7,2)で保存される
	maxQuantity = 99999.99
)

// buildRecipe は入力値を検証し、永続化用のRecipeを組み立てる。
// 手順は入力順に1から採番し直す。
func buildRecipe(userID int64, in model.RecipeInput) (*model.Recipe, error) {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("レシピ名は1〜%d文字で指定してください", maxNameLength))
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, model.NewValidationError(fmt.Sprintf("説明は%d文字以内で指定してください", maxDescriptionLength))
	}
	if in.Servings <= 0 {
		return nil, model.NewValidationError("人数は1以上で指定してください")
	}
	if in.CookTimeMin < 0 {
		return nil, model.NewValidationError("調理時間は0以上で指定してください")
	}
	if err := validateImagePath(in.ImagePath); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		UserID:      userID,
		Name:        name,
		Description: description,
		Servings:    in.Servings,
		CookTimeMin: in.CookTimeMin,
		ImagePath:   in.ImagePath,
		Steps:       make([]model.Step, 0, len(in.Steps)),
		Ingredients: make([]model.Ingredient, 0, len(in.Ingredients)),
	}

	for i, ing := range in.Ingredients {
		built, err := buildIngredient(i+1, ing)
		if err != nil {
			return nil, err
		}
		recipe.Ingredients = append(recipe.Ingredients, built)
	}

	for i, st := range in.Steps {
		instruction := strings.TrimSpace(st.Instruction)
		if instruction == "" && st.ImagePath == "" {
			return nil, model.NewValidationError(fmt.Sprintf("手順%dの説明が空です", i+1))
		}
		if utf8.RuneCountInString(instruction) > maxInstructionLength {
			return nil, model.NewValidationError(fmt.Sprintf("手順%dの説明は%d文字以内で指定してください", i+1, maxInstructionLength))
		}
		if err := validateImagePath(st.ImagePath); err != nil {
			return nil, err
		}
		recipe.Steps = append(recipe.Steps, model.Step{
			StepNumber:  i + 1,
			Instruction: instruction,
			ImagePath:   st.ImagePath,
		})
	}

	return recipe, nil
}

// buildIngredient は材料を検証する。nは1始まりの材料番号でエラーメッセージに使う。
// 単位はレシピログ上で1トークンとして扱われるため空白を含められない。
func buildIngredient(n int, in model.IngredientInput) (model.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if l := utf8.RuneCountInString(name); l == 0 || l > maxIngredientName {
		return model.Ingredient{}, model.NewValidationError(fmt.Sprintf("材料%dの名前は1〜%d文字で指定してください", n, maxIngredientName))
	}

	quantity := math.Round(in.Quantity*100) / 100
	if math.IsNaN(in.Quantity) || quantity <= 0 || quantity > maxQuantity {
		return model.Ingredient{}, model.NewValidationError(fmt.Sprintf("材料%dの分量は0より大きく%.2f以下で指定してください", n, maxQuantity))
	}

	unit := strings.TrimSpace(in.Unit)
	if utf8.RuneCountInString(unit) > maxUnitLength {
		return model.Ingredient{}, model.NewValidationError(fmt.Sprintf("材料%dの単位は%d文字以内で指定してください", n, maxUnitLength))
	}
	if strings.ContainsFunc(unit, isSpace) {
		return model.Ingredient{}, model.NewValidationError(fmt.Sprintf("材料%dの単位に空白は使用できません", n))
	}

	return model.Ingredient{Name: name, Quantity: quantity, Unit: unit}, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
}

// validateImagePath は画像パスが静的ファイルディレクトリからの相対パスであることを検証する。
func validateImagePath(p string) error {
	if p == "" {
		return nil
	}
	if len(p) > maxImagePathLength ||
		strings.HasPrefix(p, "/") ||
		strings.Contains(p, ":") ||
		strings.Contains(p, "\\") ||
		strings.ContainsFunc(p, isSpace) ||
		strings.Contains(p, "..") {
		return model.NewValidationError("画像パスが不正です")
	}
	return nil
}
