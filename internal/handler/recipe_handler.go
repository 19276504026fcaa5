package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/steprender"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	Create(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error)
	Get(ctx context.Context, recipeID int64) (*model.Recipe, error)
	ListMine(ctx context.Context, userID int64) ([]*model.Recipe, error)
	ListAll(ctx context.Context) ([]*model.Recipe, error)
	Update(ctx context.Context, userID, recipeID int64, in model.RecipeInput) (*model.Recipe, error)
	Delete(ctx context.Context, userID, recipeID int64) error
	// RenderSteps は手順をstep_number順のHTML断片に変換する。
	RenderSteps(ctx context.Context, recipeID int64) ([]steprender.Fragment, error)
	SetCoverImage(ctx context.Context, userID, recipeID int64, rawURL string) (*model.Recipe, error)
	SetStepImage(ctx context.Context, userID, recipeID int64, stepNumber int, rawURL string) (*model.Recipe, error)
}

// RecipeHandler はレシピ管理のHTTPハンドラー。
type RecipeHandler struct {
	service RecipeServiceInterface
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface) *RecipeHandler {
	return &RecipeHandler{service: service}
}

// recipeRequest はレシピ作成・更新リクエストのボディ。
type recipeRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Servings    int                 `json:"servings"`
	CookTimeMin int                 `json:"cook_time_min"`
	ImagePath   string              `json:"image_path"`
	Steps       []stepPayload       `json:"steps"`
	Ingredients []ingredientPayload `json:"ingredients"`
}

type stepPayload struct {
	StepNumber  int    `json:"step_number,omitempty"`
	Instruction string `json:"instruction"`
	ImagePath   string `json:"image_path"`
}

type ingredientPayload struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// imageRequest は画像取り込みリクエストのボディ。
type imageRequest struct {
	URL string `json:"url"`
}

// recipeResponse はレシピのAPIレスポンス。
type recipeResponse struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"user_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Servings    int                 `json:"servings"`
	CookTimeMin int                 `json:"cook_time_min"`
	ImagePath   string              `json:"image_path"`
	CreatedAt   time.Time           `json:"created_at"`
	Steps       []stepPayload       `json:"steps"`
	Ingredients []ingredientPayload `json:"ingredients"`
}

// renderedStepResponse は表示用に変換された手順1つ。
type renderedStepResponse struct {
	StepNumber int    `json:"step_number"`
	Variant    string `json:"variant"`
	HTML       string `json:"html"`
}

// renderedStepsResponse は表示用手順一覧のAPIレスポンス。
type renderedStepsResponse struct {
	RecipeID int64                  `json:"recipe_id"`
	Steps    []renderedStepResponse `json:"steps"`
}

// Create はレシピを作成する。
// POST /recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req recipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/recipes/"+strconv.FormatInt(recipe.ID, 10))
	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

// List は全ユーザーのレシピ一覧を返す。
// GET /recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponses(recipes))
}

// ListMine はログインユーザーのレシピ一覧を返す。
// GET /recipes/mine
func (h *RecipeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	recipes, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponses(recipes))
}

// Get はレシピ詳細を返す。
// GET /recipes/{id}
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	recipe, err := h.service.Get(r.Context(), recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

// Update はレシピを全置換で更新する。
// PUT /recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req recipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.service.Update(r.Context(), userID, recipeID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

// Delete はレシピを削除する。
// DELETE /recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, recipeID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderedSteps はレシピの手順を表示用HTML断片として返す。
// GET /recipes/{id}/steps/rendered
func (h *RecipeHandler) RenderedSteps(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	fragments, err := h.service.RenderSteps(r.Context(), recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	steps := make([]renderedStepResponse, len(fragments))
	for i, f := range fragments {
		steps[i] = renderedStepResponse{
			StepNumber: f.StepNumber,
			Variant:    f.Variant.String(),
			HTML:       f.HTML,
		}
	}
	writeJSON(w, http.StatusOK, renderedStepsResponse{RecipeID: recipeID, Steps: steps})
}

// SetCoverImage は外部URLの画像を取り込み、カバー画像に設定する。
// POST /recipes/{id}/image
func (h *RecipeHandler) SetCoverImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.service.SetCoverImage(r.Context(), userID, recipeID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

// SetStepImage は外部URLの画像を取り込み、指定手順の画像に設定する。
// POST /recipes/{id}/steps/{number}/image
func (h *RecipeHandler) SetStepImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stepNumber, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || stepNumber <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("手順番号は正の整数で指定してください"))
		return
	}

	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.service.SetStepImage(r.Context(), userID, recipeID, stepNumber, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

// --- ヘルパー関数 ---

// toInput はリクエストボディをサービス層の入力に変換する。
// step_numberは無視し、配列の順序で採番し直す。
func (req recipeRequest) toInput() model.RecipeInput {
	in := model.RecipeInput{
		Name:        req.Name,
		Description: req.Description,
		Servings:    req.Servings,
		CookTimeMin: req.CookTimeMin,
		ImagePath:   req.ImagePath,
		Steps:       make([]model.StepInput, len(req.Steps)),
		Ingredients: make([]model.IngredientInput, len(req.Ingredients)),
	}
	for i, s := range req.Steps {
		in.Steps[i] = model.StepInput{Instruction: s.Instruction, ImagePath: s.ImagePath}
	}
	for i, ing := range req.Ingredients {
		in.Ingredients[i] = model.IngredientInput{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return in
}

// toRecipeResponse はmodel.RecipeからAPIレスポンスに変換する。
func toRecipeResponse(recipe *model.Recipe) recipeResponse {
	return recipeResponse{
		ID:          recipe.ID,
		UserID:      recipe.UserID,
		Name:        recipe.Name,
		Description: recipe.Description,
		Servings:    recipe.Servings,
		CookTimeMin: recipe.CookTimeMin,
		ImagePath:   recipe.ImagePath,
		CreatedAt:   recipe.CreatedAt,
		Steps:       toStepPayloads(recipe.Steps),
		Ingredients: toIngredientPayloads(recipe.Ingredients),
	}
}

func toRecipeResponses(recipes []*model.Recipe) []recipeResponse {
	resp := make([]recipeResponse, len(recipes))
	for i, r := range recipes {
		resp[i] = toRecipeResponse(r)
	}
	return resp
}

func toStepPayloads(steps []model.Step) []stepPayload {
	out := make([]stepPayload, len(steps))
	for i, s := range steps {
		out[i] = stepPayload{StepNumber: s.StepNumber, Instruction: s.Instruction, ImagePath: s.ImagePath}
	}
	return out
}

func toIngredientPayloads(ingredients []model.Ingredient) []ingredientPayload {
	out := make([]ingredientPayload, len(ingredients))
	for i, ing := range ingredients {
		out[i] = ingredientPayload{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return out
}
