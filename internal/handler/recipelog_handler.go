package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/recipelog"
)

// RecipeLogServiceInterface はレシピログハンドラーが必要とするサービスインターフェース。
type RecipeLogServiceInterface interface {
	// ExportLog はユーザーの全レシピをログに追記し、追記件数を返す。
	ExportLog(ctx context.Context, userID int64) (int, error)
	// ReadLog はログからレシピを復元する。
	ReadLog(ctx context.Context) ([]recipelog.Record, error)
}

// RecipeLogHandler はレシピログのHTTPハンドラー。
type RecipeLogHandler struct {
	service RecipeLogServiceInterface
}

// NewRecipeLogHandler はRecipeLogHandlerを生成する。
func NewRecipeLogHandler(service RecipeLogServiceInterface) *RecipeLogHandler {
	return &RecipeLogHandler{service: service}
}

type exportLogResponse struct {
	Appended int `json:"appended"`
}

// logRecordResponse はログから復元したレシピ1件。
type logRecordResponse struct {
	RecipeID    int64               `json:"recipe_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Servings    int                 `json:"servings"`
	CookTimeMin int                 `json:"cook_time_min"`
	CreatedBy   string              `json:"created_by"`
	Ingredients []ingredientPayload `json:"ingredients"`
	Steps       []stepPayload       `json:"steps"`
}

// Export はログインユーザーのレシピをログに追記する。
// POST /recipes/log
func (h *RecipeLogHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	n, err := h.service.ExportLog(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportLogResponse{Appended: n})
}

// Read はログに記録されたレシピを返す。
// GET /recipes/log
func (h *RecipeLogHandler) Read(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ReadLog(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]logRecordResponse, len(records))
	for i, rec := range records {
		resp[i] = logRecordResponse{
			RecipeID:    rec.RecipeID,
			Name:        rec.Name,
			Description: rec.Description,
			Servings:    rec.Servings,
			CookTimeMin: rec.CookTimeMin,
			CreatedBy:   rec.CreatedBy,
			Ingredients: toIngredientPayloads(rec.Ingredients),
			Steps:       toStepPayloads(rec.Steps),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
