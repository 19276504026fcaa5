package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/recipebook/internal/interaction"
	"github.com/hitoshi/recipebook/internal/middleware"
)

// InteractionServiceInterface はインタラクションハンドラーが必要とするサービスインターフェース。
type InteractionServiceInterface interface {
	Record(ctx context.Context, userID, recipeID int64, action interaction.Action) (*interaction.Entry, error)
	List(ctx context.Context, recipeID int64) ([]interaction.Entry, error)
}

// InteractionHandler はコメント・評価・報告のHTTPハンドラー。
type InteractionHandler struct {
	service InteractionServiceInterface
}

// NewInteractionHandler はInteractionHandlerを生成する。
func NewInteractionHandler(service InteractionServiceInterface) *InteractionHandler {
	return &InteractionHandler{service: service}
}

// interactionRequest はインタラクション作成リクエストのボディ。
// kindはcomment、rating、abuse_reportのいずれか。
type interactionRequest struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type interactionResponse struct {
	ID          int64     `json:"id"`
	RecipeID    int64     `json:"recipe_id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Rating      int       `json:"rating,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create はレシピに対するコメント・評価・報告を保存する。
// POST /recipes/{id}/interactions
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req interactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	action, err := interaction.Parse(req.Kind, req.Text, req.Rating)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.Record(r.Context(), userID, recipeID, action)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInteractionResponse(*entry))
}

// List はレシピのインタラクション一覧を返す。
// GET /recipes/{id}/interactions
func (h *InteractionHandler) List(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.service.List(r.Context(), recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]interactionResponse, len(entries))
	for i, e := range entries {
		resp[i] = toInteractionResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toInteractionResponse(e interaction.Entry) interactionResponse {
	in := e.Interaction
	return interactionResponse{
		ID:          in.ID,
		RecipeID:    in.RecipeID,
		UserID:      in.UserID,
		Kind:        string(in.Kind),
		Text:        in.Text,
		Rating:      in.Rating,
		Description: e.Description,
		CreatedAt:   in.CreatedAt,
	}
}
