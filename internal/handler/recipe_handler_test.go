package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/steprender"
)

// --- POST /recipes ---

func TestRecipeHandler_Create_Success(t *testing.T) {
	var gotInput model.RecipeInput
	svc := &mockRecipeService{
		createFn: func(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error) {
			if userID != 1 {
				t.Errorf("userID = %d, want 1", userID)
			}
			gotInput = in
			return toastRecipe(), nil
		},
	}
	h := NewRecipeHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/recipes", jsonBody(t, recipeRequest{
		Name:        "Toast",
		Description: "Simple",
		Servings:    1,
		CookTimeMin: 5,
		Steps: []stepPayload{
			{StepNumber: 9, Instruction: "Toast bread"},
			{StepNumber: 3, Instruction: "Butter it", ImagePath: "img/butter.png"},
		},
		Ingredients: []ingredientPayload{{Name: "bread", Quantity: 2, Unit: "slices"}},
	}))
	req = withUserID(req, 1)
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if loc := resp.Header.Get("Location"); loc != "/recipes/10" {
		t.Errorf("Location = %q, want /recipes/10", loc)
	}
	if len(gotInput.Steps) != 2 || gotInput.Steps[1].ImagePath != "img/butter.png" {
		t.Errorf("steps = %+v", gotInput.Steps)
	}

	var body recipeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.ID != 10 || len(body.Steps) != 2 || body.Steps[1].StepNumber != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestRecipeHandler_Create_InvalidJSON(t *testing.T) {
	called := false
	svc := &mockRecipeService{
		createFn: func(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error) {
			called = true
			return nil, nil
		},
	}
	h := NewRecipeHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(`{"name":`)), 1)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if called {
		t.Error("service must not be called for malformed JSON")
	}
}

func TestRecipeHandler_Create_ValidationError(t *testing.T) {
	svc := &mockRecipeService{
		createFn: func(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error) {
			return nil, model.NewValidationError("servings must be positive")
		},
	}
	h := NewRecipeHandler(svc)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(`{"name":"x"}`)), 1)
	w := httptest.NewRecorder()
	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if code := decodeErrorCode(t, resp); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", code, model.ErrCodeValidation)
	}
}

// --- GET /recipes/{id} ---

func TestRecipeHandler_Get_InvalidID(t *testing.T) {
	h := NewRecipeHandler(&mockRecipeService{})

	for _, id := range []string{"abc", "0", "-3"} {
		t.Run(id, func(t *testing.T) {
			req := withChiURLParams(httptest.NewRequest(http.MethodGet, "/recipes/"+id, nil), "id", id)
			w := httptest.NewRecorder()
			h.Get(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestRecipeHandler_Get_NotFound(t *testing.T) {
	svc := &mockRecipeService{
		getFn: func(ctx context.Context, recipeID int64) (*model.Recipe, error) {
			return nil, model.NewRecipeNotFoundError(recipeID)
		},
	}
	h := NewRecipeHandler(svc)

	req := withChiURLParams(httptest.NewRequest(http.MethodGet, "/recipes/99", nil), "id", "99")
	w := httptest.NewRecorder()
	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if code := decodeErrorCode(t, resp); code != model.ErrCodeRecipeNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeRecipeNotFound)
	}
}

// --- GET /recipes, /recipes/mine ---

func TestRecipeHandler_List_EmptyIsArray(t *testing.T) {
	h := NewRecipeHandler(&mockRecipeService{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/recipes", nil))

	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

func TestRecipeHandler_ListMine_UsesCaller(t *testing.T) {
	svc := &mockRecipeService{
		listMineFn: func(ctx context.Context, userID int64) ([]*model.Recipe, error) {
			if userID != 4 {
				t.Errorf("userID = %d, want 4", userID)
			}
			return []*model.Recipe{toastRecipe()}, nil
		},
	}
	h := NewRecipeHandler(svc)

	w := httptest.NewRecorder()
	h.ListMine(w, withUserID(httptest.NewRequest(http.MethodGet, "/recipes/mine", nil), 4))

	var body []recipeResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 1 || body[0].Name != "Toast" {
		t.Errorf("body = %+v", body)
	}
}

// --- PUT / DELETE /recipes/{id} ---

func TestRecipeHandler_Update_Forbidden(t *testing.T) {
	svc := &mockRecipeService{
		updateFn: func(ctx context.Context, userID, recipeID int64, in model.RecipeInput) (*model.Recipe, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewRecipeHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/recipes/10", strings.NewReader(`{"name":"Toast"}`))
	req = withChiURLParams(withUserID(req, 2), "id", "10")
	w := httptest.NewRecorder()
	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if code := decodeErrorCode(t, resp); code != model.ErrCodeForbidden {
		t.Errorf("code = %q, want %q", code, model.ErrCodeForbidden)
	}
}

func TestRecipeHandler_Delete(t *testing.T) {
	var gotUser, gotRecipe int64
	svc := &mockRecipeService{
		deleteFn: func(ctx context.Context, userID, recipeID int64) error {
			gotUser, gotRecipe = userID, recipeID
			return nil
		},
	}
	h := NewRecipeHandler(svc)

	req := withChiURLParams(withUserID(httptest.NewRequest(http.MethodDelete, "/recipes/10", nil), 1), "id", "10")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if gotUser != 1 || gotRecipe != 10 {
		t.Errorf("Delete(%d, %d), want (1, 10)", gotUser, gotRecipe)
	}
}

func TestRecipeHandler_Delete_Unauthenticated(t *testing.T) {
	h := NewRecipeHandler(&mockRecipeService{})

	req := withChiURLParams(httptest.NewRequest(http.MethodDelete, "/recipes/10", nil), "id", "10")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /recipes/{id}/steps/rendered ---

func TestRecipeHandler_RenderedSteps(t *testing.T) {
	renderer := steprender.NewRenderer(nil)
	svc := &mockRecipeService{
		renderStepsFn: func(ctx context.Context, recipeID int64) ([]steprender.Fragment, error) {
			return renderer.RenderAll(toastRecipe().Steps), nil
		},
	}
	h := NewRecipeHandler(svc)

	req := withChiURLParams(httptest.NewRequest(http.MethodGet, "/recipes/10/steps/rendered", nil), "id", "10")
	w := httptest.NewRecorder()
	h.RenderedSteps(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body renderedStepsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.RecipeID != 10 || len(body.Steps) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Steps[0].Variant != "text" || body.Steps[0].HTML != "<p>1. Toast bread</p>" {
		t.Errorf("steps[0] = %+v", body.Steps[0])
	}
	if body.Steps[1].Variant != "image" || !strings.Contains(body.Steps[1].HTML, "src='img/butter.png'") {
		t.Errorf("steps[1] = %+v", body.Steps[1])
	}
}

// --- POST /recipes/{id}/image, /recipes/{id}/steps/{number}/image ---

func TestRecipeHandler_SetCoverImage_Blocked(t *testing.T) {
	svc := &mockRecipeService{
		setCoverImageFn: func(ctx context.Context, userID, recipeID int64, rawURL string) (*model.Recipe, error) {
			if rawURL != "http://169.254.169.254/latest" {
				t.Errorf("rawURL = %q", rawURL)
			}
			return nil, model.NewImageURLBlockedError()
		},
	}
	h := NewRecipeHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/recipes/10/image", jsonBody(t, imageRequest{URL: "http://169.254.169.254/latest"}))
	req = withChiURLParams(withUserID(req, 1), "id", "10")
	w := httptest.NewRecorder()
	h.SetCoverImage(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRecipeHandler_SetStepImage(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		err        error
		wantStatus int
		wantStep   int
	}{
		{"成功", "2", nil, http.StatusOK, 2},
		{"数値でない", "two", nil, http.StatusBadRequest, 0},
		{"ゼロ", "0", nil, http.StatusBadRequest, 0},
		{"存在しない手順", "7", model.NewStepNotFoundError(10, 7), http.StatusNotFound, 7},
		{"取り込み失敗", "1", model.NewImageImportFailedError("timeout"), http.StatusBadGateway, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStep := 0
			svc := &mockRecipeService{
				setStepImageFn: func(ctx context.Context, userID, recipeID int64, stepNumber int, rawURL string) (*model.Recipe, error) {
					gotStep = stepNumber
					if tt.err != nil {
						return nil, tt.err
					}
					return toastRecipe(), nil
				},
			}
			h := NewRecipeHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/recipes/10/steps/"+tt.number+"/image",
				jsonBody(t, imageRequest{URL: "https://example.com/a.png"}))
			req = withChiURLParams(withUserID(req, 1), "id", "10", "number", tt.number)
			w := httptest.NewRecorder()
			h.SetStepImage(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
			if gotStep != tt.wantStep {
				t.Errorf("stepNumber = %d, want %d", gotStep, tt.wantStep)
			}
		})
	}
}
