package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebook/internal/auth"
	"github.com/hitoshi/recipebook/internal/interaction"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
	"github.com/hitoshi/recipebook/internal/recipelog"
	"github.com/hitoshi/recipebook/internal/steprender"
	"github.com/hitoshi/recipebook/internal/user"
)

// --- compile-time interface checks ---
var (
	_ AuthServiceInterface        = (*auth.Service)(nil)
	_ UserServiceInterface        = (*user.Service)(nil)
	_ RecipeServiceInterface      = (*recipe.Service)(nil)
	_ RecipeLogServiceInterface   = (*recipe.Service)(nil)
	_ InteractionServiceInterface = (*interaction.Service)(nil)
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn    func(ctx context.Context, username, password string) (*model.User, error)
	loginFn       func(ctx context.Context, username, password string) (*auth.Token, error)
	logoutFn      func(ctx context.Context, token string) error
	currentUserFn func(ctx context.Context, userID int64) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password)
	}
	return &model.User{ID: 1, Username: username}, nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return &auth.Token{AccessToken: "token", TokenType: auth.TokenTypeBearer, ExpiresIn: 1800}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Username: "alice"}, nil
}

type mockUserService struct {
	listFn     func(ctx context.Context) ([]*model.User, error)
	withdrawFn func(ctx context.Context, userID int64) error
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID int64) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockRecipeService struct {
	createFn        func(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error)
	getFn           func(ctx context.Context, recipeID int64) (*model.Recipe, error)
	listMineFn      func(ctx context.Context, userID int64) ([]*model.Recipe, error)
	listAllFn       func(ctx context.Context) ([]*model.Recipe, error)
	updateFn        func(ctx context.Context, userID, recipeID int64, in model.RecipeInput) (*model.Recipe, error)
	deleteFn        func(ctx context.Context, userID, recipeID int64) error
	renderStepsFn   func(ctx context.Context, recipeID int64) ([]steprender.Fragment, error)
	setCoverImageFn func(ctx context.Context, userID, recipeID int64, rawURL string) (*model.Recipe, error)
	setStepImageFn  func(ctx context.Context, userID, recipeID int64, stepNumber int, rawURL string) (*model.Recipe, error)
	exportLogFn     func(ctx context.Context, userID int64) (int, error)
	readLogFn       func(ctx context.Context) ([]recipelog.Record, error)
}

func (m *mockRecipeService) Create(ctx context.Context, userID int64, in model.RecipeInput) (*model.Recipe, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return toastRecipe(), nil
}

func (m *mockRecipeService) Get(ctx context.Context, recipeID int64) (*model.Recipe, error) {
	if m.getFn != nil {
		return m.getFn(ctx, recipeID)
	}
	return toastRecipe(), nil
}

func (m *mockRecipeService) ListMine(ctx context.Context, userID int64) ([]*model.Recipe, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRecipeService) ListAll(ctx context.Context) ([]*model.Recipe, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockRecipeService) Update(ctx context.Context, userID, recipeID int64, in model.RecipeInput) (*model.Recipe, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, recipeID, in)
	}
	return toastRecipe(), nil
}

func (m *mockRecipeService) Delete(ctx context.Context, userID, recipeID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, recipeID)
	}
	return nil
}

func (m *mockRecipeService) RenderSteps(ctx context.Context, recipeID int64) ([]steprender.Fragment, error) {
	if m.renderStepsFn != nil {
		return m.renderStepsFn(ctx, recipeID)
	}
	return nil, nil
}

func (m *mockRecipeService) SetCoverImage(ctx context.Context, userID, recipeID int64, rawURL string) (*model.Recipe, error) {
	if m.setCoverImageFn != nil {
		return m.setCoverImageFn(ctx, userID, recipeID, rawURL)
	}
	return toastRecipe(), nil
}

func (m *mockRecipeService) SetStepImage(ctx context.Context, userID, recipeID int64, stepNumber int, rawURL string) (*model.Recipe, error) {
	if m.setStepImageFn != nil {
		return m.setStepImageFn(ctx, userID, recipeID, stepNumber, rawURL)
	}
	return toastRecipe(), nil
}

func (m *mockRecipeService) ExportLog(ctx context.Context, userID int64) (int, error) {
	if m.exportLogFn != nil {
		return m.exportLogFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockRecipeService) ReadLog(ctx context.Context) ([]recipelog.Record, error) {
	if m.readLogFn != nil {
		return m.readLogFn(ctx)
	}
	return nil, nil
}

type mockInteractionService struct {
	recordFn func(ctx context.Context, userID, recipeID int64, action interaction.Action) (*interaction.Entry, error)
	listFn   func(ctx context.Context, recipeID int64) ([]interaction.Entry, error)
}

func (m *mockInteractionService) Record(ctx context.Context, userID, recipeID int64, action interaction.Action) (*interaction.Entry, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, userID, recipeID, action)
	}
	return nil, nil
}

func (m *mockInteractionService) List(ctx context.Context, recipeID int64) ([]interaction.Entry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, recipeID)
	}
	return nil, nil
}

// --- ヘルパー ---

// toastRecipe はテスト用のレシピを返す。
func toastRecipe() *model.Recipe {
	return &model.Recipe{
		ID: 10, UserID: 1, Name: "Toast", Description: "Simple", Servings: 1, CookTimeMin: 5,
		Steps: []model.Step{
			{StepNumber: 1, Instruction: "Toast bread"},
			{StepNumber: 2, Instruction: "Butter it", ImagePath: "img/butter.png"},
		},
		Ingredients: []model.Ingredient{{Name: "bread", Quantity: 2, Unit: "slices"}},
	}
}

// withUserID はテスト用にコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID int64) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParams はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonBody は値をJSONエンコードしたリクエストボディを返す。
func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

// decodeErrorCode はエラーレスポンスのcodeを取り出す。
func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body.Code
}
