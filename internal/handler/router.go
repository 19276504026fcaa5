package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/middleware"
)

// HealthChecker はヘルスチェックで依存先の疎通を確認するインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	Logger            *slog.Logger

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	StaticDir      string

	// 認証・ユーザー
	AuthService AuthServiceInterface
	UserService UserServiceInterface

	// レシピ
	RecipeService      RecipeServiceInterface
	RecipeLogService   RecipeLogServiceInterface
	InteractionService InteractionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Metrics → Logging → SecurityHeaders → CORS → AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 参照系のレシピAPI、ユーザー登録、トークン発行は認証なしで利用できる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthService)
	recipeHandler := NewRecipeHandler(deps.RecipeService)
	logHandler := NewRecipeLogHandler(deps.RecipeLogService)
	interactionHandler := NewInteractionHandler(deps.InteractionService)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir)))
		r.Handle("/static/*", fs)
	}

	// --- 認証不要のルート ---
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/token", authHandler.Token)
	r.Post("/users", authHandler.Register)
	r.Get("/users", userHandler.List)
	r.Get("/recipes", recipeHandler.List)
	r.Get("/recipes/log", logHandler.Read)
	r.Get("/recipes/{id}", recipeHandler.Get)
	r.Get("/recipes/{id}/steps/rendered", recipeHandler.RenderedSteps)
	r.Get("/recipes/{id}/interactions", interactionHandler.List)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/logout", authHandler.Logout)

		r.Get("/users/me", authHandler.Me)
		r.Delete("/users/me", userHandler.Withdraw)

		r.Post("/recipes", recipeHandler.Create)
		r.Get("/recipes/mine", recipeHandler.ListMine)
		r.Post("/recipes/log", logHandler.Export)

		r.Put("/recipes/{id}", recipeHandler.Update)
		r.Delete("/recipes/{id}", recipeHandler.Delete)
		r.Post("/recipes/{id}/image", recipeHandler.SetCoverImage)
		r.Post("/recipes/{id}/steps/{number}/image", recipeHandler.SetStepImage)
		r.Post("/recipes/{id}/interactions", interactionHandler.Create)
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
