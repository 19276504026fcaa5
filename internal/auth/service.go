// Package auth はパスワード認証、アクセストークンの発行・検証・失効を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// 入力値の制約
const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	// bcryptは72バイトを超える入力を扱えない
	maxPasswordBytes = 72
)

// TokenTypeBearer はトークンレスポンスのtoken_type。
const TokenTypeBearer = "bearer"

// Token はログイン成功時に返すアクセストークン。
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int // 秒
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	tokens      *TokenManager
	revocations RevocationStore
	hasher      *PasswordHasher
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokens *TokenManager,
	revocations RevocationStore,
	hasher *PasswordHasher,
) *Service {
	return &Service{
		userRepo:    userRepo,
		tokens:      tokens,
		revocations: revocations,
		hasher:      hasher,
	}
}

// Register はユーザーを登録する。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func validateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return model.NewValidationError(
			fmt.Sprintf("ユーザー名は%d〜%d文字で指定してください", minUsernameLength, maxUsernameLength))
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return model.NewValidationError("ユーザー名に空白は使用できません")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return model.NewValidationError(
			fmt.Sprintf("パスワードは%d〜%dバイトで指定してください", minPasswordLength, maxPasswordBytes))
	}
	return nil
}

// Login はユーザー名とパスワードを検証し、アクセストークンを発行する。
// ユーザーが存在しない場合とパスワードが誤っている場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.hasher.VerifyPassword(user.PasswordHash, password) {
		slog.Info("login failed", slog.String("username", username))
		return nil, model.NewInvalidCredentialsError()
	}

	signed, _, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return &Token{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// Authenticate はアクセストークンを検証し、クレームを返す。
// 失効済みのトークンは拒否する。
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		slog.Debug("token validation failed", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError()
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, model.NewUnauthorizedError()
	}
	return claims, nil
}

// Logout はトークンを有効期限まで失効させる。
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	slog.Info("user logged out", slog.Int64("user_id", claims.UserID))
	return nil
}

// CurrentUser は認証済みユーザーを取得する。
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
