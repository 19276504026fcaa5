package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret   string
	TokenTTL    time.Duration
	TokenIssuer string
	BcryptCost  int

	// Redis（空の場合はプロセス内でトークン失効を管理する）
	RedisURL string

	// Recipe log
	RecipeLogPath    string
	SnapshotInterval time.Duration

	// Static files / image import
	StaticDir         string
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitLogin   int

	// Server
	ServerPort string
	LogLevel   string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の欠落と不正な値はまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		DatabaseURL: env.required("DATABASE_URL"),
		JWTSecret:   env.required("JWT_SECRET"),

		TokenTTL:    env.duration("TOKEN_TTL", 30*time.Minute),
		TokenIssuer: env.str("TOKEN_ISSUER", "recipebook"),
		BcryptCost:  env.intInRange("BCRYPT_COST", bcrypt.DefaultCost, bcrypt.MinCost, bcrypt.MaxCost),
		RedisURL:    env.str("REDIS_URL", ""),

		RecipeLogPath:    env.str("RECIPE_LOG_PATH", "static/saved_recipes/saved_recipes.txt"),
		SnapshotInterval: env.duration("SNAPSHOT_INTERVAL", 24*time.Hour),

		StaticDir:         env.str("STATIC_DIR", "static"),
		ImageFetchTimeout: env.duration("IMAGE_FETCH_TIMEOUT", 10*time.Second),
		ImageMaxSize:      int64(env.intInRange("IMAGE_MAX_SIZE", 5<<20, 1, math.MaxInt32)),

		RateLimitGeneral: env.intInRange("RATE_LIMIT_GENERAL", 120, 1, math.MaxInt32),
		RateLimitLogin:   env.intInRange("RATE_LIMIT_LOGIN", 10, 1, math.MaxInt32),

		ServerPort: env.port("SERVER_PORT", "8080"),
		LogLevel:   env.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "warning", "error"),

		CORSAllowedOrigin: env.str("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envReader は環境変数を読み取り、問題のあった変数を記録する。
type envReader struct {
	missing []string
	invalid []string
}

func (e *envReader) err() error {
	var errs []error
	if len(e.missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables are not set: %v", e.missing))
	}
	if len(e.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(e.invalid, "; ")))
	}
	return errors.Join(errs...)
}

func (e *envReader) invalidf(key, format string, args ...any) {
	e.invalid = append(e.invalid, key+": "+fmt.Sprintf(format, args...))
}

func (e *envReader) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *envReader) str(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (e *envReader) intInRange(key string, defaultVal, lo, hi int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalidf(key, "%q is not an integer", v)
		return defaultVal
	}
	if i < lo || i > hi {
		e.invalidf(key, "%d is out of range [%d, %d]", i, lo, hi)
		return defaultVal
	}
	return i
}

// duration は正のtime.Durationを読み取る。
func (e *envReader) duration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalidf(key, "%q is not a duration", v)
		return defaultVal
	}
	if d <= 0 {
		e.invalidf(key, "%s must be positive", d)
		return defaultVal
	}
	return d
}

func (e *envReader) port(key, defaultVal string) string {
	v := e.str(key, defaultVal)
	if p, err := strconv.Atoi(v); err != nil || p < 1 || p > 65535 {
		e.invalidf(key, "%q is not a TCP port", v)
		return defaultVal
	}
	return v
}

func (e *envReader) oneOf(key, defaultVal string, allowed ...string) string {
	v := strings.ToLower(e.str(key, defaultVal))
	if slices.Contains(allowed, v) {
		return v
	}
	e.invalidf(key, "%q must be one of %v", v, allowed)
	return defaultVal
}
