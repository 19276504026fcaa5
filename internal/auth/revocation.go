package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore はログアウト済みトークンのjtiを有効期限まで保持する。
type RevocationStore interface {
	// Revoke はjtiをuntilまで失効扱いにする。
	Revoke(ctx context.Context, jti string, until time.Time) error
	// IsRevoked はjtiが失効済みかを返す。
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore はプロセス内メモリで失効情報を保持する。
// 単一インスタンス構成向け。REDIS_URL未設定時に使用される。
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore はMemoryRevocationStoreを生成する。
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke はjtiを失効扱いにする。期限切れのエントリはこの時点で掃除する。
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, k)
		}
	}
	if until.After(now) {
		s.entries[jti] = until
	}
	return nil
}

// IsRevoked はjtiが失効済みかを返す。
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.entries[jti]
	return ok && exp.After(s.now()), nil
}

// revokedKeyPrefix はRedis上の失効キーの接頭辞。
const revokedKeyPrefix = "recipebook:revoked:"

// RedisRevocationStore はRedisのTTL付きキーで失効情報を保持する。
// 複数インスタンス間で失効状態を共有できる。
type RedisRevocationStore struct {
	rdb *redis.Client
}

// NewRedisRevocationStore はRedisRevocationStoreを生成する。
func NewRedisRevocationStore(rdb *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb}
}

// Revoke はjtiをキーとしてuntilまでのTTLで保存する。
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked はjtiのキーが存在するかを返す。
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// compile-time interface checks
var (
	_ RevocationStore = (*MemoryRevocationStore)(nil)
	_ RevocationStore = (*RedisRevocationStore)(nil)
)
