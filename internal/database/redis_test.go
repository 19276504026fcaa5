package database

import (
	"context"
	"strings"
	"testing"
)

func TestOpenRedis_InvalidURL_ReturnsError(t *testing.T) {
	_, err := OpenRedis(context.Background(), "http://localhost:6379")
	if err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
	if !strings.Contains(err.Error(), "invalid redis url") {
		t.Errorf("error = %q, want it to mention invalid redis url", err.Error())
	}
}

// 接続先が存在しない場合はPingで失敗すること。
// 127.0.0.1:1 は通常リッスンされていないポート。
func TestOpenRedis_Unreachable_ReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenRedis(ctx, "redis://127.0.0.1:1/0")
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	if !strings.Contains(err.Error(), "failed to connect to redis") {
		t.Errorf("error = %q", err.Error())
	}
}
