package media

import (
	"net/http"
	"time"
)

// fetchOutcome はHTTPステータスコードに基づく画像取得結果の分類。
type fetchOutcome int

const (
	// outcomeOK は取得成功（2xx）。
	outcomeOK fetchOutcome = iota
	// outcomeStop は再試行しても成功しない応答（4xxなど）。
	outcomeStop
	// outcomeRetry は時間をおけば成功し得る応答（429/5xx）。
	outcomeRetry
)

const (
	// defaultMaxAttempts は画像取得の最大試行回数。
	defaultMaxAttempts = 3
	// defaultRetryDelay は初回再試行までの待ち時間。
	defaultRetryDelay = 200 * time.Millisecond
	// maxRetryDelay は再試行待ちの上限。
	maxRetryDelay = 2 * time.Second
)

// classifyStatus はHTTPステータスコードを取得結果に分類する。
func classifyStatus(statusCode int) fetchOutcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return outcomeOK
	case statusCode == http.StatusTooManyRequests:
		return outcomeRetry
	case statusCode >= 500:
		return outcomeRetry
	default:
		return outcomeStop
	}
}

// backoffDelay はattempt回目（0始まり）の失敗後の待ち時間を返す。
// base から2倍ずつ増加し、maxRetryDelayで頭打ちになる。
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
