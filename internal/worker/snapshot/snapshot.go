// Package snapshot はレシピログへの定期スナップショットジョブを提供する。
// 全ユーザーのレシピを一定間隔でレシピログに追記する。
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Exporter は全レシピをレシピログへ追記するインターフェース。
// recipe.Serviceが満たす。
type Exporter interface {
	ExportAll(ctx context.Context) (int, error)
}

// SnapshotJob は全レシピをレシピログに追記するジョブ。
type SnapshotJob struct {
	exporter Exporter
	logger   *slog.Logger
}

// NewSnapshotJob は新しいSnapshotJobを生成する。
func NewSnapshotJob(exporter Exporter, logger *slog.Logger) *SnapshotJob {
	return &SnapshotJob{
		exporter: exporter,
		logger:   logger,
	}
}

// Run はスナップショットを1回実行する。
// レシピが0件の場合はログに何も追記しない。
func (j *SnapshotJob) Run(ctx context.Context) error {
	start := time.Now()

	count, err := j.exporter.ExportAll(ctx)
	if err != nil {
		j.logger.Error("レシピスナップショットの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レシピスナップショットの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("レシピスナップショットが完了しました",
		slog.Int("recipe_count", count),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにスナップショットを実行する。
// コンテキストがキャンセルされるまで実行を継続する。失敗しても次の周期で再実行する。
func (j *SnapshotJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("スナップショットスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("スナップショットスケジューラを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
