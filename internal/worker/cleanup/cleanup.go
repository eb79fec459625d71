// Package cleanup は失効した訪問者レコードの定期削除ジョブを提供する。
// 訪問者の参照は投稿・投票側でSET NULLされるため、投稿と集計は削除後も残る。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/meyasu/internal/metrics"
)

// DefaultInterval はジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// VisitorReaper は失効した訪問者レコードの削除に必要なインターフェース。
// repository.VisitorRepositoryの部分集合として定義する。
type VisitorReaper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は失効した訪問者レコードの削除ジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	visitors VisitorReaper
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewCleanupJob(visitors VisitorReaper, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		visitors: visitors,
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
	}
}

// Run は現在時刻の時点で失効している訪問者レコードを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.visitors.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("訪問者クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("訪問者クリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordVisitorsReaped(deleted)

	duration := time.Since(start)
	j.logger.Info("訪問者クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行した後、interval ごとにRunを繰り返す。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗はログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
