package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper は期限切れデータを掃除するもの。session.Manager が満たします。
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SweepSessions は1回分の掃除を行い、削除件数をログとメトリクスに残します。
func SweepSessions(ctx context.Context, sweeper Sweeper, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("期限切れセッションの削除に失敗しました", zap.Error(err))
		return
	}
	SessionsSweptTotal.Add(float64(n))
	logger.Info("期限切れセッションの削除完了", zap.Int64("sessions_deleted", n))
}

// CronCleaner は定期ジョブを登録して開始します。戻り値の Stop で止められます。
// トークンは掃除しません（期限切れのトークンは検証で弾かれるだけ）。
func CronCleaner(sweeper Sweeper, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	// 期限切れセッションを削除するジョブ（"分 時 日 月 曜日"）
	_, err := c.AddFunc("0 3 * * *", func() {
		logger.Info("期限切れセッションを削除する処理を開始")
		SweepSessions(context.Background(), sweeper, logger)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
