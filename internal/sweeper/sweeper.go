// Package sweeper 定期把超过 expiresAt 的预占置为过期并释放时间片。
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// 一次清理中最多连续拉取多少批，防止积压很多时长时间占着租约
const maxBatchesPerRun = 10

type Expirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Sweeper struct {
	expirer   Expirer
	lease     Lease
	interval  time.Duration
	batchSize int
}

// New 创建 sweeper，lease 为 nil 表示只有单个实例，不需要抢占租约
func New(expirer Expirer, lease Lease, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Sweeper{
		expirer:   expirer,
		lease:     lease,
		interval:  interval,
		batchSize: batchSize,
	}
}

// RunOnce 执行一轮清理，没有抢到租约时直接返回 0
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			slog.Debug("其他实例持有清理租约，跳过本轮")
			return 0, nil
		}
	}

	total := 0
	for i := 0; i < maxBatchesPerRun; i++ {
		n, err := s.expirer.ExpireDue(ctx, s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		// 不满一批说明已经清理完了
		if n < s.batchSize {
			break
		}
	}

	return total, nil
}

// Run 每隔 interval 清理一次，直到 ctx 被取消
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			if s.lease != nil {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.lease.Release(releaseCtx); err != nil {
					slog.Error("释放清理租约失败", "error", err)
				}
				cancel()
			}
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	n, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("清理过期预占失败", "expired", n, "error", err)
		return
	}
	if n > 0 {
		slog.Info("已清理过期预占", "expired", n, "duration", time.Since(start))
	}
}
