// Package bitmap 维护每个 (资源, 日期) 的时间片占用位图。
//
// 所有修改都必须经过 Reserve / Release，由后端存储保证原子性，调用方不允许先读后写。
// 不存在的位图等价于全部空闲。
package bitmap

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

type Store interface {
	// Reserve 在 [start, end] 全部空闲时把它们置为占用并返回 true，否则不做任何修改并返回 false
	Reserve(ctx context.Context, resourceID string, day time.Time, start, end int) (bool, error)
	// Release 无条件地把 [start, end] 置为空闲，重复调用是安全的
	Release(ctx context.Context, resourceID string, day time.Time, start, end int) error
	Read(ctx context.Context, resourceID string, day time.Time) (slot.Bitmap, error)
}

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)
