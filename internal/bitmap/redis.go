package bitmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

// 检查和置位在同一个脚本里完成，redis 保证脚本执行期间不会插入其他命令
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local first = tonumber(ARGV[1])
local last = tonumber(ARGV[2])
local expireAt = tonumber(ARGV[3])

for i = first, last do
	if redis.call("GETBIT", key, i) == 1 then
		return 0
	end
end

for i = first, last do
	redis.call("SETBIT", key, i, 1)
end

if expireAt > 0 then
	redis.call("PEXPIREAT", key, expireAt)
end

return 1
`)

var releaseScript = redis.NewScript(`
local key = KEYS[1]
local first = tonumber(ARGV[1])
local last = tonumber(ARGV[2])

if redis.call("EXISTS", key) == 0 then
	return 0
end

for i = first, last do
	redis.call("SETBIT", key, i, 0)
end

return 1
`)

type RedisStore struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
	timeout   time.Duration
}

// NewRedisStore 创建基于 redis 的位图存储。retention 是位图在其所属日期结束后继续保留的时长，
// 过期后 redis 会自动删除该键，这与“键不存在即全部空闲”的约定是一致的。
func NewRedisStore(client redis.Cmdable, prefix string, retention, timeout time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "crew_booking:slots"
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
		timeout:   timeout,
	}
}

func (s *RedisStore) key(resourceID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, resourceID, domain.DateOf(day).Format(domain.DateFormat))
}

func (s *RedisStore) expireAt(day time.Time) int64 {
	if s.retention <= 0 {
		return 0
	}
	return domain.DateOf(day).AddDate(0, 0, 1).Add(s.retention).UnixMilli()
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) Reserve(ctx context.Context, resourceID string, day time.Time, start, end int) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys := []string{s.key(resourceID, day)}
	res, err := reserveScript.Run(ctx, s.client, keys, start, end, s.expireAt(day)).Int()
	if err != nil {
		return false, fmt.Errorf("reserve slots %s: %w", keys[0], err)
	}

	return res == 1, nil
}

func (s *RedisStore) Release(ctx context.Context, resourceID string, day time.Time, start, end int) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys := []string{s.key(resourceID, day)}
	if err := releaseScript.Run(ctx, s.client, keys, start, end).Err(); err != nil {
		return fmt.Errorf("release slots %s: %w", keys[0], err)
	}

	return nil
}

func (s *RedisStore) Read(ctx context.Context, resourceID string, day time.Time) (slot.Bitmap, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.key(resourceID, day)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return slot.Bitmap{}, nil
		}
		return slot.Bitmap{}, fmt.Errorf("read slots %s: %w", key, err)
	}

	return slot.FromBytes(raw), nil
}
