package bitmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

// PostgresStore 用一条带条件的 upsert 语句完成检查并设置，适用于没有 redis 的部署
type PostgresStore struct {
	dbpool  *sql.DB
	timeout time.Duration
}

func NewPostgresStore(dbpool *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{dbpool: dbpool, timeout: timeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostgresStore) Reserve(ctx context.Context, resourceID string, day time.Time, start, end int) (bool, error) {
	// 冲突时只有在原位图与掩码没有交集的情况下才会更新，否则 RETURNING 不返回任何行
	query := `
		INSERT INTO slot_bitmaps (resource_id, day, lo, hi)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource_id, day) DO UPDATE
		SET
			lo = slot_bitmaps.lo | EXCLUDED.lo,
			hi = slot_bitmaps.hi | EXCLUDED.hi,
			updated_at = NOW()
		WHERE slot_bitmaps.lo & EXCLUDED.lo = 0 AND slot_bitmaps.hi & EXCLUDED.hi = 0
		RETURNING lo
	`

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mask := slot.RangeMask(start, end)
	params := []any{resourceID, domain.DateOf(day), int64(mask.Lo), int64(mask.Hi)}

	var lo int64
	if err := s.dbpool.QueryRowContext(ctx, query, params...).Scan(&lo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reserve slots %s/%s: %w", resourceID, day.Format(domain.DateFormat), err)
	}

	return true, nil
}

func (s *PostgresStore) Release(ctx context.Context, resourceID string, day time.Time, start, end int) error {
	query := `
		UPDATE slot_bitmaps
		SET
			lo = lo & ~$3::BIGINT,
			hi = hi & ~$4::BIGINT,
			updated_at = NOW()
		WHERE resource_id = $1 AND day = $2
	`

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	mask := slot.RangeMask(start, end)
	params := []any{resourceID, domain.DateOf(day), int64(mask.Lo), int64(mask.Hi)}

	if _, err := s.dbpool.ExecContext(ctx, query, params...); err != nil {
		return fmt.Errorf("release slots %s/%s: %w", resourceID, day.Format(domain.DateFormat), err)
	}

	return nil
}

func (s *PostgresStore) Read(ctx context.Context, resourceID string, day time.Time) (slot.Bitmap, error) {
	query := `
		SELECT lo, hi FROM slot_bitmaps WHERE resource_id = $1 AND day = $2
	`

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var lo, hi int64
	if err := s.dbpool.QueryRowContext(ctx, query, resourceID, domain.DateOf(day)).Scan(&lo, &hi); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return slot.Bitmap{}, nil
		}
		return slot.Bitmap{}, fmt.Errorf("read slots %s/%s: %w", resourceID, day.Format(domain.DateFormat), err)
	}

	return slot.Bitmap{Lo: uint64(lo), Hi: uint64(hi)}, nil
}
