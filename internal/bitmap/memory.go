package bitmap

import (
	"context"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

type memoryKey struct {
	resourceID string
	day        time.Time
}

// MemoryStore 用于单进程部署和测试，整个检查并设置过程在同一把锁内完成
type MemoryStore struct {
	mu      sync.Mutex
	bitmaps map[memoryKey]slot.Bitmap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bitmaps: make(map[memoryKey]slot.Bitmap)}
}

func (s *MemoryStore) Reserve(_ context.Context, resourceID string, day time.Time, start, end int) (bool, error) {
	key := memoryKey{resourceID: resourceID, day: domain.DateOf(day)}
	mask := slot.RangeMask(start, end)

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.bitmaps[key]
	if current.Overlaps(mask) {
		return false, nil
	}
	s.bitmaps[key] = current.Union(mask)

	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, resourceID string, day time.Time, start, end int) error {
	key := memoryKey{resourceID: resourceID, day: domain.DateOf(day)}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bitmaps[key]
	if !ok {
		return nil
	}
	s.bitmaps[key] = current.Clear(slot.RangeMask(start, end))

	return nil
}

func (s *MemoryStore) Read(_ context.Context, resourceID string, day time.Time) (slot.Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bitmaps[memoryKey{resourceID: resourceID, day: domain.DateOf(day)}], nil
}
