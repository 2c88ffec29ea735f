package booking

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

// MemoryStore 是 Store 的内存实现，用于单进程部署和测试
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[int64]*domain.Booking)}
}

func clone(b *domain.Booking) *domain.Booking {
	c := *b
	return &c
}

func (s *MemoryStore) CreateBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.HoldReference != nil {
		for _, existing := range s.bookings {
			if existing.HoldReference != nil && *existing.HoldReference == *b.HoldReference {
				return domain.ErrDuplicateHoldReference
			}
		}
	}

	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Now()
	b.Version = 1
	s.bookings[b.ID] = clone(b)

	return nil
}

func (s *MemoryStore) GetBookingByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clone(b), nil
}

func (s *MemoryStore) GetBookingByHoldReference(_ context.Context, holdReference string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.HoldReference != nil && *b.HoldReference == holdReference {
			return clone(b), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *MemoryStore) UpdateBookingStatus(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 与数据库一样按版本号做乐观锁
	existing, ok := s.bookings[b.ID]
	if !ok || existing.Version != b.Version {
		return sql.ErrNoRows
	}
	b.Version++
	s.bookings[b.ID] = clone(b)

	return nil
}

func (s *MemoryStore) CountActiveHolds(_ context.Context, serviceOrderID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, b := range s.bookings {
		if b.ServiceOrderID == serviceOrderID && b.Status == domain.BookingStatusPreBooked &&
			b.ExpiresAt != nil && b.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := []*domain.Booking{}
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusPreBooked && b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
			due = append(due, clone(b))
		}
	}
	slices.SortFunc(due, func(a, b *domain.Booking) int {
		return a.ExpiresAt.Compare(*b.ExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) ListBookings(_ context.Context, filter domain.BookingFilter) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.Booking{}
	for _, b := range s.bookings {
		if filter.ResourceID != "" && b.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ServiceOrderID != "" && b.ServiceOrderID != filter.ServiceOrderID {
			continue
		}
		if filter.Day != nil && !b.Day.Equal(domain.DateOf(*filter.Day)) {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, clone(b))
	}
	slices.SortFunc(out, func(a, b *domain.Booking) int {
		return int(a.ID - b.ID)
	})
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
