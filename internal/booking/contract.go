package booking

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

// Store 是预约记录的持久化存储，按 id 逐行更新，不需要跨行事务。
// 找不到记录时返回 sql.ErrNoRows。
type Store interface {
	// CreateBooking 在 hold_reference 冲突时返回 domain.ErrDuplicateHoldReference
	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByHoldReference(ctx context.Context, holdReference string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, b *domain.Booking) error
	CountActiveHolds(ctx context.Context, serviceOrderID string, now time.Time) (int, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error)
}

// ShiftSource 查询资源的班次信息，没有班次数据时返回 sql.ErrNoRows
type ShiftSource interface {
	GetWorkTeamShift(ctx context.Context, resourceID string) (*domain.WorkTeamShift, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.BookingEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.BookingEvent) error { return nil }
