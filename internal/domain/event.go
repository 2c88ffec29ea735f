package domain

import "time"

type BookingEventType string

const (
	BookingEventPreBooked BookingEventType = "booking.pre_booked"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventExpired   BookingEventType = "booking.expired"
)

type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	OccurredAt time.Time        `json:"occurredAt"`
	StartsAt   time.Time        `json:"startsAt"` // 参考时区下的施工开始时刻
	EndsAt     time.Time        `json:"endsAt"`
	Booking    *Booking         `json:"booking"`
}
