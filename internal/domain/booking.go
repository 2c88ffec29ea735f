package domain

import "time"

type BookingStatus string

const (
	BookingStatusPreBooked BookingStatus = "PRE_BOOKED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// IsTerminal 表示该状态之后不再发生任何状态迁移
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusExpired
}

// HoldsSlots 表示处于该状态的预约在位图中占用着时间片
func (s BookingStatus) HoldsSlots() bool {
	return s == BookingStatusPreBooked || s == BookingStatusConfirmed
}

type Booking struct {
	ID                 int64         `json:"id"`
	ServiceOrderID     string        `json:"serviceOrderID"`
	ProviderID         string        `json:"providerID"`
	ResourceID         string        `json:"resourceID"`
	Day                time.Time     `json:"day"`
	StartSlot          int           `json:"startSlot"`
	EndSlot            int           `json:"endSlot"` // 包含在内
	DurationMinutes    int           `json:"durationMinutes"`
	Status             BookingStatus `json:"status"`
	HoldReference      *string       `json:"holdReference"`
	ExpiresAt          *time.Time    `json:"expiresAt"`
	ConfirmedAt        *time.Time    `json:"confirmedAt"`
	CancelledAt        *time.Time    `json:"cancelledAt"`
	CancellationReason *string       `json:"cancellationReason"`
	CreatedAt          time.Time     `json:"createdAt"`
	Version            int32         `json:"-"`
}

type BookingFilter struct {
	ResourceID     string
	Day            *time.Time
	ServiceOrderID string
	Status         *BookingStatus
	Limit          uint64
}
