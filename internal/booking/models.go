package booking

import "time"

const DefaultHoldTTL = 48 * time.Hour

type Options struct {
	HoldTTL time.Duration
	// MaxActiveHolds 是同一个服务单同时存在的未过期预占数量上限，0 表示不限制
	MaxActiveHolds int
}

type PreBookRequest struct {
	ServiceOrderID  string
	ProviderID      string
	ResourceID      string
	Day             time.Time
	StartSlot       int
	EndSlot         int
	DurationMinutes int    // 为 0 时按时间片数量计算
	HoldReference   string // 为空表示不做幂等
}

// ConfirmRequest 中 BookingID 与 HoldReference 必须且只能提供一个
type ConfirmRequest struct {
	BookingID     int64
	HoldReference string
}

type Availability struct {
	ResourceID string    `json:"resourceID"`
	Day        time.Time `json:"day"`
	SlotCount  int       `json:"slotCount"`
	Free       []bool    `json:"free"`
	StartSlots []int     `json:"startSlots"`
}
