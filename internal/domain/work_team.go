package domain

import "time"

type ShiftWindow struct {
	StartTime string `json:"startTime"` // HH:MM:SS
	EndTime   string `json:"endTime"`   // HH:MM:SS，00:00:00 或 24:00:00 表示当天结束
}

// WorkTeamShift 是某个施工队（资源）的工作日与班次窗口
type WorkTeamShift struct {
	ResourceID  string        `json:"resourceID"`
	Name        string        `json:"name"`
	WorkingDays []int32       `json:"workingDays"`
	Shifts      []ShiftWindow `json:"shifts"`
	CreatedAt   time.Time     `json:"createdAt"`
	Version     int32         `json:"-"`
}
