package domain

import "time"

// CalendarConfig 以 (国家, 业务单元) 为键的缓冲期配置
type CalendarConfig struct {
	CountryCode                string    `json:"countryCode"`
	BusinessUnit               string    `json:"businessUnit"`
	GlobalBufferNonWorkingDays int       `json:"globalBufferNonWorkingDays"`
	StaticBufferNonWorkingDays int       `json:"staticBufferNonWorkingDays"`
	TravelBufferMinutes        int       `json:"travelBufferMinutes"`
	WorkingDays                []int32   `json:"workingDays"` // 为空表示每天都是工作日
	UpdatedAt                  time.Time `json:"updatedAt"`
	Version                    int32     `json:"-"`
}

type Holiday struct {
	CountryCode string    `json:"countryCode"`
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
}
