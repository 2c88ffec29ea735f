package utils

import (
	"fmt"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

func validateWeekdays(days []int32) error {
	seen := make(map[int32]bool)
	for _, day := range days {
		if day < 1 || day > 7 {
			return fmt.Errorf("工作日 %d 无效，必须在 1 到 7 之间", day)
		}
		if seen[day] {
			return fmt.Errorf("工作日 %d 重复", day)
		}
		seen[day] = true
	}
	return nil
}

func ValidateWorkTeamShift(shift *domain.WorkTeamShift) error {
	if err := validateWeekdays(shift.WorkingDays); err != nil {
		return err
	}

	// 检查每一个班次窗口的格式，并且至少覆盖一个时间片
	bounds := make([][2]int, len(shift.Shifts))
	for i, window := range shift.Shifts {
		start, end, err := slot.ShiftBounds(window.StartTime, window.EndTime)
		if err != nil {
			return fmt.Errorf("班次 %d: %w", i, err)
		}
		if start == end {
			return fmt.Errorf("班次 %d 不足一个时间片", i)
		}
		bounds[i] = [2]int{start, end}
	}

	// 检查各个班次之间的时间是否冲突
	for i := 0; i < len(bounds); i++ {
		for j := i + 1; j < len(bounds); j++ {
			if bounds[i][0] < bounds[j][1] && bounds[j][0] < bounds[i][1] {
				return fmt.Errorf("班次 %d 和班次 %d 之间的时间冲突", i, j)
			}
		}
	}

	return nil
}

func ValidateCalendarConfig(cfg *domain.CalendarConfig) error {
	if cfg.GlobalBufferNonWorkingDays < 0 || cfg.StaticBufferNonWorkingDays < 0 {
		return fmt.Errorf("缓冲期天数不能为负数")
	}
	if cfg.TravelBufferMinutes < 0 {
		return fmt.Errorf("路途缓冲时间不能为负数")
	}
	return validateWeekdays(cfg.WorkingDays)
}
