// Package slot 把一天按 15 分钟切分为 96 个时间片，并提供时间与时间片下标之间的换算。
package slot

import (
	"fmt"
	"time"
)

const (
	Minutes    = 15
	PerDay     = 24 * 60 / Minutes // 96
	Last       = PerDay - 1
	clockParse = "15:04:05"
)

// ToIndex 返回 instant 在 loc 时区当天所处的时间片下标，超出范围时截断到 [0, 95]
func ToIndex(instant time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	return clamp((local.Hour()*60 + local.Minute()) / Minutes)
}

// Count 返回覆盖 durationMinutes 所需的时间片数量（向上取整）
func Count(durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	return (durationMinutes + Minutes - 1) / Minutes
}

// ForDuration 返回从 start 开始、覆盖 durationMinutes 的连续时间片下标
func ForDuration(start, durationMinutes int) []int {
	n := Count(durationMinutes)
	slots := make([]int, n)
	for i := range slots {
		slots[i] = start + i
	}
	return slots
}

// HasStartInShift 判断 start 是否落在半开区间 [shiftStart, shiftEnd) 内
func HasStartInShift(start, shiftStart, shiftEnd int) bool {
	return shiftStart <= start && start < shiftEnd
}

func ValidRange(start, end int) bool {
	return 0 <= start && start <= end && end < PerDay
}

// ShiftBounds 把 HH:MM:SS 形式的班次窗口转换为时间片边界 [start, end)。
// 结束时间为 00:00:00 或 24:00:00 时表示当天结束，即 96。
func ShiftBounds(startTime, endTime string) (int, int, error) {
	startMinutes, err := parseClock(startTime)
	if err != nil {
		return 0, 0, fmt.Errorf("开始时间 %q 格式错误: %w", startTime, err)
	}

	var endMinutes int
	if endTime == "24:00:00" || endTime == "00:00:00" {
		endMinutes = 24 * 60
	} else {
		endMinutes, err = parseClock(endTime)
		if err != nil {
			return 0, 0, fmt.Errorf("结束时间 %q 格式错误: %w", endTime, err)
		}
	}

	if endMinutes <= startMinutes {
		return 0, 0, fmt.Errorf("结束时间 %s 不能早于开始时间 %s", endTime, startTime)
	}

	return startMinutes / Minutes, endMinutes / Minutes, nil
}

// StartTime 返回时间片在 day 当天 loc 时区下的开始时刻
func StartTime(day time.Time, index int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, index*Minutes, 0, 0, loc)
}

func parseClock(s string) (int, error) {
	t, err := time.Parse(clockParse, s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > Last {
		return Last
	}
	return i
}
