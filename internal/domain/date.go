package domain

import "time"

const DateFormat = "2006-01-02"

// DateOf 丢弃时间部分，返回同一年月日的 UTC 零点，用作 (资源, 日期) 的日期键
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// WeekdayCode 把 time.Weekday 转换为 1~7 的编码，1 表示周一，7 表示周日
func WeekdayCode(t time.Time) int32 {
	wd := t.Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int32(wd)
}
