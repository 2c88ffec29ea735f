package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

//go:embed data/holidays.csv
var holidaysCSV []byte

type Store interface {
	UpsertCalendarConfig(ctx context.Context, cfg *domain.CalendarConfig) error
	UpsertHoliday(ctx context.Context, holiday *domain.Holiday) error
	UpsertWorkTeamShift(ctx context.Context, shift *domain.WorkTeamShift) error
}

// DemoCalendarConfigs 演示用的日历配置，工作日为周一到周五
var DemoCalendarConfigs = []domain.CalendarConfig{
	{
		CountryCode:                "CN",
		BusinessUnit:               "default",
		GlobalBufferNonWorkingDays: 2,
		StaticBufferNonWorkingDays: 1,
		TravelBufferMinutes:        30,
		WorkingDays:                []int32{1, 2, 3, 4, 5},
	},
	{
		CountryCode:                "CN",
		BusinessUnit:               "express",
		GlobalBufferNonWorkingDays: 0,
		StaticBufferNonWorkingDays: 0,
		TravelBufferMinutes:        15,
		WorkingDays:                []int32{1, 2, 3, 4, 5, 6, 7},
	},
}

// DemoWorkTeamShifts 演示用的施工队，资源编号固定，方便手动调试接口
var DemoWorkTeamShifts = []domain.WorkTeamShift{
	{
		ResourceID:  "W1",
		Name:        "王伟施工队",
		WorkingDays: []int32{1, 2, 3, 4, 5},
		Shifts:      []domain.ShiftWindow{{StartTime: "08:00:00", EndTime: "16:00:00"}},
	},
	{
		ResourceID:  "W2",
		Name:        "李明施工队",
		WorkingDays: []int32{1, 2, 3, 4, 5, 6},
		Shifts: []domain.ShiftWindow{
			{StartTime: "09:00:00", EndTime: "12:00:00"},
			{StartTime: "13:30:00", EndTime: "18:00:00"},
		},
	},
	{
		ResourceID:  "W3",
		Name:        "张强夜间施工队",
		WorkingDays: []int32{1, 2, 3, 4, 5, 6, 7},
		Shifts:      []domain.ShiftWindow{{StartTime: "19:00:00", EndTime: "24:00:00"}},
	},
}

// ParseHolidays 读取 “国家,日期,名称” 格式的 CSV，第一行为表头
func ParseHolidays(r io.Reader) ([]*domain.Holiday, error) {
	reader := csv.NewReader(r)

	// 读取表头
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	holidays := []*domain.Holiday{}
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("第 %d 行的列数错误", len(holidays)+2)
		}

		date, err := domain.ParseDate(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的日期格式错误: %w", len(holidays)+2, err)
		}

		holidays = append(holidays, &domain.Holiday{
			CountryCode: strings.TrimSpace(row[0]),
			Date:        date,
			Name:        strings.TrimSpace(row[2]),
		})
	}

	return holidays, nil
}

// SeedDemoData 插入演示用的日历配置、节假日和施工队，可以重复执行
func SeedDemoData(ctx context.Context, store Store) error {
	for i := range DemoCalendarConfigs {
		cfg := DemoCalendarConfigs[i]
		if err := store.UpsertCalendarConfig(ctx, &cfg); err != nil {
			return fmt.Errorf("插入日历配置失败: %w", err)
		}
	}

	holidays, err := ParseHolidays(bytes.NewReader(holidaysCSV))
	if err != nil {
		return err
	}
	for _, holiday := range holidays {
		if err := store.UpsertHoliday(ctx, holiday); err != nil {
			return fmt.Errorf("插入节假日 %s 失败: %w", holiday.Date.Format(domain.DateFormat), err)
		}
	}

	for i := range DemoWorkTeamShifts {
		shift := DemoWorkTeamShifts[i]
		if err := store.UpsertWorkTeamShift(ctx, &shift); err != nil {
			return fmt.Errorf("插入施工队 %s 失败: %w", shift.ResourceID, err)
		}
	}

	slog.Info("插入数据完成",
		"calendar_configs", len(DemoCalendarConfigs),
		"holidays", len(holidays),
		"work_teams", len(DemoWorkTeamShifts))

	return nil
}
