// Package calendar 根据工作日与节假日数据计算允许预约的日期窗口。
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"
)

// 向前或向后查找工作日时最多走多少天，防止配置错误（例如全年都是节假日）时死循环
const maxWalkDays = 3 * 366

type Source interface {
	// GetCalendarConfig 在配置不存在时返回 sql.ErrNoRows
	GetCalendarConfig(ctx context.Context, countryCode, businessUnit string) (*domain.CalendarConfig, error)
	GetHolidayDates(ctx context.Context, countryCode string, year int) ([]time.Time, error)
}

type Validator struct {
	source Source
	clock  utils.Clock
	loc    *time.Location
}

// NewValidator 创建校验器，loc 决定“今天”是哪一天
func NewValidator(source Source, clock utils.Clock, loc *time.Location) *Validator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{source: source, clock: clock, loc: loc}
}

func (v *Validator) today() time.Time {
	return domain.DateOf(v.clock.Now().In(v.loc))
}

// ValidateBookingWindow 依次检查候选日期是否为工作日、是否满足全局缓冲期、是否早于交付日期前的静态缓冲期
func (v *Validator) ValidateBookingWindow(ctx context.Context, candidate time.Time, countryCode, businessUnit string, deliveryDate *time.Time) error {
	cal, err := v.load(ctx, countryCode, businessUnit)
	if err != nil {
		return err
	}

	candidate = domain.DateOf(candidate)

	working, err := cal.isWorkingDay(ctx, candidate)
	if err != nil {
		return err
	}
	if !working {
		return domain.NewError(domain.CodeBankHoliday, "%s 不是 %s 的工作日", candidate.Format(domain.DateFormat), countryCode)
	}

	if n := cal.cfg.GlobalBufferNonWorkingDays; n > 0 {
		earliest, err := cal.addWorkingDays(ctx, v.today(), n)
		if err != nil {
			return err
		}
		if candidate.Before(earliest) {
			return domain.NewError(domain.CodeBufferWindowViolation, "最早可预约日期为 %s", earliest.Format(domain.DateFormat))
		}
	}

	if deliveryDate != nil {
		latest, err := cal.addWorkingDays(ctx, domain.DateOf(*deliveryDate), -cal.cfg.StaticBufferNonWorkingDays)
		if err != nil {
			return err
		}
		if candidate.After(latest) {
			return domain.NewError(domain.CodeBufferWindowViolation, "最晚可预约日期为 %s", latest.Format(domain.DateFormat))
		}
	}

	return nil
}

// EarliestBookableDate 返回考虑全局缓冲期后的最早可预约日期
func (v *Validator) EarliestBookableDate(ctx context.Context, countryCode, businessUnit string) (time.Time, error) {
	cal, err := v.load(ctx, countryCode, businessUnit)
	if err != nil {
		return time.Time{}, err
	}

	today := v.today()
	if n := cal.cfg.GlobalBufferNonWorkingDays; n > 0 {
		return cal.addWorkingDays(ctx, today, n)
	}
	return cal.nextWorkingDay(ctx, today)
}

// LatestBookableDate 返回交付日期减去静态缓冲期后的最晚可预约日期
func (v *Validator) LatestBookableDate(ctx context.Context, countryCode, businessUnit string, deliveryDate time.Time) (time.Time, error) {
	cal, err := v.load(ctx, countryCode, businessUnit)
	if err != nil {
		return time.Time{}, err
	}
	return cal.addWorkingDays(ctx, domain.DateOf(deliveryDate), -cal.cfg.StaticBufferNonWorkingDays)
}

// TravelBuffer 直接返回配置中的路程缓冲分钟数，调用方用它在同一资源同一天的作业前后留出时间片
func (v *Validator) TravelBuffer(ctx context.Context, countryCode, businessUnit string) (int, error) {
	cal, err := v.load(ctx, countryCode, businessUnit)
	if err != nil {
		return 0, err
	}
	return cal.cfg.TravelBufferMinutes, nil
}

func (v *Validator) IsWorkingDay(ctx context.Context, day time.Time, countryCode, businessUnit string) (bool, error) {
	cal, err := v.load(ctx, countryCode, businessUnit)
	if err != nil {
		return false, err
	}
	return cal.isWorkingDay(ctx, domain.DateOf(day))
}

func (v *Validator) load(ctx context.Context, countryCode, businessUnit string) (*workingCalendar, error) {
	cfg, err := v.source.GetCalendarConfig(ctx, countryCode, businessUnit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeConfigNotFound, "%s/%s 没有日历配置", countryCode, businessUnit)
		}
		return nil, fmt.Errorf("get calendar config %s/%s: %w", countryCode, businessUnit, err)
	}

	return &workingCalendar{
		source:   v.source,
		cfg:      cfg,
		holidays: make(map[int]map[time.Time]struct{}),
	}, nil
}

// workingCalendar 只在单次调用内使用，节假日按年份懒加载
type workingCalendar struct {
	source   Source
	cfg      *domain.CalendarConfig
	holidays map[int]map[time.Time]struct{}
}

func (c *workingCalendar) isWorkingDay(ctx context.Context, day time.Time) (bool, error) {
	if len(c.cfg.WorkingDays) > 0 && !slices.Contains(c.cfg.WorkingDays, domain.WeekdayCode(day)) {
		return false, nil
	}

	year := day.Year()
	set, ok := c.holidays[year]
	if !ok {
		dates, err := c.source.GetHolidayDates(ctx, c.cfg.CountryCode, year)
		if err != nil {
			return false, fmt.Errorf("get holidays %s/%d: %w", c.cfg.CountryCode, year, err)
		}
		set = make(map[time.Time]struct{}, len(dates))
		for _, d := range dates {
			set[domain.DateOf(d)] = struct{}{}
		}
		c.holidays[year] = set
	}

	_, holiday := set[day]
	return !holiday, nil
}

// addWorkingDays 从 from 开始逐日移动（n 为负数时向后），只对工作日计数，直到数满 |n| 个工作日
func (c *workingCalendar) addWorkingDays(ctx context.Context, from time.Time, n int) (time.Time, error) {
	step := 1
	if n < 0 {
		step, n = -1, -n
	}

	day := from
	for walked, counted := 0, 0; counted < n; walked++ {
		if walked >= maxWalkDays {
			return time.Time{}, fmt.Errorf("在 %d 天内找不到 %d 个工作日", maxWalkDays, n)
		}
		day = day.AddDate(0, 0, step)
		working, err := c.isWorkingDay(ctx, day)
		if err != nil {
			return time.Time{}, err
		}
		if working {
			counted++
		}
	}

	return day, nil
}

func (c *workingCalendar) nextWorkingDay(ctx context.Context, from time.Time) (time.Time, error) {
	day := from
	for walked := 0; walked < maxWalkDays; walked++ {
		working, err := c.isWorkingDay(ctx, day)
		if err != nil {
			return time.Time{}, err
		}
		if working {
			return day, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("在 %d 天内找不到工作日", maxWalkDays)
}
