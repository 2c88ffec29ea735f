package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

// GetCalendarConfig 配置不存在时返回 sql.ErrNoRows
func (r *Repository) GetCalendarConfig(ctx context.Context, countryCode, businessUnit string) (*domain.CalendarConfig, error) {
	query := `
		SELECT
			cc.global_buffer_non_working_days,
			cc.static_buffer_non_working_days,
			cc.travel_buffer_minutes,
			cc.updated_at,
			cc.version,
			cwd.day
		FROM calendar_configs cc
		LEFT JOIN calendar_working_days cwd
			ON cc.country_code = cwd.country_code AND cc.business_unit = cwd.business_unit
		WHERE cc.country_code = $1 AND cc.business_unit = $2
		ORDER BY cwd.day
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, countryCode, businessUnit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cfg *domain.CalendarConfig
	for rows.Next() {
		var row struct {
			Global    int
			Static    int
			Travel    int
			UpdatedAt time.Time
			Version   int32
			Day       *int32
		}

		dst := []any{&row.Global, &row.Static, &row.Travel, &row.UpdatedAt, &row.Version, &row.Day}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if cfg == nil {
			cfg = &domain.CalendarConfig{
				CountryCode:                countryCode,
				BusinessUnit:               businessUnit,
				GlobalBufferNonWorkingDays: row.Global,
				StaticBufferNonWorkingDays: row.Static,
				TravelBufferMinutes:        row.Travel,
				WorkingDays:                []int32{},
				UpdatedAt:                  row.UpdatedAt,
				Version:                    row.Version,
			}
		}

		// day 为空表示没有配置工作日，即每天都是工作日
		if row.Day != nil {
			cfg.WorkingDays = append(cfg.WorkingDays, *row.Day)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, sql.ErrNoRows
	}

	return cfg, nil
}

func (r *Repository) UpsertCalendarConfig(ctx context.Context, cfg *domain.CalendarConfig) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO calendar_configs (
			country_code, business_unit, global_buffer_non_working_days,
			static_buffer_non_working_days, travel_buffer_minutes
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (country_code, business_unit) DO UPDATE
		SET
			global_buffer_non_working_days = EXCLUDED.global_buffer_non_working_days,
			static_buffer_non_working_days = EXCLUDED.static_buffer_non_working_days,
			travel_buffer_minutes = EXCLUDED.travel_buffer_minutes,
			updated_at = NOW(),
			version = calendar_configs.version + 1
		RETURNING updated_at, version
	`
	params := []any{
		cfg.CountryCode,
		cfg.BusinessUnit,
		cfg.GlobalBufferNonWorkingDays,
		cfg.StaticBufferNonWorkingDays,
		cfg.TravelBufferMinutes,
	}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&cfg.UpdatedAt, &cfg.Version); err != nil {
		return err
	}

	query = `
		DELETE FROM calendar_working_days WHERE country_code = $1 AND business_unit = $2
	`
	if _, err := tx.ExecContext(ctx, query, cfg.CountryCode, cfg.BusinessUnit); err != nil {
		return err
	}

	for _, day := range cfg.WorkingDays {
		query = `
			INSERT INTO calendar_working_days (country_code, business_unit, day)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, cfg.CountryCode, cfg.BusinessUnit, day); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// UpsertHoliday 同一国家同一天只保留一条节假日记录
func (r *Repository) UpsertHoliday(ctx context.Context, holiday *domain.Holiday) error {
	query := `
		INSERT INTO holidays (country_code, date, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (country_code, date) DO UPDATE SET name = EXCLUDED.name
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	holiday.Date = domain.DateOf(holiday.Date)
	if _, err := r.dbpool.ExecContext(ctx, query, holiday.CountryCode, holiday.Date, holiday.Name); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetHolidays(ctx context.Context, countryCode string, year int) ([]*domain.Holiday, error) {
	query := `
		SELECT date, name FROM holidays
		WHERE country_code = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.dbpool.QueryContext(ctx, query, countryCode, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holidays := []*domain.Holiday{}
	for rows.Next() {
		holiday := &domain.Holiday{CountryCode: countryCode}
		if err := rows.Scan(&holiday.Date, &holiday.Name); err != nil {
			return nil, err
		}
		holiday.Date = domain.DateOf(holiday.Date)
		holidays = append(holidays, holiday)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holidays, nil
}

// GetHolidayDates 返回某国家某年的所有节假日日期，供工作日计算使用
func (r *Repository) GetHolidayDates(ctx context.Context, countryCode string, year int) ([]time.Time, error) {
	holidays, err := r.GetHolidays(ctx, countryCode, year)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(holidays))
	for _, holiday := range holidays {
		dates = append(dates, holiday.Date)
	}

	return dates, nil
}
