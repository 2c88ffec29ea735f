package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

// GetWorkTeamShift 查询资源的班次，资源没有班次数据时返回 sql.ErrNoRows
func (r *Repository) GetWorkTeamShift(ctx context.Context, resourceID string) (*domain.WorkTeamShift, error) {
	query := `
		SELECT name, created_at, version FROM work_team_shifts WHERE resource_id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	shift := &domain.WorkTeamShift{
		ResourceID:  resourceID,
		WorkingDays: []int32{},
		Shifts:      []domain.ShiftWindow{},
	}

	dst := []any{&shift.Name, &shift.CreatedAt, &shift.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, resourceID).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT day FROM work_team_working_days WHERE resource_id = $1 ORDER BY day
	`
	rows, err := r.dbpool.QueryContext(ctx, query, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day int32
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		shift.WorkingDays = append(shift.WorkingDays, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = `
		SELECT start_time, end_time FROM work_team_shift_windows WHERE resource_id = $1 ORDER BY start_time
	`
	windowRows, err := r.dbpool.QueryContext(ctx, query, resourceID)
	if err != nil {
		return nil, err
	}
	defer windowRows.Close()

	for windowRows.Next() {
		var window domain.ShiftWindow
		if err := windowRows.Scan(&window.StartTime, &window.EndTime); err != nil {
			return nil, err
		}
		shift.Shifts = append(shift.Shifts, window)
	}
	if err := windowRows.Err(); err != nil {
		return nil, err
	}

	return shift, nil
}

// UpsertWorkTeamShift 整体替换资源的班次数据
func (r *Repository) UpsertWorkTeamShift(ctx context.Context, shift *domain.WorkTeamShift) error {
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
		INSERT INTO work_team_shifts (resource_id, name)
		VALUES ($1, $2)
		ON CONFLICT (resource_id) DO UPDATE
		SET name = EXCLUDED.name, version = work_team_shifts.version + 1
		RETURNING created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, shift.ResourceID, shift.Name).Scan(&shift.CreatedAt, &shift.Version); err != nil {
		return err
	}

	// 先删除旧的工作日与班次窗口，再插入新的
	if _, err := tx.ExecContext(ctx, `DELETE FROM work_team_working_days WHERE resource_id = $1`, shift.ResourceID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM work_team_shift_windows WHERE resource_id = $1`, shift.ResourceID); err != nil {
		return err
	}

	for _, day := range shift.WorkingDays {
		query = `
			INSERT INTO work_team_working_days (resource_id, day)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, shift.ResourceID, day); err != nil {
			return err
		}
	}

	for _, window := range shift.Shifts {
		query = `
			INSERT INTO work_team_shift_windows (resource_id, start_time, end_time)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, shift.ResourceID, window.StartTime, window.EndTime); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// DeleteWorkTeamShift 删除资源的班次数据，之后该资源的预占不再受班次限制
func (r *Repository) DeleteWorkTeamShift(ctx context.Context, resourceID string) error {
	query := `
		DELETE FROM work_team_shifts WHERE resource_id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, resourceID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *Repository) GetAllWorkTeamShiftIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT resource_id FROM work_team_shifts ORDER BY resource_id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
