package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

const bookingColumns = `
	id,
	service_order_id,
	provider_id,
	resource_id,
	day,
	start_slot,
	end_slot,
	duration_minutes,
	status,
	hold_reference,
	expires_at,
	confirmed_at,
	cancelled_at,
	cancellation_reason,
	created_at,
	version
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}

	dst := []any{
		&b.ID,
		&b.ServiceOrderID,
		&b.ProviderID,
		&b.ResourceID,
		&b.Day,
		&b.StartSlot,
		&b.EndSlot,
		&b.DurationMinutes,
		&b.Status,
		&b.HoldReference,
		&b.ExpiresAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	b.Day = domain.DateOf(b.Day)

	return b, nil
}

func (r *Repository) CreateBooking(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			service_order_id, provider_id, resource_id, day, start_slot, end_slot,
			duration_minutes, status, hold_reference, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		b.ServiceOrderID,
		b.ProviderID,
		b.ResourceID,
		domain.DateOf(b.Day),
		b.StartSlot,
		b.EndSlot,
		b.DurationMinutes,
		b.Status,
		b.HoldReference,
		b.ExpiresAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&b.ID, &b.CreatedAt, &b.Version); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "bookings_hold_reference_key" {
			return domain.ErrDuplicateHoldReference
		}
		return err
	}

	return nil
}

func (r *Repository) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanBooking(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetBookingByHoldReference(ctx context.Context, holdReference string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE hold_reference = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanBooking(r.dbpool.QueryRowContext(ctx, query, holdReference))
}

// UpdateBookingStatus 使用 version 做乐观锁，记录已被其他请求修改时返回 sql.ErrNoRows
func (r *Repository) UpdateBookingStatus(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET
			status = $1,
			expires_at = $2,
			confirmed_at = $3,
			cancelled_at = $4,
			cancellation_reason = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{b.Status, b.ExpiresAt, b.ConfirmedAt, b.CancelledAt, b.CancellationReason, b.ID, b.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&b.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CountActiveHolds(ctx context.Context, serviceOrderID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE service_order_id = $1 AND status = $2 AND expires_at > $3
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var count int
	if err := r.dbpool.QueryRowContext(ctx, query, serviceOrderID, domain.BookingStatusPreBooked, now).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	// LIMIT NULL 表示不限制
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.dbpool.QueryContext(ctx, query, domain.BookingStatusPreBooked, now, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *Repository) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error) {
	builder := psql.Select(bookingColumns).From("bookings").OrderBy("id")

	if filter.ResourceID != "" {
		builder = builder.Where(squirrel.Eq{"resource_id": filter.ResourceID})
	}
	if filter.ServiceOrderID != "" {
		builder = builder.Where(squirrel.Eq{"service_order_id": filter.ServiceOrderID})
	}
	if filter.Day != nil {
		builder = builder.Where(squirrel.Eq{"day": domain.DateOf(*filter.Day)})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := []*domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
