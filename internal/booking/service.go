// Package booking 实现预约的生命周期：预占、确认、取消和过期。
//
// 只有位图的检查并设置是原子的。预占时总是先占位图再写预约记录，
// 写记录失败只会留下一段孤立的占用（需要人工释放），绝不会留下没有占用的预约记录。
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/bitmap"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"
)

// 取消时因为并发修改而重新读取记录的最多次数
const maxStatusUpdateAttempts = 3

type Service struct {
	store   Store
	bitmaps bitmap.Store
	shifts  ShiftSource
	events  EventPublisher
	clock   utils.Clock
	metrics *metrics.Metrics
	loc     *time.Location
	opts    Options
}

type Option func(*Service)

func WithShiftSource(shifts ShiftSource) Option {
	return func(s *Service) { s.shifts = shifts }
}

func WithEventPublisher(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation 设置时间片所在的参考时区，只影响事件中的开始和结束时刻
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store Store, bitmaps bitmap.Store, opts Options, options ...Option) *Service {
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = DefaultHoldTTL
	}

	s := &Service{
		store:   store,
		bitmaps: bitmaps,
		events:  nopPublisher{},
		clock:   utils.SystemClock{},
		loc:     time.UTC,
		opts:    opts,
	}
	for _, o := range options {
		o(s)
	}

	return s
}

func (s *Service) PreBook(ctx context.Context, req PreBookRequest) (b *domain.Booking, err error) {
	defer s.observe("pre_book", time.Now(), &err)

	// 1. 检查时间片范围
	if !slot.ValidRange(req.StartSlot, req.EndSlot) {
		return nil, domain.NewError(domain.CodeInvalidRange, "时间片范围 [%d, %d] 无效", req.StartSlot, req.EndSlot)
	}
	day := domain.DateOf(req.Day)

	// 2. 检查是否在施工队的班次内
	if err := s.checkShift(ctx, req.ResourceID, day, req.StartSlot, req.EndSlot); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// 3. 检查该服务单的预占数量，这一步在占位图之前，并发时只能尽力而为
	if s.opts.MaxActiveHolds > 0 {
		count, err := s.store.CountActiveHolds(ctx, req.ServiceOrderID, now)
		if err != nil {
			return nil, fmt.Errorf("count active holds of %s: %w", req.ServiceOrderID, err)
		}
		if count >= s.opts.MaxActiveHolds {
			return nil, domain.NewError(domain.CodeHoldLimitExceeded, "服务单 %s 已有 %d 个未过期的预占", req.ServiceOrderID, count)
		}
	}

	// 4. 相同的 holdReference 直接返回已有的预约
	if req.HoldReference != "" {
		existing, err := s.store.GetBookingByHoldReference(ctx, req.HoldReference)
		switch {
		case err == nil:
			return existing, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("get booking by hold reference %s: %w", req.HoldReference, err)
		}
	}

	// 5. 占用位图
	ok, err := s.bitmaps.Reserve(ctx, req.ResourceID, day, req.StartSlot, req.EndSlot)
	if err != nil {
		s.metrics.Reservation("error")
		return nil, fmt.Errorf("reserve slots: %w", err)
	}
	if !ok {
		s.metrics.Reservation("conflict")
		return nil, domain.NewError(domain.CodeSlotsUnavailable, "资源 %s 在 %s 的时间片 [%d, %d] 已被占用",
			req.ResourceID, day.Format(domain.DateFormat), req.StartSlot, req.EndSlot)
	}
	s.metrics.Reservation("reserved")

	// 6. 写入预约记录
	expiresAt := now.Add(s.opts.HoldTTL)
	b = &domain.Booking{
		ServiceOrderID:  req.ServiceOrderID,
		ProviderID:      req.ProviderID,
		ResourceID:      req.ResourceID,
		Day:             day,
		StartSlot:       req.StartSlot,
		EndSlot:         req.EndSlot,
		DurationMinutes: req.DurationMinutes,
		Status:          domain.BookingStatusPreBooked,
		ExpiresAt:       &expiresAt,
	}
	if b.DurationMinutes <= 0 {
		b.DurationMinutes = (req.EndSlot - req.StartSlot + 1) * slot.Minutes
	}
	if req.HoldReference != "" {
		ref := req.HoldReference
		b.HoldReference = &ref
	}

	if err := s.store.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, domain.ErrDuplicateHoldReference) {
			// 另一个携带相同 holdReference 的请求先写入了记录，本次的记录确定没有落库，可以安全地释放刚占用的时间片
			return s.resolveDuplicateHold(ctx, req, day)
		}
		// 写入结果未知，不能释放时间片。没有记录的占用不会被过期清理发现，会一直保留到当天结束，需要人工释放
		slog.Error("预约记录写入失败，已占用的时间片需要人工释放",
			"resource_id", req.ResourceID, "day", day.Format(domain.DateFormat),
			"start_slot", req.StartSlot, "end_slot", req.EndSlot, "error", err)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	slog.Info("已预占时间片", "booking_id", b.ID, "resource_id", b.ResourceID,
		"day", day.Format(domain.DateFormat), "start_slot", b.StartSlot, "end_slot", b.EndSlot)
	s.publish(ctx, domain.BookingEventPreBooked, b)

	return b, nil
}

func (s *Service) resolveDuplicateHold(ctx context.Context, req PreBookRequest, day time.Time) (*domain.Booking, error) {
	if err := s.bitmaps.Release(ctx, req.ResourceID, day, req.StartSlot, req.EndSlot); err != nil {
		return nil, fmt.Errorf("release slots after duplicate hold reference: %w", err)
	}

	existing, err := s.store.GetBookingByHoldReference(ctx, req.HoldReference)
	if err != nil {
		return nil, fmt.Errorf("get booking by hold reference %s: %w", req.HoldReference, err)
	}

	return existing, nil
}

// checkShift 在资源存在班次数据时检查工作日和班次窗口，没有数据时直接放行
func (s *Service) checkShift(ctx context.Context, resourceID string, day time.Time, start, end int) error {
	if s.shifts == nil {
		return nil
	}

	shift, err := s.shifts.GetWorkTeamShift(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("get work team shift of %s: %w", resourceID, err)
	}

	if len(shift.WorkingDays) > 0 && !slices.Contains(shift.WorkingDays, domain.WeekdayCode(day)) {
		return domain.NewError(domain.CodeOutsideShift, "资源 %s 在 %s 不上班", resourceID, day.Format(domain.DateFormat))
	}

	if len(shift.Shifts) == 0 {
		return nil
	}

	for _, window := range shift.Shifts {
		shiftStart, shiftEnd, err := slot.ShiftBounds(window.StartTime, window.EndTime)
		if err != nil {
			slog.Warn("忽略格式错误的班次窗口", "resource_id", resourceID, "error", err)
			continue
		}
		if slot.HasStartInShift(start, shiftStart, shiftEnd) && end < shiftEnd {
			return nil
		}
	}

	return domain.NewError(domain.CodeOutsideShift, "时间片 [%d, %d] 不在资源 %s 的任何班次内", start, end, resourceID)
}

func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (b *domain.Booking, err error) {
	defer s.observe("confirm", time.Now(), &err)

	switch {
	case req.BookingID != 0 && req.HoldReference != "":
		return nil, domain.NewError(domain.CodeInvalidRequest, "bookingID 与 holdReference 只能提供一个")
	case req.BookingID != 0:
		b, err = s.getBooking(ctx, req.BookingID)
	case req.HoldReference != "":
		b, err = s.store.GetBookingByHoldReference(ctx, req.HoldReference)
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.NewError(domain.CodeNotFound, "holdReference 为 %s 的预约不存在", req.HoldReference)
		} else if err != nil {
			err = fmt.Errorf("get booking by hold reference %s: %w", req.HoldReference, err)
		}
	default:
		return nil, domain.NewError(domain.CodeInvalidRequest, "必须提供 bookingID 或 holdReference")
	}
	if err != nil {
		return nil, err
	}

	switch b.Status {
	case domain.BookingStatusConfirmed:
		return b, nil
	case domain.BookingStatusCancelled, domain.BookingStatusExpired:
		return nil, domain.NewError(domain.CodeNotActive, "预约 %d 的状态为 %s", b.ID, b.Status)
	}

	now := s.clock.Now()
	b.Status = domain.BookingStatusConfirmed
	b.ConfirmedAt = &now
	b.ExpiresAt = nil

	if err := s.store.UpdateBookingStatus(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking %d: %w", b.ID, err)
	}

	slog.Info("已确认预约", "booking_id", b.ID)
	s.publish(ctx, domain.BookingEventConfirmed, b)

	return b, nil
}

// Cancel 释放预约占用的时间片并将其标记为已取消。
// 对已取消的预约重复调用直接返回原记录，不会再次释放时间片，避免误释放之后被其他预约占用的时间片。
func (s *Service) Cancel(ctx context.Context, id int64, reason *string) (b *domain.Booking, err error) {
	defer s.observe("cancel", time.Now(), &err)

	b, err = s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	switch b.Status {
	case domain.BookingStatusCancelled:
		return b, nil
	case domain.BookingStatusExpired:
		return nil, domain.NewError(domain.CodeNotActive, "预约 %d 已过期", b.ID)
	}

	if err := s.bitmaps.Release(ctx, b.ResourceID, b.Day, b.StartSlot, b.EndSlot); err != nil {
		return nil, fmt.Errorf("release slots of booking %d: %w", b.ID, err)
	}

	now := s.clock.Now()
	for attempt := 1; ; attempt++ {
		b.Status = domain.BookingStatusCancelled
		b.CancelledAt = &now
		b.CancellationReason = reason
		b.ExpiresAt = nil

		err := s.store.UpdateBookingStatus(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, sql.ErrNoRows) || attempt == maxStatusUpdateAttempts {
			s.restoreSlots(ctx, b.ID)
			return nil, fmt.Errorf("update booking %d: %w", b.ID, err)
		}

		// 读取之后记录被并发修改（例如被确认），时间片已经释放，按最新的记录重新取消
		current, err := s.getBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		switch current.Status {
		case domain.BookingStatusCancelled:
			return current, nil
		case domain.BookingStatusExpired:
			return nil, domain.NewError(domain.CodeNotActive, "预约 %d 已过期", b.ID)
		}
		b = current
	}

	slog.Info("已取消预约", "booking_id", b.ID)
	s.publish(ctx, domain.BookingEventCancelled, b)

	return b, nil
}

// Expire 释放一个预占并将其标记为已过期，由外部的定时清理调用。只有预占状态的预约可以过期。
func (s *Service) Expire(ctx context.Context, id int64) (b *domain.Booking, err error) {
	defer s.observe("expire", time.Now(), &err)

	b, err = s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	switch b.Status {
	case domain.BookingStatusExpired:
		return b, nil
	case domain.BookingStatusConfirmed, domain.BookingStatusCancelled:
		return nil, domain.NewError(domain.CodeNotActive, "预约 %d 的状态为 %s，不能过期", b.ID, b.Status)
	}

	if err := s.bitmaps.Release(ctx, b.ResourceID, b.Day, b.StartSlot, b.EndSlot); err != nil {
		return nil, fmt.Errorf("release slots of booking %d: %w", b.ID, err)
	}

	now := s.clock.Now()
	b.Status = domain.BookingStatusExpired
	b.ExpiresAt = &now

	if err := s.store.UpdateBookingStatus(ctx, b); err != nil {
		// 过期期间被确认的预约必须重新占回时间片，否则会出现没有占用的已确认预约
		current := s.restoreSlots(ctx, b.ID)
		if errors.Is(err, sql.ErrNoRows) && current != nil {
			if current.Status == domain.BookingStatusExpired {
				return current, nil
			}
			return nil, domain.NewError(domain.CodeNotActive, "预约 %d 在过期期间被修改为 %s", b.ID, current.Status)
		}
		return nil, fmt.Errorf("update booking %d: %w", b.ID, err)
	}

	slog.Info("预占已过期", "booking_id", b.ID)
	s.publish(ctx, domain.BookingEventExpired, b)

	return b, nil
}

// ExpireDue 让所有已经超过 expiresAt 的预占过期，单个预约失败不会中断整批处理
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	due, err := s.store.ListExpiredHolds(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}

	expired := 0
	var errs []error
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Expire(ctx, b.ID); err != nil {
			// 清理期间被确认或取消的预约不算失败
			if errors.Is(err, domain.ErrNotActive) {
				continue
			}
			errs = append(errs, fmt.Errorf("expire booking %d: %w", b.ID, err))
			continue
		}
		expired++
	}
	s.metrics.ExpiredHolds(expired)

	return expired, errors.Join(errs...)
}

// GetAvailability 返回某资源某天 96 个时间片的空闲情况，以及能容纳 durationMinutes 的所有起始时间片
func (s *Service) GetAvailability(ctx context.Context, resourceID string, day time.Time, durationMinutes int) (*Availability, error) {
	day = domain.DateOf(day)

	bm, err := s.bitmaps.Read(ctx, resourceID, day)
	if err != nil {
		return nil, fmt.Errorf("read slots: %w", err)
	}

	n := slot.Count(durationMinutes)
	if n == 0 {
		n = 1
	}

	return &Availability{
		ResourceID: resourceID,
		Day:        day,
		SlotCount:  n,
		Free:       bm.Free(),
		StartSlots: bm.FreeStarts(n),
	}, nil
}

func (s *Service) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.getBooking(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error) {
	bookings, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// restoreSlots 在时间片已经释放但状态没有写入时调用：如果记录的最新状态仍然占用时间片，就把时间片重新占上
func (s *Service) restoreSlots(ctx context.Context, id int64) *domain.Booking {
	current, err := s.getBooking(ctx, id)
	if err != nil {
		slog.Error("无法读取预约，时间片可能与记录不一致", "booking_id", id, "error", err)
		return nil
	}
	if !current.Status.HoldsSlots() {
		return current
	}

	ok, err := s.bitmaps.Reserve(ctx, current.ResourceID, current.Day, current.StartSlot, current.EndSlot)
	switch {
	case err != nil:
		slog.Error("无法恢复时间片", "booking_id", id, "error", err)
	case !ok:
		s.metrics.Reservation("restore_conflict")
		slog.Error("无法恢复时间片，已被其他预约占用", "booking_id", id, "resource_id", current.ResourceID,
			"day", current.Day.Format(domain.DateFormat), "start_slot", current.StartSlot, "end_slot", current.EndSlot)
	default:
		slog.Warn("状态写入冲突，已恢复时间片", "booking_id", id, "status", current.Status)
	}

	return current
}

func (s *Service) getBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeNotFound, "预约 %d 不存在", id)
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// publish 在状态已经落库之后发送事件，发送失败只记录日志
func (s *Service) publish(ctx context.Context, typ domain.BookingEventType, b *domain.Booking) {
	event := domain.BookingEvent{
		Type:       typ,
		OccurredAt: s.clock.Now(),
		StartsAt:   slot.StartTime(b.Day, b.StartSlot, s.loc),
		EndsAt:     slot.StartTime(b.Day, b.EndSlot+1, s.loc),
		Booking:    b,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		slog.Error("无法发送预约事件", "type", typ, "booking_id", b.ID, "error", err)
	}
}

func (s *Service) observe(operation string, started time.Time, err *error) {
	code := ""
	if *err != nil {
		code = string(domain.CodeOf(*err))
		if code == "" {
			code = "INTERNAL"
		}
	}
	s.metrics.Operation(operation, code, started)
}
