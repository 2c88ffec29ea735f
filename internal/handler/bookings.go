package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/booking"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/slot"
)

// PreBook 接受两种写法：直接给出 startSlot/endSlot，或者给出 startTime 与 durationMinutes 由服务端换算时间片
func (h *Handler) PreBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceOrderID  string     `json:"serviceOrderID" validate:"required,max=64"`
		ProviderID      string     `json:"providerID" validate:"required,max=64"`
		ResourceID      string     `json:"resourceID" validate:"required,max=64"`
		Date            string     `json:"date" validate:"required_without=StartTime,omitempty,datetime=2006-01-02"`
		StartSlot       *int       `json:"startSlot" validate:"required_without=StartTime"`
		EndSlot         *int       `json:"endSlot" validate:"required_without=StartTime"`
		StartTime       *time.Time `json:"startTime"`
		DurationMinutes int        `json:"durationMinutes" validate:"gte=0"`
		HoldReference   string     `json:"holdReference" validate:"max=128"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	preBook := booking.PreBookRequest{
		ServiceOrderID:  req.ServiceOrderID,
		ProviderID:      req.ProviderID,
		ResourceID:      req.ResourceID,
		DurationMinutes: req.DurationMinutes,
		HoldReference:   req.HoldReference,
	}

	switch {
	case req.StartSlot != nil && req.EndSlot != nil:
		day, err := domain.ParseDate(req.Date)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		preBook.Day = day
		preBook.StartSlot = *req.StartSlot
		preBook.EndSlot = *req.EndSlot
	default:
		// 按参考时区把开始时刻换算为当天的时间片
		slots := slot.ForDuration(slot.ToIndex(*req.StartTime, h.location), req.DurationMinutes)
		if len(slots) == 0 {
			h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "使用 startTime 时 durationMinutes 必须大于 0")
			return
		}
		preBook.Day = domain.DateOf(req.StartTime.In(h.location))
		preBook.StartSlot = slots[0]
		preBook.EndSlot = slots[len(slots)-1]
	}

	b, err := h.bookings.PreBook(r.Context(), preBook)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	slog.Info("预占请求完成", "actor", actor(r), "booking_id", b.ID, "service_order_id", b.ServiceOrderID)
	h.successResponse(w, r, "预占成功", b)
}

func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID     int64  `json:"bookingID" validate:"gte=0"`
		HoldReference string `json:"holdReference" validate:"max=128"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	b, err := h.bookings.Confirm(r.Context(), booking.ConfirmRequest{BookingID: req.BookingID, HoldReference: req.HoldReference})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	slog.Info("确认请求完成", "actor", actor(r), "booking_id", b.ID)
	h.successResponse(w, r, "确认成功", b)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.BookingFilter{
		ResourceID:     query.Get("resourceID"),
		ServiceOrderID: query.Get("serviceOrderID"),
		Limit:          100,
	}

	if v := query.Get("date"); v != "" {
		day, err := domain.ParseDate(v)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "日期格式错误")
			return
		}
		filter.Day = &day
	}

	if v := query.Get("status"); v != "" {
		status := domain.BookingStatus(v)
		switch status {
		case domain.BookingStatusPreBooked, domain.BookingStatusConfirmed, domain.BookingStatusCancelled, domain.BookingStatusExpired:
			filter.Status = &status
		default:
			h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "无效的预约状态")
			return
		}
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 64)
		if err != nil || limit == 0 || limit > 1000 {
			h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "limit 必须在 1 到 1000 之间")
			return
		}
		filter.Limit = limit
	}

	bookings, err := h.bookings.ListBookings(r.Context(), filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取预约列表成功", bookings)
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "预约ID无效")
		return 0, false
	}
	return id, true
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	b, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取预约成功", b)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason *string `json:"reason" validate:"omitempty,max=500"`
	}
	// 请求体可以为空
	if r.ContentLength != 0 {
		if err := h.readJSON(r, &req); err != nil {
			h.badRequest(w, r, err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}

	b, err := h.bookings.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	slog.Info("取消请求完成", "actor", actor(r), "booking_id", b.ID)
	h.successResponse(w, r, "取消成功", b)
}

func (h *Handler) ExpireBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	b, err := h.bookings.Expire(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	slog.Info("过期请求完成", "actor", actor(r), "booking_id", b.ID)
	h.successResponse(w, r, "已过期", b)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")

	day, err := domain.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	durationMinutes := 0
	if v := r.URL.Query().Get("durationMinutes"); v != "" {
		durationMinutes, err = strconv.Atoi(v)
		if err != nil || durationMinutes < 0 {
			h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "durationMinutes 必须是非负整数")
			return
		}
	}

	availability, err := h.bookings.GetAvailability(r.Context(), resourceID, day, durationMinutes)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取空闲时间片成功", availability)
}
