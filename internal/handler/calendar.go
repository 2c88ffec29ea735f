package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"
)

type bookableDate struct {
	Date string `json:"date"`
}

func (h *Handler) ValidateBookingWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date         string `json:"date" validate:"required,datetime=2006-01-02"`
		CountryCode  string `json:"countryCode" validate:"required,max=8"`
		BusinessUnit string `json:"businessUnit" validate:"required,max=64"`
		DeliveryDate string `json:"deliveryDate" validate:"omitempty,datetime=2006-01-02"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 格式已经由 validator 检查过
	candidate, _ := domain.ParseDate(req.Date)
	var deliveryDate *time.Time
	if req.DeliveryDate != "" {
		d, _ := domain.ParseDate(req.DeliveryDate)
		deliveryDate = &d
	}

	if err := h.calendar.ValidateBookingWindow(r.Context(), candidate, req.CountryCode, req.BusinessUnit, deliveryDate); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "该日期可以预约", bookableDate{Date: req.Date})
}

func (h *Handler) GetEarliestBookableDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.calendar.EarliestBookableDate(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "businessUnit"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取最早可预约日期成功", bookableDate{Date: date.Format(domain.DateFormat)})
}

func (h *Handler) GetLatestBookableDate(w http.ResponseWriter, r *http.Request) {
	deliveryDate, err := domain.ParseDate(r.URL.Query().Get("deliveryDate"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "交付日期格式错误，应为 YYYY-MM-DD")
		return
	}

	date, err := h.calendar.LatestBookableDate(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "businessUnit"), deliveryDate)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取最晚可预约日期成功", bookableDate{Date: date.Format(domain.DateFormat)})
}

func (h *Handler) GetWorkingDay(w http.ResponseWriter, r *http.Request) {
	day, err := domain.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	working, err := h.calendar.IsWorkingDay(r.Context(), day, chi.URLParam(r, "country"), chi.URLParam(r, "businessUnit"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "查询工作日成功", map[string]any{
		"date":       day.Format(domain.DateFormat),
		"workingDay": working,
	})
}

func (h *Handler) GetTravelBuffer(w http.ResponseWriter, r *http.Request) {
	minutes, err := h.calendar.TravelBuffer(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "businessUnit"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取路途缓冲时间成功", map[string]int{"travelBufferMinutes": minutes})
}

func (h *Handler) GetCalendarConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.reference.GetCalendarConfig(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "businessUnit"))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusNotFound, domain.CodeConfigNotFound, domain.ErrConfigNotFound.Message)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取日历配置成功", cfg)
}

func (h *Handler) PutCalendarConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GlobalBufferNonWorkingDays int     `json:"globalBufferNonWorkingDays" validate:"gte=0,lte=365"`
		StaticBufferNonWorkingDays int     `json:"staticBufferNonWorkingDays" validate:"gte=0,lte=365"`
		TravelBufferMinutes        int     `json:"travelBufferMinutes" validate:"gte=0,lte=1440"`
		WorkingDays                []int32 `json:"workingDays" validate:"max=7"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	cfg := &domain.CalendarConfig{
		CountryCode:                chi.URLParam(r, "country"),
		BusinessUnit:               chi.URLParam(r, "businessUnit"),
		GlobalBufferNonWorkingDays: req.GlobalBufferNonWorkingDays,
		StaticBufferNonWorkingDays: req.StaticBufferNonWorkingDays,
		TravelBufferMinutes:        req.TravelBufferMinutes,
		WorkingDays:                req.WorkingDays,
	}
	if cfg.WorkingDays == nil {
		cfg.WorkingDays = []int32{}
	}

	if err := utils.ValidateCalendarConfig(cfg); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.reference.UpsertCalendarConfig(r.Context(), cfg); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存日历配置成功", cfg)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
		Name string `json:"name" validate:"max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, _ := domain.ParseDate(req.Date)
	holiday := &domain.Holiday{
		CountryCode: chi.URLParam(r, "country"),
		Date:        date,
		Name:        req.Name,
	}

	if err := h.reference.UpsertHoliday(r.Context(), holiday); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "添加节假日成功", holiday)
}

func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1970 || year > 9999 {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, "年份无效")
		return
	}

	holidays, err := h.reference.GetHolidays(r.Context(), chi.URLParam(r, "country"), year)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取节假日成功", holidays)
}
