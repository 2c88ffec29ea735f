package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/booking"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/metrics"
)

type BookingService interface {
	PreBook(ctx context.Context, req booking.PreBookRequest) (*domain.Booking, error)
	Confirm(ctx context.Context, req booking.ConfirmRequest) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64, reason *string) (*domain.Booking, error)
	Expire(ctx context.Context, id int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error)
	GetAvailability(ctx context.Context, resourceID string, day time.Time, durationMinutes int) (*booking.Availability, error)
}

type CalendarValidator interface {
	ValidateBookingWindow(ctx context.Context, candidate time.Time, countryCode, businessUnit string, deliveryDate *time.Time) error
	EarliestBookableDate(ctx context.Context, countryCode, businessUnit string) (time.Time, error)
	LatestBookableDate(ctx context.Context, countryCode, businessUnit string, deliveryDate time.Time) (time.Time, error)
	TravelBuffer(ctx context.Context, countryCode, businessUnit string) (int, error)
	IsWorkingDay(ctx context.Context, day time.Time, countryCode, businessUnit string) (bool, error)
}

// ReferenceStore 维护班次、日历配置和节假日，找不到记录时返回 sql.ErrNoRows
type ReferenceStore interface {
	GetWorkTeamShift(ctx context.Context, resourceID string) (*domain.WorkTeamShift, error)
	UpsertWorkTeamShift(ctx context.Context, shift *domain.WorkTeamShift) error
	DeleteWorkTeamShift(ctx context.Context, resourceID string) error
	GetCalendarConfig(ctx context.Context, countryCode, businessUnit string) (*domain.CalendarConfig, error)
	UpsertCalendarConfig(ctx context.Context, cfg *domain.CalendarConfig) error
	UpsertHoliday(ctx context.Context, holiday *domain.Holiday) error
	GetHolidays(ctx context.Context, countryCode string, year int) ([]*domain.Holiday, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	translator ut.Translator
	location   *time.Location
	bookings   BookingService
	calendar   CalendarValidator
	reference  ReferenceStore
	metrics    *metrics.Metrics

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, bookings BookingService, calendar CalendarValidator, reference ReferenceStore, m *metrics.Metrics) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		translator: trans,
		location:   loc,
		bookings:   bookings,
		calendar:   calendar,
		reference:  reference,
		metrics:    m,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.instrument)

	if h.config.Metrics.Enabled {
		h.Mux.Handle(h.config.Metrics.Path, h.metrics.Handler())
	}

	// 以下 API 必须要携带有效的令牌才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/pre-book", h.PreBook)
			r.Post("/confirm", h.ConfirmBooking)
			r.Get("/", h.ListBookings)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetBooking)
				r.Post("/cancel", h.CancelBooking)
				r.With(h.RequiredRole([]domain.Role{domain.RoleDispatcher, domain.RoleAdmin})).Post("/expire", h.ExpireBooking)
			})
		})

		r.Route("/resources/{resourceID}", func(r chi.Router) {
			r.Get("/availability", h.GetAvailability)
			r.Route("/shift", func(r chi.Router) {
				r.Get("/", h.GetWorkTeamShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Put("/", h.PutWorkTeamShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteWorkTeamShift)
			})
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/validate-window", h.ValidateBookingWindow)
			r.Route("/{country}", func(r chi.Router) {
				r.Get("/holidays", h.GetHolidays)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/holidays", h.CreateHoliday)
				r.Route("/{businessUnit}", func(r chi.Router) {
					r.Get("/earliest-bookable-date", h.GetEarliestBookableDate)
					r.Get("/latest-bookable-date", h.GetLatestBookableDate)
					r.Get("/working-day", h.GetWorkingDay)
					r.Get("/travel-buffer", h.GetTravelBuffer)
					r.Get("/config", h.GetCalendarConfig)
					r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Put("/config", h.PutCalendarConfig)
				})
			})
		})
	})
}
