package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/bitmap"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/booking"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"
)

const testSecret = "test-secret"

// fakeReference 同时充当班次来源和日历数据来源
type fakeReference struct {
	mu       sync.Mutex
	shifts   map[string]*domain.WorkTeamShift
	configs  map[string]*domain.CalendarConfig
	holidays []*domain.Holiday
}

func newFakeReference() *fakeReference {
	return &fakeReference{
		shifts:  map[string]*domain.WorkTeamShift{},
		configs: map[string]*domain.CalendarConfig{},
	}
}

func (f *fakeReference) GetWorkTeamShift(_ context.Context, resourceID string) (*domain.WorkTeamShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shift, ok := f.shifts[resourceID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func (f *fakeReference) UpsertWorkTeamShift(_ context.Context, shift *domain.WorkTeamShift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shifts[shift.ResourceID] = shift
	return nil
}

func (f *fakeReference) DeleteWorkTeamShift(_ context.Context, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shifts[resourceID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.shifts, resourceID)
	return nil
}

func (f *fakeReference) GetCalendarConfig(_ context.Context, countryCode, businessUnit string) (*domain.CalendarConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[countryCode+"/"+businessUnit]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cfg, nil
}

func (f *fakeReference) UpsertCalendarConfig(_ context.Context, cfg *domain.CalendarConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[cfg.CountryCode+"/"+cfg.BusinessUnit] = cfg
	return nil
}

func (f *fakeReference) UpsertHoliday(_ context.Context, holiday *domain.Holiday) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holidays = append(f.holidays, holiday)
	return nil
}

func (f *fakeReference) GetHolidays(_ context.Context, countryCode string, year int) ([]*domain.Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Holiday{}
	for _, h := range f.holidays {
		if h.CountryCode == countryCode && h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeReference) GetHolidayDates(ctx context.Context, countryCode string, year int) ([]time.Time, error) {
	holidays, _ := f.GetHolidays(ctx, countryCode, year)
	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Date)
	}
	return dates, nil
}

type testServer struct {
	handler   *Handler
	reference *fakeReference
	validator *calendar.Validator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Booking.Timezone = "UTC"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	ref := newFakeReference()
	ref.shifts["W1"] = &domain.WorkTeamShift{
		ResourceID:  "W1",
		WorkingDays: []int32{1, 2, 3, 4, 5},
		Shifts:      []domain.ShiftWindow{{StartTime: "08:00:00", EndTime: "16:00:00"}},
	}
	ref.configs["CN/default"] = &domain.CalendarConfig{
		CountryCode:                "CN",
		BusinessUnit:               "default",
		GlobalBufferNonWorkingDays: 2,
		TravelBufferMinutes:        30,
		WorkingDays:                []int32{1, 2, 3, 4, 5},
	}
	ref.holidays = append(ref.holidays, &domain.Holiday{
		CountryCode: "CN",
		Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Name:        "元旦",
	})

	// 2025-01-03 是周五
	clock := utils.NewManualClock(time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC))
	m := metrics.New("crew_booking")
	svc := booking.NewService(booking.NewMemoryStore(), bitmap.NewMemoryStore(), booking.Options{HoldTTL: time.Hour},
		booking.WithShiftSource(ref),
		booking.WithClock(clock),
		booking.WithMetrics(m),
	)
	validator := calendar.NewValidator(ref, clock, time.UTC)

	h, err := NewHandler(cfg, svc, validator, ref, m)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testServer{handler: h, reference: ref, validator: validator}
}

func signToken(t *testing.T, role domain.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "tester",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type testResponse struct {
	Status  int
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, role domain.Role, method, path string, body any) testResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = strings.NewReader(v)
		default:
			b, err := json.Marshal(v)
			require.NoError(t, err)
			reader = bytes.NewReader(b)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, role))
	}
	rec := httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	resp.Status = rec.Code
	return resp
}

func decodeBooking(t *testing.T, resp testResponse) domain.Booking {
	t.Helper()
	var b domain.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	return b
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, "", http.MethodGet, "/bookings/1", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	req := httptest.NewRequest(http.MethodGet, "/bookings/1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 其他密钥签发的令牌
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{Role: string(domain.RoleAdmin)})
	forged, err := token.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/bookings/1", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: forged})
	rec = httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// cookie 中的有效令牌
	req = httptest.NewRequest(http.MethodGet, "/bookings/1", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: signToken(t, domain.RoleProvider)})
	rec = httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID": "SO-1",
		"providerID":     "P-1",
		"resourceID":     "W1",
		"date":           "2025-01-06",
		"startSlot":      32,
		"endSlot":        35,
		"holdReference":  "hold-1",
	})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	held := decodeBooking(t, resp)
	assert.Equal(t, domain.BookingStatusPreBooked, held.Status)
	assert.Equal(t, 60, held.DurationMinutes)

	// 重叠的时间片
	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID": "SO-2",
		"providerID":     "P-2",
		"resourceID":     "W1",
		"date":           "2025-01-06",
		"startSlot":      35,
		"endSlot":        36,
	})
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, string(domain.CodeSlotsUnavailable), resp.Code)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/confirm", map[string]any{"holdReference": "hold-1"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	assert.Equal(t, domain.BookingStatusConfirmed, decodeBooking(t, resp).Status)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/resources/W1/availability?date=2025-01-06&durationMinutes=60", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var availability booking.Availability
	require.NoError(t, json.Unmarshal(resp.Data, &availability))
	assert.False(t, availability.Free[33])
	assert.True(t, availability.Free[36])

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/bookings?serviceOrderID=SO-1&status=CONFIRMED", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var list []domain.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, held.ID, list[0].ID)

	// 空请求体也可以取消
	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	assert.Equal(t, domain.BookingStatusCancelled, decodeBooking(t, resp).Status)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/confirm", map[string]any{"bookingID": held.ID})
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, string(domain.CodeNotActive), resp.Code)
}

func TestPreBookByStartTime(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID":  "SO-1",
		"providerID":      "P-1",
		"resourceID":      "W1",
		"startTime":       "2025-01-06T09:00:00Z",
		"durationMinutes": 90,
	})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	b := decodeBooking(t, resp)
	assert.Equal(t, 36, b.StartSlot)
	assert.Equal(t, 41, b.EndSlot)
	assert.Equal(t, 90, b.DurationMinutes)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID": "SO-1",
		"providerID":     "P-1",
		"resourceID":     "W1",
		"startTime":      "2025-01-06T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, string(domain.CodeInvalidRequest), resp.Code)
}

func TestPreBookErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   domain.ErrorCode
	}{
		{
			name:   "invalid range",
			body:   map[string]any{"serviceOrderID": "SO", "providerID": "P", "resourceID": "W1", "date": "2025-01-06", "startSlot": 40, "endSlot": 39},
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidRange,
		},
		{
			name:   "outside shift",
			body:   map[string]any{"serviceOrderID": "SO", "providerID": "P", "resourceID": "W1", "date": "2025-01-06", "startSlot": 60, "endSlot": 70},
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeOutsideShift,
		},
		{
			name:   "not a working day of the crew",
			body:   map[string]any{"serviceOrderID": "SO", "providerID": "P", "resourceID": "W1", "date": "2025-01-04", "startSlot": 32, "endSlot": 33},
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeOutsideShift,
		},
		{
			name:   "missing fields",
			body:   map[string]any{"serviceOrderID": "SO", "resourceID": "W1"},
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidRequest,
		},
		{
			name:   "unknown field",
			body:   `{"serviceOrderID":"SO","providerID":"P","resourceID":"W1","date":"2025-01-06","startSlot":1,"endSlot":2,"foo":1}`,
			status: http.StatusBadRequest,
			code:   domain.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", tt.body)
			assert.Equal(t, tt.status, resp.Status, resp.Message)
			assert.Equal(t, string(tt.code), resp.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestConfirmRequiresExactlyOneIdentifier(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/confirm", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, string(domain.CodeInvalidRequest), resp.Code)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/confirm", map[string]any{"bookingID": 1, "holdReference": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/confirm", map[string]any{"bookingID": 42})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, string(domain.CodeNotFound), resp.Code)
}

func TestExpireRequiresDispatcher(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID": "SO-1",
		"providerID":     "P-1",
		"resourceID":     "W1",
		"date":           "2025-01-06",
		"startSlot":      32,
		"endSlot":        33,
	})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/1/expire", nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = s.do(t, domain.RoleDispatcher, http.MethodPost, "/bookings/1/expire", nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	assert.Equal(t, domain.BookingStatusExpired, decodeBooking(t, resp).Status)

	resp = s.do(t, domain.RoleDispatcher, http.MethodPost, "/bookings/abc/expire", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestWorkTeamShiftEndpoints(t *testing.T) {
	s := newTestServer(t)

	shift := map[string]any{
		"name":        "李明施工队",
		"workingDays": []int{1, 2, 3},
		"shifts": []map[string]string{
			{"startTime": "09:00:00", "endTime": "12:00:00"},
			{"startTime": "13:30:00", "endTime": "18:00:00"},
		},
	}

	resp := s.do(t, domain.RoleProvider, http.MethodPut, "/resources/W2/shift", shift)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = s.do(t, domain.RoleAdmin, http.MethodPut, "/resources/W2/shift", shift)
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/resources/W2/shift", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var got domain.WorkTeamShift
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "W2", got.ResourceID)
	assert.Len(t, got.Shifts, 2)

	// 重叠的班次窗口
	resp = s.do(t, domain.RoleAdmin, http.MethodPut, "/resources/W2/shift", map[string]any{
		"shifts": []map[string]string{
			{"startTime": "09:00:00", "endTime": "12:00:00"},
			{"startTime": "11:00:00", "endTime": "13:00:00"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, string(domain.CodeInvalidRequest), resp.Code)

	resp = s.do(t, domain.RoleAdmin, http.MethodDelete, "/resources/W2/shift", nil)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/resources/W2/shift", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = s.do(t, domain.RoleAdmin, http.MethodDelete, "/resources/W2/shift", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestCalendarEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	earliest, err := s.validator.EarliestBookableDate(ctx, "CN", "default")
	require.NoError(t, err)

	resp := s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/default/earliest-bookable-date", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var date bookableDate
	require.NoError(t, json.Unmarshal(resp.Data, &date))
	assert.Equal(t, earliest.Format(domain.DateFormat), date.Date)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/unknown/earliest-bookable-date", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, string(domain.CodeConfigNotFound), resp.Code)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/default/config", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/unknown/config", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, string(domain.CodeConfigNotFound), resp.Code)

	// 周六
	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/calendar/validate-window", map[string]any{
		"date": "2025-01-04", "countryCode": "CN", "businessUnit": "default",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, string(domain.CodeBankHoliday), resp.Code)

	// 今天是工作日但不满足全局缓冲期
	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/calendar/validate-window", map[string]any{
		"date": "2025-01-03", "countryCode": "CN", "businessUnit": "default",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, string(domain.CodeBufferWindowViolation), resp.Code)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, "/calendar/validate-window", map[string]any{
		"date": earliest.Format(domain.DateFormat), "countryCode": "CN", "businessUnit": "default",
	})
	assert.Equal(t, http.StatusOK, resp.Status, resp.Message)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/default/working-day?date=2025-01-01", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"date":"2025-01-01","workingDay":false}`, string(resp.Data))

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/default/travel-buffer", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"travelBufferMinutes":30}`, string(resp.Data))

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/default/latest-bookable-date?deliveryDate=bad", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestCalendarAdminEndpoints(t *testing.T) {
	s := newTestServer(t)

	cfg := map[string]any{
		"globalBufferNonWorkingDays": 1,
		"staticBufferNonWorkingDays": 1,
		"travelBufferMinutes":        45,
		"workingDays":                []int{1, 2, 3, 4, 5, 6},
	}
	resp := s.do(t, domain.RoleDispatcher, http.MethodPut, "/calendar/CN/express/config", cfg)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = s.do(t, domain.RoleAdmin, http.MethodPut, "/calendar/CN/express/config", cfg)
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/express/travel-buffer", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"travelBufferMinutes":45}`, string(resp.Data))

	resp = s.do(t, domain.RoleAdmin, http.MethodPut, "/calendar/CN/express/config", map[string]any{"workingDays": []int{0, 8}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = s.do(t, domain.RoleAdmin, http.MethodPost, "/calendar/CN/holidays", map[string]any{"date": "2025-10-01", "name": "国庆节"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/holidays?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var holidays []domain.Holiday
	require.NoError(t, json.Unmarshal(resp.Data, &holidays))
	assert.Len(t, holidays, 2)

	resp = s.do(t, domain.RoleProvider, http.MethodGet, "/calendar/CN/holidays?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, domain.RoleProvider, http.MethodGet, "/bookings/1", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "crew_booking_http_requests_total")
	assert.Contains(t, body, `route="/bookings/{id}`)
}

func TestLifecycleLogsActor(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	s := newTestServer(t)

	resp := s.do(t, domain.RoleProvider, http.MethodPost, "/bookings/pre-book", map[string]any{
		"serviceOrderID": "SO-1",
		"providerID":     "P-1",
		"resourceID":     "W1",
		"date":           "2025-01-06",
		"startSlot":      32,
		"endSlot":        35,
	})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	held := decodeBooking(t, resp)

	resp = s.do(t, domain.RoleProvider, http.MethodPost, fmt.Sprintf("/bookings/%d/cancel", held.ID), nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)

	logs := buf.String()
	assert.Contains(t, logs, "msg=预占请求完成 actor=tester")
	assert.Contains(t, logs, "msg=取消请求完成 actor=tester")
}
