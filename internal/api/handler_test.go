package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/auth"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

// MockReservationService はテスト用のモックです
type MockReservationService struct {
	createErr   error
	cancelErr   error
	getErr      error
	listErr     error
	userID      string
	filter      model.ReservationFilter
	created     *model.Reservation
	cancelledID string
}

func (m *MockReservationService) user(ctx context.Context) (string, bool) {
	return auth.ContextProvider{}.CurrentUserID(ctx)
}

func (m *MockReservationService) CreateForCurrentUser(ctx context.Context, courtID string, date model.Date, start model.TimeOfDay) (*model.Reservation, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	userID, _ := m.user(ctx)
	m.created = &model.Reservation{
		ID:              "res-1",
		UserID:          userID,
		CourtID:         courtID,
		Date:            date,
		StartTime:       start,
		DurationMinutes: model.SlotDurationMinutes,
		Status:          model.StatusActive,
	}
	return m.created, nil
}

func (m *MockReservationService) CancelForCurrentUser(ctx context.Context, reservationID string) error {
	m.cancelledID = reservationID
	return m.cancelErr
}

func (m *MockReservationService) GetReservationForCurrentUser(ctx context.Context, id string) (*model.Reservation, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	userID, _ := m.user(ctx)
	return &model.Reservation{ID: id, UserID: userID, Status: model.StatusActive}, nil
}

func (m *MockReservationService) ListUserReservations(ctx context.Context, userID string, filter model.ReservationFilter) ([]model.Reservation, error) {
	m.userID = userID
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return []model.Reservation{{ID: "res-1", UserID: userID, Status: model.StatusCompleted}}, nil
}

func (m *MockReservationService) RefreshUserReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	m.userID = userID
	return []model.Reservation{}, m.listErr
}

// MockAvailabilityService はテスト用のモックです
type MockAvailabilityService struct {
	display bool
	err     error
}

func (m *MockAvailabilityService) GetAvailableSlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error) {
	return m.slots(courtID)
}

func (m *MockAvailabilityService) GetDisplaySlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error) {
	m.display = true
	return m.slots(courtID)
}

func (m *MockAvailabilityService) slots(courtID string) ([]model.TimeSlot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if strings.TrimSpace(courtID) == "" {
		return nil, apperror.Validation(apperror.RuleInvalidCourt)
	}
	start := model.NewTimeOfDay(10, 0)
	return []model.TimeSlot{{StartTime: start, EndTime: start.AddMinutes(model.SlotDurationMinutes), IsAvailable: true}}, nil
}

func (m *MockAvailabilityService) BookableDates() []model.Date {
	return []model.Date{model.NewDate(2026, time.October, 19), model.NewDate(2026, time.October, 20)}
}

// MockCourtCatalog はテスト用のモックです
type MockCourtCatalog struct {
	err error
}

func (m *MockCourtCatalog) GetCourtByID(ctx context.Context, id string) (*model.Court, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id != "padel-cristal" {
		return nil, nil
	}
	return &model.Court{ID: id, SportType: model.SportPadel, SpecificOption: "cristal", IsAvailable: true}, nil
}

func (m *MockCourtCatalog) ListCourts(ctx context.Context) ([]model.Court, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, _ := m.GetCourtByID(ctx, "padel-cristal")
	return []model.Court{*c}, nil
}

// MockNotificationRepository はテスト用のモックです
type MockNotificationRepository struct {
	markErr error
	readID  int
}

func (m *MockNotificationRepository) CreateNotifications(ctx context.Context, records []model.NotificationRecord) (int, error) {
	return len(records), nil
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	return []model.NotificationRecord{{ID: 1, UserID: userID, Title: "Reserva confirmada"}}, nil
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, userID string, id int) error {
	m.readID = id
	return m.markErr
}

type testServer struct {
	router        *gin.Engine
	reservations  *MockReservationService
	availability  *MockAvailabilityService
	courts        *MockCourtCatalog
	notifications *MockNotificationRepository
	token         string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := auth.NewJWTVerifier("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := verifier.Issue("user1")
	if err != nil {
		t.Fatal(err)
	}

	s := &testServer{
		reservations:  &MockReservationService{},
		availability:  &MockAvailabilityService{},
		courts:        &MockCourtCatalog{},
		notifications: &MockNotificationRepository{},
		token:         token,
	}
	h := NewHandler(s.reservations, s.availability, s.courts, s.notifications)
	s.router = NewRouter(h, verifier, []string{"http://localhost:3000"})
	return s
}

func (s *testServer) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode error response %q: %v", w.Body.String(), err)
	}
	return res
}

func TestCreateReservation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		auth       bool
		createErr  error
		wantStatus int
		wantRule   apperror.Rule
	}{
		{
			name:       "予約を作成",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`,
			auth:       true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "未認証",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`,
			wantStatus: http.StatusUnauthorized,
			wantRule:   apperror.RuleUnauthenticated,
		},
		{
			name:       "日付の形式が不正",
			body:       `{"court_id":"padel-cristal","date":"20/10/2026","start_time":"10:00"}`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "開始時刻が無い",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20"}`,
			auth:       true,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "週末",
			body:       `{"court_id":"padel-cristal","date":"2026-10-24","start_time":"10:00"}`,
			auth:       true,
			createErr:  apperror.Validation(apperror.RuleWeekendReservation),
			wantStatus: http.StatusUnprocessableEntity,
			wantRule:   apperror.RuleWeekendReservation,
		},
		{
			name:       "枠が埋まっている",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`,
			auth:       true,
			createErr:  apperror.Validation(apperror.RuleSlotNotAvailable),
			wantStatus: http.StatusConflict,
			wantRule:   apperror.RuleSlotNotAvailable,
		},
		{
			name:       "リモートに到達できない",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`,
			auth:       true,
			createErr:  apperror.Network(errors.New("timeout")),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "想定外のエラー",
			body:       `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`,
			auth:       true,
			createErr:  errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.reservations.createErr = tt.createErr

			w := s.do(http.MethodPost, "/reservations", tt.body, tt.auth)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantRule != apperror.RuleNone {
				if res := decodeError(t, w); res.Rule != string(tt.wantRule) {
					t.Errorf("rule = %s, want %s", res.Rule, tt.wantRule)
				}
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var r model.Reservation
			if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
				t.Fatal(err)
			}
			if r.UserID != "user1" || r.StartTime != model.NewTimeOfDay(10, 0) || r.Date.String() != "2026-10-20" {
				t.Errorf("reservation = %+v", r)
			}
		})
	}
}

func TestCreateReservation_LimitInResponse(t *testing.T) {
	s := newTestServer(t)
	s.reservations.createErr = apperror.ValidationWithLimit(apperror.RuleMaxActiveReservationsExceeded, 2)

	w := s.do(http.MethodPost, "/reservations", `{"court_id":"padel-cristal","date":"2026-10-20","start_time":"10:00"}`, true)
	res := decodeError(t, w)
	if res.Error != "validation" || res.Limit != 2 {
		t.Errorf("response = %+v", res)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	s := newTestServer(t)
	other, _ := auth.NewJWTVerifier("other-secret", time.Hour)
	forged, _ := other.Issue("user1")
	s.token = forged

	w := s.do(http.MethodGet, "/reservations", "", true)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestListReservations(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/reservations?filter=completed", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if s.reservations.userID != "user1" || s.reservations.filter != model.FilterCompleted {
		t.Errorf("called with user = %s, filter = %s", s.reservations.userID, s.reservations.filter)
	}

	w = s.do(http.MethodGet, "/reservations?filter=unknown", "", true)
	if w.Code != http.StatusOK || s.reservations.filter != model.FilterAll {
		t.Errorf("unknown filter should fall back to all, got %s", s.reservations.filter)
	}
}

func TestGetAndCancelReservation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/reservations/res-9", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	s.reservations.getErr = apperror.Unauthorized()
	if w := s.do(http.MethodGet, "/reservations/res-9", "", true); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	s.reservations.getErr = apperror.NotFound("reservation", "res-404")
	if w := s.do(http.MethodGet, "/reservations/res-404", "", true); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = s.do(http.MethodPut, "/reservations/res-9/cancel", "", true)
	if w.Code != http.StatusOK || s.reservations.cancelledID != "res-9" {
		t.Errorf("status = %d, cancelled = %s", w.Code, s.reservations.cancelledID)
	}

	s.reservations.cancelErr = apperror.Validation(apperror.RuleMustCancel2HoursBefore)
	w = s.do(http.MethodPut, "/reservations/res-9/cancel", "", true)
	if w.Code != http.StatusUnprocessableEntity || decodeError(t, w).Rule != string(apperror.RuleMustCancel2HoursBefore) {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRefreshReservations(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/reservations/refresh", "", true)
	if w.Code != http.StatusOK || s.reservations.userID != "user1" {
		t.Errorf("status = %d, user = %s", w.Code, s.reservations.userID)
	}
}

func TestListSlots(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantDisplay bool
	}{
		{"空き状況", "/courts/padel-cristal/slots?date=2026-10-20", http.StatusOK, false},
		{"表示用", "/courts/padel-cristal/slots?date=2026-10-20&display=true", http.StatusOK, true},
		{"日付が無い", "/courts/padel-cristal/slots", http.StatusBadRequest, false},
		{"コートIDが空白", "/courts/%20/slots?date=2026-10-20", http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(http.MethodGet, tt.path, "", false)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if s.availability.display != tt.wantDisplay {
				t.Errorf("display = %v, want %v", s.availability.display, tt.wantDisplay)
			}
		})
	}
}

func TestCourtsAndCalendar(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(http.MethodGet, "/courts", "", false); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "padel-cristal") {
		t.Errorf("GET /courts = %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/courts/padel-cristal", "", false); w.Code != http.StatusOK {
		t.Errorf("GET /courts/padel-cristal = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/courts/missing", "", false); w.Code != http.StatusNotFound {
		t.Errorf("GET /courts/missing = %d, want 404", w.Code)
	}

	w := s.do(http.MethodGet, "/calendar/dates", "", false)
	var body struct {
		Dates []model.Date `json:"dates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Dates) != 2 || body.Dates[0].String() != "2026-10-19" {
		t.Errorf("dates = %v", body.Dates)
	}

	s.courts.err = errors.New("connection refused")
	if w := s.do(http.MethodGet, "/courts", "", false); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /courts with failing catalog = %d, want 503", w.Code)
	}

	// デコード失敗は再試行可能なネットワークエラーとして扱わない
	s.courts.err = apperror.Unknown(errors.New("failed to decode court"))
	if w := s.do(http.MethodGet, "/courts", "", false); w.Code != http.StatusInternalServerError {
		t.Errorf("GET /courts with undecodable court = %d, want 500", w.Code)
	}
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(http.MethodGet, "/notifications", "", true); w.Code != http.StatusOK {
		t.Errorf("GET /notifications = %d", w.Code)
	}
	if w := s.do(http.MethodPut, "/notifications/7/read", "", true); w.Code != http.StatusNoContent || s.notifications.readID != 7 {
		t.Errorf("PUT /notifications/7/read = %d, id = %d", w.Code, s.notifications.readID)
	}
	if w := s.do(http.MethodPut, "/notifications/abc/read", "", true); w.Code != http.StatusBadRequest {
		t.Errorf("PUT /notifications/abc/read = %d, want 400", w.Code)
	}
	s.notifications.markErr = apperror.NotFound("notification", "8")
	if w := s.do(http.MethodPut, "/notifications/8/read", "", true); w.Code != http.StatusNotFound {
		t.Errorf("PUT /notifications/8/read = %d, want 404", w.Code)
	}
}
