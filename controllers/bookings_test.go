package controllers

import (
	"Rally/errs"
	"Rally/middleware"
	models "Rally/models/postgres"
	redis_models "Rally/models/redis"
	"Rally/services/coordinator"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopChatrooms struct{}

func (noopChatrooms) CreateForBooking(ctx context.Context, booking *models.BookingRequest) (*redis_models.GameChatroom, error) {
	return &redis_models.GameChatroom{ID: "room-1", BookingID: booking.ID, Active: true}, nil
}

func (noopChatrooms) GetForBooking(ctx context.Context, bookingID string) (*redis_models.GameChatroom, error) {
	return nil, errs.NotFound("no chatroom for booking")
}

func (noopChatrooms) AddParticipant(ctx context.Context, chatroomID, userID string) (*redis_models.GameChatroom, error) {
	return nil, errs.NotFound("chatroom not found")
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, recipientID string, ntype models.NotificationType, payload any) error {
	return nil
}

func newBookingTestServer(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, string) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open gorm: %v", err)
	}

	coord := coordinator.NewCoordinator(gdb, noopChatrooms{}, noopNotifier{})

	router := gin.New()
	auth := router.Group("/auth")
	auth.Use(middleware.AuthRequired)
	auth.POST("/bookings", CreateBookingRequest(gdb, coord))
	auth.GET("/bookings/:booking_id", GetBookingRequest(gdb, coord))
	auth.POST("/bookings/:booking_id/respond", RespondToBookingRequest(gdb, coord))
	auth.POST("/bookings/:booking_id/join", SendJoinRequest(gdb, coord))

	token, err := middleware.GenerateToken("host@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return router, mock, token
}

func expectUserLookup(mock sqlmock.Sqlmock, email, username string) {
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email", "username", "password_hash"}).
			AddRow(email, username, "irrelevant"))
}

func mockBookingRow(mock sqlmock.Sqlmock, status models.BookingStatus, filled, total int) {
	mock.ExpectQuery(`SELECT \* FROM "booking_requests" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "venue_id", "court_id", "host_id", "requester_id",
			"date", "start_time", "duration_min", "capacity_total",
			"capacity_filled", "status", "created_at",
		}).AddRow(
			"booking-1", "venue-1", "court-1", "host", "alice",
			"2025-09-01", "18:00", 60, total, filled, status, time.Now(),
		))
}

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", Ping)

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestCreateBookingRequestEndpoint(t *testing.T) {
	router, mock, token := newBookingTestServer(t)

	expectUserLookup(mock, "host@example.com", "host")
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "booking_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"capacity_filled", "created_at"}).
			AddRow(0, time.Now()))
	mock.ExpectCommit()

	body, _ := json.Marshal(map[string]any{
		"venue_id":         "venue-1",
		"court_id":         "court-1",
		"date":             "2025-09-01",
		"start_time":       "18:00",
		"duration_minutes": 60,
		"capacity_total":   4,
	})
	req, _ := http.NewRequest(http.MethodPost, "/auth/bookings", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Booking models.BookingRequest `json:"booking"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingPending, resp.Booking.Status)
	// The caller is always the requester and, absent an explicit host,
	// the host too
	assert.Equal(t, "host", resp.Booking.RequesterID)
	assert.Equal(t, "host", resp.Booking.HostID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRequestEndpointUnauthorized(t *testing.T) {
	router, _, _ := newBookingTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, "/auth/bookings", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRespondToBookingRequestEndpoint(t *testing.T) {
	router, mock, token := newBookingTestServer(t)

	expectUserLookup(mock, "host@example.com", "host")
	mockBookingRow(mock, models.BookingPending, 1, 4)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "booking_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	form := url.Values{"decision": {"confirm"}}
	req, _ := http.NewRequest(http.MethodPost, "/auth/bookings/booking-1/respond",
		strings.NewReader(form.Encode()))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "booking")
	assert.Contains(t, resp, "chatroom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondToBookingRequestEndpointConflict(t *testing.T) {
	router, mock, token := newBookingTestServer(t)

	expectUserLookup(mock, "host@example.com", "host")
	mockBookingRow(mock, models.BookingPending, 1, 4)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "booking_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	form := url.Values{"decision": {"confirm"}}
	req, _ := http.NewRequest(http.MethodPost, "/auth/bookings/booking-1/respond",
		strings.NewReader(form.Encode()))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already decided")
}

func TestSendJoinRequestEndpointGameFull(t *testing.T) {
	router, mock, token := newBookingTestServer(t)

	expectUserLookup(mock, "host@example.com", "bob")
	mockBookingRow(mock, models.BookingPending, 4, 4)

	req, _ := http.NewRequest(http.MethodPost, "/auth/bookings/booking-1/join", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "game full")
}

func TestGetBookingRequestEndpointNotFound(t *testing.T) {
	router, mock, token := newBookingTestServer(t)

	expectUserLookup(mock, "host@example.com", "host")
	mock.ExpectQuery(`SELECT \* FROM "booking_requests" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req, _ := http.NewRequest(http.MethodGet, "/auth/bookings/missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSideEffectWarning(t *testing.T) {
	assert.Empty(t, sideEffectWarning(nil, nil))
	assert.Contains(t, sideEffectWarning(assert.AnError, nil), "notification")
	assert.Contains(t, sideEffectWarning(nil, assert.AnError), "chatroom")
	assert.Contains(t, sideEffectWarning(assert.AnError, assert.AnError), "chatroom creation and notification")
}
