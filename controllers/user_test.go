package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newUserTestServer(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
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

	router := gin.New()
	router.POST("/signup", SignUp(gdb))
	router.POST("/login", Login(gdb))
	return router, mock
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignUp(t *testing.T) {
	router, mock := newUserTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"member_since"}).AddRow(time.Now()))
	mock.ExpectCommit()

	w := postForm(router, "/signup", url.Values{
		"email":    {"alice@example.com"},
		"username": {"alice"},
		"password": {"hunter22"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpMissingFields(t *testing.T) {
	router, _ := newUserTestServer(t)

	w := postForm(router, "/signup", url.Values{"email": {"alice@example.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUpTakenUsername(t *testing.T) {
	router, mock := newUserTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email", "username"}).
			AddRow("other@example.com", "alice"))

	w := postForm(router, "/signup", url.Values{
		"email":    {"alice@example.com"},
		"username": {"alice"},
		"password": {"hunter22"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already taken")
}

func TestLogin(t *testing.T) {
	router, mock := newUserTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email", "username", "password_hash"}).
			AddRow("alice@example.com", "alice", string(hash)))

	w := postForm(router, "/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"hunter22"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}

func TestLoginWrongPassword(t *testing.T) {
	router, mock := newUserTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email", "username", "password_hash"}).
			AddRow("alice@example.com", "alice", string(hash)))

	w := postForm(router, "/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	router, mock := newUserTestServer(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))

	w := postForm(router, "/login", url.Values{
		"email":    {"ghost@example.com"},
		"password": {"whatever"},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
