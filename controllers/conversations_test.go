package controllers

import (
	"Rally/middleware"
	"Rally/services/registry"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newConversationTestServer(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, string) {
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

	reg := registry.NewRegistry(gdb)

	router := gin.New()
	auth := router.Group("/auth")
	auth.Use(middleware.AuthRequired)
	auth.GET("/conversations/direct/:other_user", GetOrCreateDirectConversation(gdb, reg))

	token, err := middleware.GenerateToken("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return router, mock, token
}

func expectUsernameCount(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE username = `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestGetOrCreateDirectConversationEndpoint(t *testing.T) {
	router, mock, token := newConversationTestServer(t)

	expectUserLookup(mock, "alice@example.com", "alice")
	expectUsernameCount(mock, 1)
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE pair_key = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "name", "pair_key", "created_by", "created_at"}).
			AddRow("conv-1", "direct", "", "alice:bob", "alice", time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "user_id", "joined_at"}).
			AddRow("conv-1", "alice", time.Now()).
			AddRow("conv-1", "bob", time.Now()))

	req, _ := http.NewRequest(http.MethodGet, "/auth/conversations/direct/bob", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conv-1")
}

func TestGetOrCreateDirectConversationUnknownUser(t *testing.T) {
	router, mock, token := newConversationTestServer(t)

	// A typo in the path must not silently mint a conversation with a
	// username that does not exist
	expectUserLookup(mock, "alice@example.com", "alice")
	expectUsernameCount(mock, 0)

	req, _ := http.NewRequest(http.MethodGet, "/auth/conversations/direct/bobb", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
