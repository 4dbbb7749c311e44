package registry

import (
	"Rally/errs"
	models "Rally/models/postgres"
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
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
	return gdb, mock
}

func conversationRows(id, ctype, pairKey string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "type", "name", "pair_key", "created_by", "created_at"})
	if pairKey == "" {
		rows.AddRow(id, ctype, "", nil, "alice", time.Now())
	} else {
		rows.AddRow(id, ctype, "", pairKey, "alice", time.Now())
	}
	return rows
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "alice:bob", PairKey("alice", "bob"))
	// Argument order never changes the key
	assert.Equal(t, "alice:bob", PairKey("bob", "alice"))
}

func TestGetOrCreateDirectValidation(t *testing.T) {
	db, _ := newMockDB(t)
	r := NewRegistry(db)
	ctx := context.Background()

	_, err := r.GetOrCreateDirect(ctx, "", "bob")
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = r.GetOrCreateDirect(ctx, "alice", "alice")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestGetOrCreateDirectReturnsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRegistry(db)

	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE pair_key = `).
		WillReturnRows(conversationRows("conv-1", "direct", "alice:bob"))
	mock.ExpectQuery(`SELECT \* FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "user_id", "joined_at"}).
			AddRow("conv-1", "alice", time.Now()).
			AddRow("conv-1", "bob", time.Now()))

	conv, err := r.GetOrCreateDirect(context.Background(), "alice", "bob")

	assert.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Len(t, conv.Participants, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateDirectCreates(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRegistry(db)

	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE pair_key = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	conv, err := r.GetOrCreateDirect(context.Background(), "bob", "alice")

	assert.NoError(t, err)
	assert.Equal(t, models.ConversationDirect, conv.Type)
	if assert.NotNil(t, conv.PairKey) {
		assert.Equal(t, "alice:bob", *conv.PairKey)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateDirectLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRegistry(db)

	// Absent on first look, then the insert hits the unique pair index
	// because the other participant got there first.
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE pair_key = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE pair_key = `).
		WillReturnRows(conversationRows("conv-winner", "direct", "alice:bob"))
	mock.ExpectQuery(`SELECT \* FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "user_id", "joined_at"}).
			AddRow("conv-winner", "alice", time.Now()).
			AddRow("conv-winner", "bob", time.Now()))

	conv, err := r.GetOrCreateDirect(context.Background(), "alice", "bob")

	assert.NoError(t, err)
	assert.Equal(t, "conv-winner", conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupRejectsDirect(t *testing.T) {
	db, _ := newMockDB(t)
	r := NewRegistry(db)

	_, err := r.CreateGroup(context.Background(), models.ConversationDirect, "x", nil, "alice")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestCreateGroup(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRegistry(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	// One participant insert each for the creator and the two members;
	// the duplicated "bob" is folded before it reaches the store.
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`INSERT INTO "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	conv, err := r.CreateGroup(context.Background(), models.ConversationGroup, "padel crew",
		[]string{"bob", "carol", "bob"}, "alice")

	assert.NoError(t, err)
	assert.Equal(t, models.ConversationGroup, conv.Type)
	assert.Nil(t, conv.PairKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsParticipant(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewRegistry(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	in, err := r.IsParticipant(context.Background(), "conv-1", "alice")
	assert.NoError(t, err)
	assert.True(t, in)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "conversation_participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	in, err = r.IsParticipant(context.Background(), "conv-1", "stranger")
	assert.NoError(t, err)
	assert.False(t, in)
}
