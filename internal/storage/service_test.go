package storage

import (
	"context"
	"database/sql"
	"testing"

	"grievance/backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStorageService(gdb), mock
}

func TestService_GetComplaintByID_NotFound(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`SELECT \* FROM "complaints" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetComplaintByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateTimelineEvent_UniqueViolation(t *testing.T) {
	s, mock := newMockService(t)
	key := "note-1"

	mock.ExpectExec(`INSERT INTO "timeline_events"`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, Message: "duplicate key value violates unique constraint"})

	err := s.CreateTimelineEvent(context.Background(), &models.TimelineEvent{
		ID:             "01JTEST",
		ComplaintID:    "c1",
		Type:           models.EventNoteAdded,
		IdempotencyKey: &key,
	})

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ListUserIDsByRole(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE role = \$1`).
		WithArgs(models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1").AddRow("a2"))

	ids, err := s.ListUserIDsByRole(context.Background(), models.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, translate(sql.ErrConnDone), sql.ErrConnDone)
}

func TestService_IncrementOfficerCounter_TouchesOnlyThatColumn(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectExec(`UPDATE "officers" SET "closed"\s*=\s*closed \+ \$1 WHERE id = \$2`).
		WithArgs(1, "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.IncrementOfficerCounter(context.Background(), "o1", CounterClosed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_IncrementOfficerCounter_Errors(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectExec(`UPDATE "officers" SET "acted"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.IncrementOfficerCounter(context.Background(), "gone", CounterActed), ErrNotFound)
	assert.Error(t, s.IncrementOfficerCounter(context.Background(), "o1", OfficerCounter("arrived")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetOfficerForUpdate_LocksRow(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(`SELECT \* FROM "officers" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "assigned_complaints"}).
			AddRow("o1", "Ada", "ada@city.gov", "{c1,c2}"))

	o, err := s.GetOfficerForUpdate(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, []string(o.AssignedComplaints))
	assert.NoError(t, mock.ExpectationsWereMet())
}
