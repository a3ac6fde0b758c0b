package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

var invitationColumnList = []string{
	"id", "advisory_date_id", "student_id", "invited_by_id", "status",
	"expires_at", "created_at", "updated_at",
}

func TestInvitationFindPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvitationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(invitationColumnList).
		AddRow("inv-1", "date-1", "student-1", "prof-1", string(models.InvitationPending), now.Add(time.Hour), now, now)
	mock.ExpectQuery("SELECT (.+) FROM student_invitations WHERE advisory_date_id = \\$1 AND student_id = \\$2 AND status = \\$3").
		WithArgs("date-1", "student-1", models.InvitationPending).
		WillReturnRows(rows)

	invitation, err := repo.FindPending(context.Background(), "date-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, invitation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationFindPendingNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvitationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM student_invitations WHERE advisory_date_id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPending(context.Background(), "date-1", "student-1")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvitationRepository(db)

	mock.ExpectExec("INSERT INTO student_invitations").WillReturnResult(sqlmock.NewResult(1, 1))

	invitation := &models.StudentInvitation{
		AdvisoryDateID: "date-1", StudentID: "student-1", InvitedByID: "prof-1",
		Status: models.InvitationPending, ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), invitation))
	assert.NotEmpty(t, invitation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvitationRepository(db)

	mock.ExpectExec("UPDATE student_invitations SET status").
		WithArgs("inv-1", models.InvitationExpired, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "inv-1", models.InvitationExpired))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationCountPendingByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewInvitationRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_invitations WHERE student_id = $1 AND status = $2 AND expires_at > $3")).
		WithArgs("student-1", models.InvitationPending, now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountPendingByStudent(context.Background(), "student-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
