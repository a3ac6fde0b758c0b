package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

var advisoryRequestColumnList = []string{
	"id", "student_id", "professor_id", "subject_detail_id", "status",
	"student_message", "professor_response", "processed_at", "processed_by_id",
	"created_at", "updated_at",
}

func TestAdvisoryRequestFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(advisoryRequestColumnList).
		AddRow("req-1", "student-1", "prof-1", "detail-1", string(models.RequestPending), "need help", "", nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM advisory_requests WHERE id = \\$1 LIMIT 1").
		WithArgs("req-1").
		WillReturnRows(rows)

	req, err := repo.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "need help", req.StudentMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryRequestCountPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM advisory_requests WHERE student_id = $1 AND subject_detail_id = $2 AND status = $3")).
		WithArgs("student-1", "detail-1", models.RequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountPending(context.Background(), "student-1", "detail-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryRequestListFiltersByProfessorAndStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(advisoryRequestColumnList).
		AddRow("req-1", "student-1", "prof-1", "detail-1", string(models.RequestPending), "", "", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM advisory_requests WHERE 1=1 AND professor_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("prof-1", models.RequestPending).
		WillReturnRows(rows)

	status := models.RequestPending
	requests, err := repo.List(context.Background(), models.AdvisoryRequestFilter{ProfessorID: "prof-1", Status: &status})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "req-1", requests[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryRequestCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	mock.ExpectExec("INSERT INTO advisory_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.AdvisoryRequest{
		StudentID: "student-1", ProfessorID: "prof-1", SubjectDetailID: "detail-1",
		Status: models.RequestPending,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryRequestUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	mock.ExpectExec("UPDATE advisory_requests SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	processedAt := time.Now().UTC()
	processedBy := "prof-1"
	req := &models.AdvisoryRequest{
		ID: "req-1", Status: models.RequestApproved,
		ProfessorResponse: "come on Monday", ProcessedAt: &processedAt, ProcessedByID: &processedBy,
	}
	require.NoError(t, repo.UpdateStatus(context.Background(), req))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryRequestCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdvisoryRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM advisory_requests WHERE status = $1")).
		WithArgs(models.RequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByStatus(context.Background(), models.RequestPending)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
