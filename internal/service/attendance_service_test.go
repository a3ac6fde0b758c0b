package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/storage"
)

type mockAttendanceRepo struct {
	upserted *models.AdvisoryAttendance
	records  []models.AttendanceRecord
	history  []models.AdvisoryAttendance
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, attendance *models.AdvisoryAttendance) error {
	m.upserted = attendance
	return nil
}

func (m *mockAttendanceRepo) ListBySession(ctx context.Context, advisoryDateID string) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) ListByAdvisory(ctx context.Context, advisoryID string) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) ListByStudent(ctx context.Context, studentID string) ([]models.AdvisoryAttendance, error) {
	return m.history, nil
}

type memoryReportStore struct {
	saved map[string][]byte
}

func (m *memoryReportStore) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[filename] = data
	return "/reports/" + filename, nil
}

func (m *memoryReportStore) Path(filename string) string {
	return "/reports/" + filename
}

func newAttendanceService(repo *mockAttendanceRepo, sessions *mockAdvisoryRepo, store *memoryReportStore) *AttendanceService {
	var signer *storage.SignedURLSigner
	var st reportStore
	if store != nil {
		signer = storage.NewSignedURLSigner("test-secret", time.Hour)
		st = store
	}
	return NewAttendanceService(repo, sessions, nil, nil, st, signer, nil, nil)
}

func TestAttendanceRecord(t *testing.T) {
	sessions := ownedSession()
	sessions.hasStudent = true
	repo := &mockAttendanceRepo{}
	svc := newAttendanceService(repo, sessions, nil)

	attendance, err := svc.Record(context.Background(), "prof-1", RecordAttendanceRequest{
		StudentID: "student-1", AdvisoryDateID: "date-1", Attended: true, Notes: "on time",
	})
	require.NoError(t, err)
	assert.True(t, attendance.Attended)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, "student-1", repo.upserted.StudentID)
}

func TestAttendanceRecordForbiddenForNonOwner(t *testing.T) {
	sessions := ownedSession()
	sessions.hasStudent = true
	svc := newAttendanceService(&mockAttendanceRepo{}, sessions, nil)

	_, err := svc.Record(context.Background(), "prof-2", RecordAttendanceRequest{
		StudentID: "student-1", AdvisoryDateID: "date-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceRecordRejectsUnregisteredStudent(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, ownedSession(), nil)

	_, err := svc.Record(context.Background(), "prof-1", RecordAttendanceRequest{
		StudentID: "student-9", AdvisoryDateID: "date-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceExportSessionCSV(t *testing.T) {
	repo := &mockAttendanceRepo{records: []models.AttendanceRecord{
		{AdvisoryAttendance: models.AdvisoryAttendance{Attended: true, Notes: "early"}, StudentName: "Ada Lovelace", StudentEmail: "ada@example.com"},
		{AdvisoryAttendance: models.AdvisoryAttendance{Attended: false}, StudentName: "Alan Turing", StudentEmail: "alan@example.com"},
	}}
	svc := newAttendanceService(repo, ownedSession(), nil)

	report, err := svc.ExportSession(context.Background(), "prof-1", "date-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", report.ContentType)
	assert.Equal(t, "attendance-date-1.csv", report.Filename)

	body := string(report.Content)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "yes")
	assert.Contains(t, body, "no")
}

func TestAttendanceExportSessionPDF(t *testing.T) {
	repo := &mockAttendanceRepo{records: []models.AttendanceRecord{
		{AdvisoryAttendance: models.AdvisoryAttendance{Attended: true}, StudentName: "Ada Lovelace", StudentEmail: "ada@example.com"},
	}}
	svc := newAttendanceService(repo, ownedSession(), nil)

	report, err := svc.ExportSession(context.Background(), "prof-1", "date-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Content), "%PDF"))
}

func TestAttendanceExportSessionUnsupportedFormat(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, ownedSession(), nil)

	_, err := svc.ExportSession(context.Background(), "prof-1", "date-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceExportAdvisoryStoresSignedReport(t *testing.T) {
	sessionDate := mondayDate
	repo := &mockAttendanceRepo{records: []models.AttendanceRecord{
		{AdvisoryAttendance: models.AdvisoryAttendance{Attended: true}, StudentName: "Ada Lovelace", StudentEmail: "ada@example.com", SessionDate: &sessionDate},
	}}
	store := &memoryReportStore{}
	svc := newAttendanceService(repo, ownedSession(), store)

	stored, err := svc.ExportAdvisory(context.Background(), "prof-1", "adv-1", "csv")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Token)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
	require.Len(t, store.saved, 1)
	assert.Contains(t, string(store.saved[stored.Filename]), "2026-01-05")

	path, filename, err := svc.ResolveReport(stored.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.Filename, filename)
	assert.Equal(t, "/reports/"+stored.Filename, path)
}

func TestAttendanceExportAdvisoryForbiddenForNonOwner(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, ownedSession(), &memoryReportStore{})

	_, err := svc.ExportAdvisory(context.Background(), "prof-2", "adv-1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceExportAdvisoryWithoutStorage(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, ownedSession(), nil)

	_, err := svc.ExportAdvisory(context.Background(), "prof-1", "adv-1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestAttendanceResolveReportRejectsBadToken(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, ownedSession(), &memoryReportStore{})

	_, _, err := svc.ResolveReport("not-a-real-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
