package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	appErrors "github.com/noah-isme/sma-advisory-api/pkg/errors"
	"github.com/noah-isme/sma-advisory-api/pkg/export"
	"github.com/noah-isme/sma-advisory-api/pkg/storage"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, attendance *models.AdvisoryAttendance) error
	ListBySession(ctx context.Context, advisoryDateID string) ([]models.AttendanceRecord, error)
	ListByAdvisory(ctx context.Context, advisoryID string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AdvisoryAttendance, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// RecordAttendanceRequest marks one student on one dated session.
type RecordAttendanceRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	AdvisoryDateID string `json:"advisory_date_id" validate:"required"`
	Attended       bool   `json:"attended"`
	Notes          string `json:"notes" validate:"max=500"`
}

// AttendanceReport bundles an export payload with transport metadata.
type AttendanceReport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredReport points at a rendered report persisted on disk, downloadable
// through a signed token until it expires.
type StoredReport struct {
	Filename  string    `json:"filename"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttendanceService records per-session attendance and exports reports.
type AttendanceService struct {
	repo      attendanceRepository
	sessions  participantRegistrar
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	store     reportStore
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService instantiates AttendanceService. The store and signer
// are optional; without them advisory-wide stored exports are unavailable.
func NewAttendanceService(repo attendanceRepository, sessions participantRegistrar, csv *export.CSVExporter, pdf *export.PDFExporter, store reportStore, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, sessions: sessions, csv: csv, pdf: pdf, store: store, signer: signer, validator: validate, logger: logger}
}

// Record upserts an attendance mark. Only the owning professor may record,
// and only for registered participants.
func (s *AttendanceService) Record(ctx context.Context, professorID string, req RecordAttendanceRequest) (*models.AdvisoryAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if err := s.ensureSessionOwner(ctx, req.AdvisoryDateID, professorID); err != nil {
		return nil, err
	}

	registered, err := s.sessions.HasParticipant(ctx, req.AdvisoryDateID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check participant")
	}
	if !registered {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not registered on this session")
	}

	attendance := &models.AdvisoryAttendance{
		StudentID:      req.StudentID,
		AdvisoryDateID: req.AdvisoryDateID,
		Attended:       req.Attended,
		Notes:          req.Notes,
	}
	if err := s.repo.Upsert(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return attendance, nil
}

// ListBySession returns a session's attendance sheet for the owner.
func (s *AttendanceService) ListBySession(ctx context.Context, professorID, advisoryDateID string) ([]models.AttendanceRecord, error) {
	if err := s.ensureSessionOwner(ctx, advisoryDateID, professorID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListBySession(ctx, advisoryDateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// ListForStudent returns a student's own attendance history.
func (s *AttendanceService) ListForStudent(ctx context.Context, studentID string) ([]models.AdvisoryAttendance, error) {
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// ExportSession renders the session's attendance sheet as csv or pdf.
func (s *AttendanceService) ExportSession(ctx context.Context, professorID, advisoryDateID, format string) (*AttendanceReport, error) {
	records, err := s.ListBySession(ctx, professorID, advisoryDateID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Attended", "Notes"},
	}
	for _, record := range records {
		attended := "no"
		if record.Attended {
			attended = "yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":  record.StudentName,
			"Email":    record.StudentEmail,
			"Attended": attended,
			"Notes":    record.Notes,
		})
	}

	switch format {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &AttendanceReport{
			Filename:    fmt.Sprintf("attendance-%s.csv", advisoryDateID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "Session attendance")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &AttendanceReport{
			Filename:    fmt.Sprintf("attendance-%s.pdf", advisoryDateID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// ExportAdvisory renders the full attendance history of an advisory, persists
// the file and returns a signed download token.
func (s *AttendanceService) ExportAdvisory(ctx context.Context, professorID, advisoryID, format string) (*StoredReport, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "report storage is not configured")
	}

	advisory, err := s.sessions.FindByID(ctx, advisoryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "advisory not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory")
	}
	if advisory.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "advisory belongs to another professor")
	}

	records, err := s.repo.ListByAdvisory(ctx, advisoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Student", "Email", "Attended", "Notes"},
	}
	for _, record := range records {
		attended := "no"
		if record.Attended {
			attended = "yes"
		}
		sessionDate := ""
		if record.SessionDate != nil {
			sessionDate = record.SessionDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":     sessionDate,
			"Student":  record.StudentName,
			"Email":    record.StudentEmail,
			"Attended": attended,
			"Notes":    record.Notes,
		})
	}

	var content []byte
	var ext string
	switch format {
	case "csv", "":
		ext = "csv"
		content, err = s.csv.Render(dataset)
	case "pdf":
		ext = "pdf"
		content, err = s.pdf.Render(dataset, "Advisory attendance")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("advisory-%s-%d.%s", advisoryID, time.Now().Unix(), ext)
	if _, err := s.store.Save(filename, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(advisoryID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return &StoredReport{Filename: filename, Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveReport validates a download token and returns the on-disk path of
// the referenced report.
func (s *AttendanceService) ResolveReport(token string) (path, filename string, err error) {
	if s.store == nil || s.signer == nil {
		return "", "", appErrors.Clone(appErrors.ErrInvalidState, "report storage is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	return s.store.Path(relPath), relPath, nil
}

func (s *AttendanceService) ensureSessionOwner(ctx context.Context, advisoryDateID, professorID string) error {
	date, err := s.sessions.FindDateByID(ctx, advisoryDateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	advisory, err := s.sessions.FindByID(ctx, date.AdvisoryID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advisory")
	}
	if advisory.ProfessorID != professorID {
		return appErrors.Clone(appErrors.ErrForbidden, "session belongs to another professor")
	}
	return nil
}
