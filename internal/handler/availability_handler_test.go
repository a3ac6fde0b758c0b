package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-advisory-api/internal/models"
	"github.com/noah-isme/sma-advisory-api/internal/service"
)

type stubSlotLister struct {
	slots []models.TimeSlot
}

func (s *stubSlotLister) ListActiveByProfessorDay(ctx context.Context, professorID string, day models.DayOfWeek) ([]models.TimeSlot, error) {
	return s.slots, nil
}

type stubBookingCounter struct{}

func (s *stubBookingCounter) CountBookings(ctx context.Context, timeSlotID string, date time.Time) (int, error) {
	return 0, nil
}

type stubDetailReader struct {
	detail *models.SubjectDetailInfo
}

func (s *stubDetailReader) FindDetailByID(ctx context.Context, id string) (*models.SubjectDetailInfo, error) {
	return s.detail, nil
}

func newAvailabilityRouter(slots *stubSlotLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewAvailabilityService(slots, &stubBookingCounter{}, &stubDetailReader{}, nil, 0, 0, zap.NewNop())
	h := NewAvailabilityHandler(svc)

	r := gin.New()
	r.GET("/availability/slots", h.Slots)
	r.GET("/availability/subjects/:detailId", h.Schedule)
	return r
}

func TestAvailabilitySlotsEndpoint(t *testing.T) {
	slots := &stubSlotLister{slots: []models.TimeSlot{
		{ID: "slot-1", ProfessorID: "prof-1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00", MaxStudentsPerSlot: 3, IsActive: true},
	}}
	r := newAvailabilityRouter(slots)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/availability/slots?professor_id=prof-1&date=2026-01-05", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.AvailableSlot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "slot-1", envelope.Data[0].SlotID)
	assert.Equal(t, 3, envelope.Data[0].AvailableSpots)
}

func TestAvailabilitySlotsRequiresProfessor(t *testing.T) {
	r := newAvailabilityRouter(&stubSlotLister{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/availability/slots?date=2026-01-05", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilitySlotsRejectsBadDate(t *testing.T) {
	r := newAvailabilityRouter(&stubSlotLister{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/availability/slots?professor_id=prof-1&date=05-01-2026", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
