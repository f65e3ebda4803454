package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/services"
)

type AppointmentHandler struct {
	service  services.AppointmentService
	location *time.Location
	log      *logger.Logger
}

// NewAppointmentHandler reads zone-less date-times in loc.
func NewAppointmentHandler(service services.AppointmentService, loc *time.Location, log *logger.Logger) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{service: service, location: loc, log: log}
}

type bookAppointmentRequest struct {
	PatientID   int64  `json:"patient_id"`
	DoctorID    int64  `json:"doctor_id"`
	ScheduledAt string `json:"scheduled_at"`
	Notes       string `json:"notes"`
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req bookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != "" {
		t, ok := parseDateTime(req.ScheduledAt, h.location)
		if !ok {
			respondError(c, h.log, models.FieldError("scheduled_at", "must be an RFC 3339 or YYYY-MM-DDTHH:MM date-time"))
			return
		}
		scheduledAt = t
	}

	appointment, err := h.service.Book(c.Request.Context(), caller(c), services.BookInput{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: scheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid appointment ID")
		return
	}

	appointment, err := h.service.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

// ListAppointments serves a doctor's day queue when a date is given and a
// patient's history otherwise.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	identity := caller(c)

	day := c.Query("date")
	if day == "" && identity.Role == models.RoleDoctor {
		respondError(c, h.log, models.FieldError("date", "cannot be blank"))
		return
	}

	var (
		appointments []models.Appointment
		err          error
	)
	if day != "" {
		doctorID, ok := queryID(c, "doctor_id")
		if !ok {
			badRequest(c, "Invalid doctor ID")
			return
		}
		appointments, err = h.service.ListForDoctor(c.Request.Context(), identity, doctorID, day)
	} else {
		patientID, ok := queryID(c, "patient_id")
		if !ok {
			badRequest(c, "Invalid patient ID")
			return
		}
		appointments, err = h.service.ListForPatient(c.Request.Context(), identity, patientID)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *AppointmentHandler) AvailableSlots(c *gin.Context) {
	doctorID, ok := queryID(c, "doctor_id")
	if !ok {
		badRequest(c, "Invalid doctor ID")
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), doctorID, c.Query("date"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid appointment ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	status, err := models.ParseAppointmentStatus(req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	appointment, err := h.service.UpdateStatus(c.Request.Context(), caller(c), id, status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid appointment ID")
		return
	}

	appointment, err := h.service.Cancel(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}
