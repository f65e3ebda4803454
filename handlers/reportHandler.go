package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/services"
)

type ReportHandler struct {
	service services.ReportService
	log     *logger.Logger
}

func NewReportHandler(service services.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{service: service, log: log}
}

type createReportRequest struct {
	PatientID     int64  `json:"patient_id"`
	DoctorID      int64  `json:"doctor_id"`
	AppointmentID *int64 `json:"appointment_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	FileURL       string `json:"file_url"`
	FileType      string `json:"file_type"`
	FileSize      int64  `json:"file_size"`
}

// updateReportRequest distinguishes an absent description from an empty one.
type updateReportRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	report, err := h.service.Create(c.Request.Context(), caller(c), services.CreateReportInput{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AppointmentID: req.AppointmentID,
		Title:         req.Title,
		Description:   req.Description,
		FileURL:       req.FileURL,
		FileType:      req.FileType,
		FileSize:      req.FileSize,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) GetReportByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid report ID")
		return
	}

	report, err := h.service.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) ListReports(c *gin.Context) {
	var filter services.ReportFilter
	for name, target := range map[string]*int64{
		"patient_id":     &filter.PatientID,
		"doctor_id":      &filter.DoctorID,
		"appointment_id": &filter.AppointmentID,
	} {
		id, ok := queryID(c, name)
		if !ok {
			respondError(c, h.log, models.FieldError(name, "must be a positive integer"))
			return
		}
		*target = id
	}

	reports, err := h.service.List(c.Request.Context(), caller(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ReportHandler) UpdateReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid report ID")
		return
	}

	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	report, err := h.service.UpdateDetails(c.Request.Context(), caller(c), id, req.Title, req.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid report ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	status, err := models.ParseReportStatus(req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	report, err := h.service.UpdateStatus(c.Request.Context(), caller(c), id, status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
