package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/services"
)

type DoctorHandler struct {
	service *services.DoctorService
	log     *logger.Logger
}

func NewDoctorHandler(service *services.DoctorService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{service: service, log: log}
}

func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "Invalid doctor ID")
		return
	}

	doctor, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, doctor)
}

func (h *DoctorHandler) GetAllDoctors(c *gin.Context) {
	doctors, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}
