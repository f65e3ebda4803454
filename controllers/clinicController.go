package controllers

import (
	"github.com/gin-gonic/gin"

	"mediconnect/handlers"
	"mediconnect/middlewares"
	"mediconnect/models"
)

// SetupClinicRoutes mounts the doctor directory, appointment and report
// routes behind authenticate. Role gates here are coarse; the services
// decide per record.
func SetupClinicRoutes(
	router *gin.Engine,
	authenticate gin.HandlerFunc,
	doctorHandler *handlers.DoctorHandler,
	appointmentHandler *handlers.AppointmentHandler,
	reportHandler *handlers.ReportHandler,
) {
	doctors := router.Group("/doctors", authenticate)
	{
		doctors.GET("", doctorHandler.GetAllDoctors)
		doctors.GET("/:id", doctorHandler.GetDoctorByID)
	}

	appointments := router.Group("/appointments", authenticate)
	{
		appointments.GET("", appointmentHandler.ListAppointments)
		appointments.GET("/slots", appointmentHandler.AvailableSlots)
		appointments.GET("/:id", appointmentHandler.GetAppointmentByID)
		appointments.POST("", middlewares.RequireRoles(models.RolePatient, models.RoleAdmin), appointmentHandler.CreateAppointment)
		appointments.PATCH("/:id/status", middlewares.RequireRoles(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointmentStatus)
		appointments.POST("/:id/cancel", appointmentHandler.CancelAppointment)
	}

	reports := router.Group("/reports", authenticate)
	{
		reports.GET("", reportHandler.ListReports)
		reports.GET("/:id", reportHandler.GetReportByID)
		reports.POST("", middlewares.RequireRoles(models.RoleDoctor, models.RoleAdmin), reportHandler.CreateReport)
		reports.PATCH("/:id", middlewares.RequireRoles(models.RoleDoctor, models.RoleAdmin), reportHandler.UpdateReport)
		reports.PATCH("/:id/status", middlewares.RequireRoles(models.RoleDoctor, models.RoleAdmin), reportHandler.UpdateReportStatus)
	}
}
