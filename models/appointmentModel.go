package models

import (
	"strings"
	"time"
)

// DayLayout is the calendar-day format used for appointment_day.
const DayLayout = "2006-01-02"

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

// ParseAppointmentStatus matches a status name case-insensitively.
func ParseAppointmentStatus(value string) (AppointmentStatus, error) {
	status := AppointmentStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Appointment model. Rows are never deleted; cancellation is a status.
// (doctor_id, appointment_day, serial_number) is unique.
type Appointment struct {
	ID             int64             `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID      int64             `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID       int64             `gorm:"column:doctor_id;not null;uniqueIndex:idx_doctor_day_serial,priority:1" json:"doctor_id"`
	ScheduledAt    time.Time         `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	AppointmentDay string            `gorm:"column:appointment_day;size:10;not null;uniqueIndex:idx_doctor_day_serial,priority:2" json:"appointment_day"`
	SerialNumber   int               `gorm:"column:serial_number;not null;check:serial_number > 0;uniqueIndex:idx_doctor_day_serial,priority:3" json:"serial_number"`
	Status         AppointmentStatus `gorm:"column:status;size:20;not null;check:status IN ('SCHEDULED','CONFIRMED','COMPLETED','CANCELLED','NO_SHOW')" json:"status"`
	Notes          string            `gorm:"column:notes;size:500" json:"notes,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	Patient        *User             `gorm:"foreignKey:PatientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Doctor         *User             `gorm:"foreignKey:DoctorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// InvolvesUser reports whether the user is the patient or the doctor.
func (a *Appointment) InvolvesUser(userID int64) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}
