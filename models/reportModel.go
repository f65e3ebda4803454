package models

import (
	"strings"
	"time"
)

type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportReviewed  ReportStatus = "REVIEWED"
	ReportApproved  ReportStatus = "APPROVED"
	ReportRejected  ReportStatus = "REJECTED"
)

// ParseReportStatus matches a status name case-insensitively.
func ParseReportStatus(value string) (ReportStatus, error) {
	status := ReportStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case ReportDraft, ReportSubmitted, ReportReviewed, ReportApproved, ReportRejected:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// MedicalReport holds metadata for a file kept in external storage.
// UpdatedAt stays nil until the first mutation after creation.
type MedicalReport struct {
	ID            int64        `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID     int64        `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID      int64        `gorm:"column:doctor_id;not null;index" json:"doctor_id"`
	AppointmentID *int64       `gorm:"column:appointment_id;index" json:"appointment_id,omitempty"`
	Title         string       `gorm:"column:title;size:255;not null" json:"title"`
	Description   string       `gorm:"column:description;size:1000" json:"description"`
	FileURL       string       `gorm:"column:file_url;size:2048;not null" json:"file_url"`
	FileType      string       `gorm:"column:file_type;size:100" json:"file_type"`
	FileSize      int64        `gorm:"column:file_size" json:"file_size"`
	Status        ReportStatus `gorm:"column:status;size:20;not null;check:status IN ('DRAFT','SUBMITTED','REVIEWED','APPROVED','REJECTED')" json:"status"`
	CreatedAt     time.Time    `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt     *time.Time   `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
	Patient       *User        `gorm:"foreignKey:PatientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Doctor        *User        `gorm:"foreignKey:DoctorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Appointment   *Appointment `gorm:"foreignKey:AppointmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (MedicalReport) TableName() string {
	return "medical_reports"
}

// InvolvesUser reports whether the user is the patient or the authoring doctor.
func (r *MedicalReport) InvolvesUser(userID int64) bool {
	return r.PatientID == userID || r.DoctorID == userID
}
