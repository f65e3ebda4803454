package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mediconnect/models"
)

// AppointmentRepository persists appointments. Lookups return (nil, nil)
// when nothing matches.
type AppointmentRepository interface {
	// CreateWithNextSerial assigns the next serial for the appointment's
	// doctor and day and inserts it atomically. A lost race surfaces as
	// models.ErrSerialConflict.
	CreateWithNextSerial(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	ListForDoctorOnDay(ctx context.Context, doctorID int64, day string) ([]models.Appointment, error)
	ListForPatient(ctx context.Context, patientID int64) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) CreateWithNextSerial(ctx context.Context, appointment *models.Appointment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialises bookings for one doctor/day until the transaction ends
		lockKey := serialLockKey(appointment.DoctorID, appointment.AppointmentDay)
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error; err != nil {
			return errors.Wrap(err, "failed to lock serial range")
		}

		var last int
		err := tx.Model(&models.Appointment{}).
			Select("COALESCE(MAX(serial_number), 0)").
			Where("doctor_id = ? AND appointment_day = ?", appointment.DoctorID, appointment.AppointmentDay).
			Scan(&last).Error
		if err != nil {
			return errors.Wrap(err, "failed to read last serial number")
		}

		appointment.SerialNumber = last + 1
		return tx.Create(appointment).Error
	})
	if err != nil {
		appointment.ID = 0
		if isUniqueViolation(err) {
			return models.ErrSerialConflict
		}
		return errors.Wrap(err, "failed to create appointment")
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var appointment models.Appointment
	if err := r.db.WithContext(ctx).First(&appointment, id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get appointment")
	}
	return &appointment, nil
}

// ListForDoctorOnDay returns the doctor's queue for one day, first come first.
func (r *appointmentRepository) ListForDoctorOnDay(ctx context.Context, doctorID int64, day string) ([]models.Appointment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_day = ?", doctorID, day).
		Order("serial_number ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctor appointments")
	}
	return appointments, nil
}

// ListForPatient returns the patient's appointments, latest first.
func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("scheduled_at DESC").Order("id DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patient appointments")
	}
	return appointments, nil
}

// UpdateStatus overwrites the status without checking the current one.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to update appointment status")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func serialLockKey(doctorID int64, day string) string {
	return fmt.Sprintf("appointment_serial:%d:%s", doctorID, day)
}
