package services

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/monitoring"
	"mediconnect/repositories"
)

// maxSerialAttempts bounds retries after losing a serial allocation race.
const maxSerialAttempts = 3

// BookInput is a booking request. PatientID may be left zero when a patient
// books for themselves.
type BookInput struct {
	PatientID   int64
	DoctorID    int64
	ScheduledAt time.Time
	Notes       string
}

type AppointmentService interface {
	Book(ctx context.Context, caller models.Identity, in BookInput) (*models.Appointment, error)
	Get(ctx context.Context, caller models.Identity, id int64) (*models.Appointment, error)
	ListForDoctor(ctx context.Context, caller models.Identity, doctorID int64, day string) ([]models.Appointment, error)
	ListForPatient(ctx context.Context, caller models.Identity, patientID int64) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, caller models.Identity, id int64, status models.AppointmentStatus) (*models.Appointment, error)
	Cancel(ctx context.Context, caller models.Identity, id int64) (*models.Appointment, error)
	AvailableSlots(ctx context.Context, doctorID int64, day string) ([]time.Time, error)
}

type appointmentService struct {
	appointments repositories.AppointmentRepository
	users        repositories.UserRepository
	location     *time.Location
	metrics      *monitoring.Metrics
	log          *logger.Logger
}

// NewAppointmentService books appointments on calendar days of loc.
func NewAppointmentService(
	appointments repositories.AppointmentRepository,
	users repositories.UserRepository,
	loc *time.Location,
	metrics *monitoring.Metrics,
	log *logger.Logger,
) AppointmentService {
	if loc == nil {
		loc = time.UTC
	}
	return &appointmentService{appointments: appointments, users: users, location: loc, metrics: metrics, log: log}
}

// Book assigns the next serial for the doctor's day. Patients book for
// themselves; admins book on behalf of a named patient.
func (s *appointmentService) Book(ctx context.Context, caller models.Identity, in BookInput) (*models.Appointment, error) {
	switch caller.Role {
	case models.RolePatient:
		if in.PatientID != 0 && in.PatientID != caller.UserID {
			return nil, models.ErrForbidden
		}
		in.PatientID = caller.UserID
	case models.RoleAdmin:
	default:
		return nil, models.ErrForbidden
	}

	err := validation.Errors{
		"patient_id":   validation.Validate(in.PatientID, validation.Required),
		"doctor_id":    validation.Validate(in.DoctorID, validation.Required),
		"scheduled_at": validation.Validate(in.ScheduledAt, validation.Required),
		"notes":        validation.Validate(in.Notes, validation.RuneLength(0, 500)),
	}.Filter()
	if err != nil {
		return nil, models.NewValidationError(err)
	}

	if err := s.requireRole(ctx, in.DoctorID, models.RoleDoctor, "doctor"); err != nil {
		return nil, err
	}
	if caller.Role == models.RoleAdmin {
		if err := s.requireRole(ctx, in.PatientID, models.RolePatient, "patient"); err != nil {
			return nil, err
		}
	}

	appointment := &models.Appointment{
		PatientID:      in.PatientID,
		DoctorID:       in.DoctorID,
		ScheduledAt:    in.ScheduledAt,
		AppointmentDay: models.DayOf(in.ScheduledAt, s.location),
		Status:         models.AppointmentScheduled,
		Notes:          in.Notes,
	}

	for attempt := 1; ; attempt++ {
		err = s.appointments.CreateWithNextSerial(ctx, appointment)
		if !errors.Is(err, models.ErrSerialConflict) || attempt == maxSerialAttempts {
			break
		}
		s.metrics.RecordSerialConflict()
		s.log.WithComponent("appointment_service").WithField("attempt", attempt).Warn("Serial number conflict, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAppointmentBooked()
	s.log.WithUserID(caller.UserID).WithFields(map[string]interface{}{
		"appointment_id": appointment.ID,
		"doctor_id":      appointment.DoctorID,
		"day":            appointment.AppointmentDay,
		"serial_number":  appointment.SerialNumber,
	}).Info("Appointment booked")
	return appointment, nil
}

// Get hides appointments the caller is not part of behind a not-found.
func (s *appointmentService) Get(ctx context.Context, caller models.Identity, id int64) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment == nil || !(caller.Is(models.RoleAdmin) || appointment.InvolvesUser(caller.UserID)) {
		return nil, models.NotFound("appointment")
	}
	return appointment, nil
}

// ListForDoctor returns one day's queue in serial order. Doctors see their
// own queue; admins must name the doctor.
func (s *appointmentService) ListForDoctor(ctx context.Context, caller models.Identity, doctorID int64, day string) ([]models.Appointment, error) {
	switch caller.Role {
	case models.RoleDoctor:
		if doctorID != 0 && doctorID != caller.UserID {
			return nil, models.ErrForbidden
		}
		doctorID = caller.UserID
	case models.RoleAdmin:
		if doctorID == 0 {
			return nil, models.FieldError("doctor_id", "cannot be blank")
		}
	default:
		return nil, models.ErrForbidden
	}
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return nil, models.FieldError("date", "must be a date in YYYY-MM-DD format")
	}
	return s.appointments.ListForDoctorOnDay(ctx, doctorID, day)
}

// ListForPatient returns the patient's history, latest first.
func (s *appointmentService) ListForPatient(ctx context.Context, caller models.Identity, patientID int64) ([]models.Appointment, error) {
	switch caller.Role {
	case models.RolePatient:
		if patientID != 0 && patientID != caller.UserID {
			return nil, models.ErrForbidden
		}
		patientID = caller.UserID
	case models.RoleAdmin:
		if patientID == 0 {
			return nil, models.FieldError("patient_id", "cannot be blank")
		}
	default:
		return nil, models.ErrForbidden
	}
	return s.appointments.ListForPatient(ctx, patientID)
}

// UpdateStatus overwrites the status. There is no transition table; any
// status may follow any other.
func (s *appointmentService) UpdateStatus(ctx context.Context, caller models.Identity, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	if !caller.Is(models.RoleDoctor, models.RoleAdmin) {
		return nil, models.ErrForbidden
	}
	current, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleDoctor && current.DoctorID != caller.UserID {
		return nil, models.NotFound("appointment")
	}
	return s.overwriteStatus(ctx, id, status)
}

// Cancel is open to either party and to admins.
func (s *appointmentService) Cancel(ctx context.Context, caller models.Identity, id int64) (*models.Appointment, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.overwriteStatus(ctx, id, models.AppointmentCancelled)
}

// AvailableSlots has no slot model behind it yet and always returns an
// empty list.
func (s *appointmentService) AvailableSlots(ctx context.Context, doctorID int64, day string) ([]time.Time, error) {
	if doctorID == 0 {
		return nil, models.FieldError("doctor_id", "cannot be blank")
	}
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return nil, models.FieldError("date", "must be a date in YYYY-MM-DD format")
	}
	return []time.Time{}, nil
}

func (s *appointmentService) overwriteStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	updated, err := s.appointments.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.NotFound("appointment")
	}
	return updated, nil
}

// requireRole loads a user and checks the role, 404 when missing.
func (s *appointmentService) requireRole(ctx context.Context, userID int64, role models.Role, entity string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NotFound(entity)
	}
	if user.Role != role {
		return models.FieldError(entity+"_id", "user is not a "+entity)
	}
	return nil
}
