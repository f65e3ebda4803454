package services

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/monitoring"
	"mediconnect/repositories"
)

// CreateReportInput describes a report whose file already sits in external
// storage. DoctorID may be left zero when a doctor files their own report.
type CreateReportInput struct {
	PatientID     int64
	DoctorID      int64
	AppointmentID *int64
	Title         string
	Description   string
	FileURL       string
	FileType      string
	FileSize      int64
}

// ReportFilter selects which list GET /reports returns.
type ReportFilter struct {
	PatientID     int64
	DoctorID      int64
	AppointmentID int64
}

type ReportService interface {
	Create(ctx context.Context, caller models.Identity, in CreateReportInput) (*models.MedicalReport, error)
	Get(ctx context.Context, caller models.Identity, id int64) (*models.MedicalReport, error)
	List(ctx context.Context, caller models.Identity, filter ReportFilter) ([]models.MedicalReport, error)
	ListForPatient(ctx context.Context, caller models.Identity, patientID int64) ([]models.MedicalReport, error)
	ListForDoctor(ctx context.Context, caller models.Identity, doctorID int64) ([]models.MedicalReport, error)
	ListForAppointment(ctx context.Context, caller models.Identity, appointmentID int64) ([]models.MedicalReport, error)
	UpdateStatus(ctx context.Context, caller models.Identity, id int64, status models.ReportStatus) (*models.MedicalReport, error)
	UpdateDetails(ctx context.Context, caller models.Identity, id int64, title string, description *string) (*models.MedicalReport, error)
}

type reportService struct {
	reports      repositories.ReportRepository
	appointments repositories.AppointmentRepository
	users        repositories.UserRepository
	now          func() time.Time
	metrics      *monitoring.Metrics
	log          *logger.Logger
}

func NewReportService(
	reports repositories.ReportRepository,
	appointments repositories.AppointmentRepository,
	users repositories.UserRepository,
	metrics *monitoring.Metrics,
	log *logger.Logger,
) ReportService {
	return &reportService{
		reports:      reports,
		appointments: appointments,
		users:        users,
		now:          time.Now,
		metrics:      metrics,
		log:          log,
	}
}

// NewReportServiceWithClock is NewReportService with a fixed time source.
func NewReportServiceWithClock(
	reports repositories.ReportRepository,
	appointments repositories.AppointmentRepository,
	users repositories.UserRepository,
	now func() time.Time,
	log *logger.Logger,
) ReportService {
	svc := NewReportService(reports, appointments, users, nil, log).(*reportService)
	svc.now = now
	return svc
}

// Create records a SUBMITTED report. Only the authoring doctor or an admin
// may file it, and a linked appointment must be between the same patient
// and doctor.
func (s *reportService) Create(ctx context.Context, caller models.Identity, in CreateReportInput) (*models.MedicalReport, error) {
	switch caller.Role {
	case models.RoleDoctor:
		if in.DoctorID != 0 && in.DoctorID != caller.UserID {
			return nil, models.ErrForbidden
		}
		in.DoctorID = caller.UserID
	case models.RoleAdmin:
	default:
		return nil, models.ErrForbidden
	}

	err := validation.Errors{
		"patient_id":  validation.Validate(in.PatientID, validation.Required),
		"doctor_id":   validation.Validate(in.DoctorID, validation.Required),
		"title":       validation.Validate(in.Title, validation.Required, validation.RuneLength(1, 255)),
		"description": validation.Validate(in.Description, validation.RuneLength(0, 1000)),
		"file_url":    validation.Validate(in.FileURL, validation.Required, is.URL, validation.Length(1, 2048)),
		"file_type":   validation.Validate(in.FileType, validation.Length(0, 100)),
		"file_size":   validation.Validate(in.FileSize, validation.Min(int64(0))),
	}.Filter()
	if err != nil {
		return nil, models.NewValidationError(err)
	}

	if err := s.requireRole(ctx, in.PatientID, models.RolePatient, "patient"); err != nil {
		return nil, err
	}
	if caller.Role == models.RoleAdmin {
		if err := s.requireRole(ctx, in.DoctorID, models.RoleDoctor, "doctor"); err != nil {
			return nil, err
		}
	}
	if in.AppointmentID != nil {
		appointment, err := s.appointments.GetByID(ctx, *in.AppointmentID)
		if err != nil {
			return nil, err
		}
		if appointment == nil {
			return nil, models.NotFound("appointment")
		}
		if appointment.PatientID != in.PatientID || appointment.DoctorID != in.DoctorID {
			return nil, models.FieldError("appointment_id", "appointment is not between this patient and doctor")
		}
	}

	report := &models.MedicalReport{
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		AppointmentID: in.AppointmentID,
		Title:         in.Title,
		Description:   in.Description,
		FileURL:       in.FileURL,
		FileType:      in.FileType,
		FileSize:      in.FileSize,
		Status:        models.ReportSubmitted,
		CreatedAt:     s.now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.metrics.RecordReportCreated()
	s.log.WithUserID(caller.UserID).WithField("report_id", report.ID).Info("Medical report created")
	return report, nil
}

func (s *reportService) Get(ctx context.Context, caller models.Identity, id int64) (*models.MedicalReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil || !(caller.Is(models.RoleAdmin) || report.InvolvesUser(caller.UserID)) {
		return nil, models.NotFound("medical report")
	}
	return report, nil
}

// List picks the narrowest list the filter and the caller's role allow.
func (s *reportService) List(ctx context.Context, caller models.Identity, filter ReportFilter) ([]models.MedicalReport, error) {
	if filter.AppointmentID != 0 {
		return s.ListForAppointment(ctx, caller, filter.AppointmentID)
	}
	switch caller.Role {
	case models.RolePatient:
		return s.ListForPatient(ctx, caller, filter.PatientID)
	case models.RoleDoctor:
		reports, err := s.ListForDoctor(ctx, caller, filter.DoctorID)
		if err != nil || filter.PatientID == 0 {
			return reports, err
		}
		out := []models.MedicalReport{}
		for _, r := range reports {
			if r.PatientID == filter.PatientID {
				out = append(out, r)
			}
		}
		return out, nil
	case models.RoleAdmin:
		switch {
		case filter.PatientID != 0:
			return s.ListForPatient(ctx, caller, filter.PatientID)
		case filter.DoctorID != 0:
			return s.ListForDoctor(ctx, caller, filter.DoctorID)
		}
		return nil, models.FieldError("patient_id", "patient_id, doctor_id or appointment_id is required")
	}
	return nil, models.ErrForbidden
}

func (s *reportService) ListForPatient(ctx context.Context, caller models.Identity, patientID int64) ([]models.MedicalReport, error) {
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
	return s.reports.ListForPatient(ctx, patientID)
}

func (s *reportService) ListForDoctor(ctx context.Context, caller models.Identity, doctorID int64) ([]models.MedicalReport, error) {
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
	return s.reports.ListForDoctor(ctx, doctorID)
}

// ListForAppointment is open to both parties of the appointment.
func (s *reportService) ListForAppointment(ctx context.Context, caller models.Identity, appointmentID int64) ([]models.MedicalReport, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil || !(caller.Is(models.RoleAdmin) || appointment.InvolvesUser(caller.UserID)) {
		return nil, models.NotFound("appointment")
	}
	return s.reports.ListForAppointment(ctx, appointmentID)
}

// UpdateStatus overwrites the status and stamps the update time.
func (s *reportService) UpdateStatus(ctx context.Context, caller models.Identity, id int64, status models.ReportStatus) (*models.MedicalReport, error) {
	report, err := s.editable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	report.Status = status
	return s.save(ctx, report, "status")
}

// UpdateDetails replaces the title only when a non-empty one is given and
// the description whenever one is given, even if empty. The update time is
// stamped even when nothing changed.
func (s *reportService) UpdateDetails(ctx context.Context, caller models.Identity, id int64, title string, description *string) (*models.MedicalReport, error) {
	err := validation.Errors{
		"title":       validation.Validate(title, validation.RuneLength(0, 255)),
		"description": validation.Validate(description, validation.RuneLength(0, 1000)),
	}.Filter()
	if err != nil {
		return nil, models.NewValidationError(err)
	}

	report, err := s.editable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	var columns []string
	if title != "" {
		report.Title = title
		columns = append(columns, "title")
	}
	if description != nil {
		report.Description = *description
		columns = append(columns, "description")
	}
	return s.save(ctx, report, columns...)
}

// editable loads a report the caller may change: its author or an admin.
func (s *reportService) editable(ctx context.Context, caller models.Identity, id int64) (*models.MedicalReport, error) {
	report, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(models.RoleAdmin) && report.DoctorID != caller.UserID {
		return nil, models.ErrForbidden
	}
	return report, nil
}

// save writes the changed columns and always stamps updated_at.
func (s *reportService) save(ctx context.Context, report *models.MedicalReport, columns ...string) (*models.MedicalReport, error) {
	now := s.now()
	report.UpdatedAt = &now
	if err := s.reports.Update(ctx, report, append(columns, "updated_at")...); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reportService) requireRole(ctx context.Context, userID int64, role models.Role, entity string) error {
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
