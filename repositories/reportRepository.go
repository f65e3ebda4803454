package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mediconnect/models"
)

// ReportRepository persists medical report metadata. Lists are ordered by
// creation time, newest first.
type ReportRepository interface {
	Create(ctx context.Context, report *models.MedicalReport) error
	GetByID(ctx context.Context, id int64) (*models.MedicalReport, error)
	ListForPatient(ctx context.Context, patientID int64) ([]models.MedicalReport, error)
	ListForDoctor(ctx context.Context, doctorID int64) ([]models.MedicalReport, error)
	ListForAppointment(ctx context.Context, appointmentID int64) ([]models.MedicalReport, error)
	// Update writes only the named columns, so concurrent edits of other
	// columns survive.
	Update(ctx context.Context, report *models.MedicalReport, columns ...string) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.MedicalReport) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return errors.Wrap(err, "failed to create medical report")
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*models.MedicalReport, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var report models.MedicalReport
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get medical report")
	}
	return &report, nil
}

func (r *reportRepository) ListForPatient(ctx context.Context, patientID int64) ([]models.MedicalReport, error) {
	return r.list(ctx, "patient_id = ?", patientID)
}

func (r *reportRepository) ListForDoctor(ctx context.Context, doctorID int64) ([]models.MedicalReport, error) {
	return r.list(ctx, "doctor_id = ?", doctorID)
}

func (r *reportRepository) ListForAppointment(ctx context.Context, appointmentID int64) ([]models.MedicalReport, error) {
	return r.list(ctx, "appointment_id = ?", appointmentID)
}

func (r *reportRepository) list(ctx context.Context, query string, arg int64) ([]models.MedicalReport, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var reports []models.MedicalReport
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").Order("id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list medical reports")
	}
	return reports, nil
}

func (r *reportRepository) Update(ctx context.Context, report *models.MedicalReport, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(report).Select(columns).Updates(report)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update medical report")
	}
	if result.RowsAffected == 0 {
		return models.NotFound("medical report")
	}
	return nil
}
