package repositories_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/repositories"
	"mediconnect/repositories/repotest"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "name", "email", "password", "role", "created_at", "updated_at"}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewUserRepository(db, repotest.NewStore(), logger.Discard())

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.User{
		Name: "Alice", Email: "alice@x.com", Password: "hash", Role: models.RolePatient,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailCachesHit(t *testing.T) {
	db, mock := newMockDB(t)
	store := repotest.NewStore()
	repo := repositories.NewUserRepository(db, store, logger.Discard())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@x.com", "$2a$10$hash", "PATIENT", now, now))

	first, err := repo.GetByEmail(context.Background(), "Alice@X.com")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.ID)

	// second lookup is served from the cache and keeps the hash
	second, err := repo.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "$2a$10$hash", second.Password)
	assert.Equal(t, models.RolePatient, second.Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDoctorInvalidatesCaches(t *testing.T) {
	db, mock := newMockDB(t)
	store := repotest.NewStore()
	repo := repositories.NewUserRepository(db, store, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user_cache:carol@x.com", "stale", time.Hour))
	require.NoError(t, store.Set(ctx, "doctors_cache", "[]", time.Hour))
	require.NoError(t, store.Set(ctx, "user_cache:alice@x.com", "kept", time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	err := repo.Create(ctx, &models.User{
		Name: "Carol", Email: "Carol@X.com", Password: "hash", Role: models.RoleDoctor,
	})
	require.NoError(t, err)

	for _, key := range []string{"user_cache:carol@x.com", "doctors_cache"} {
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, got, key)
	}
	got, err := store.Get(ctx, "user_cache:alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePasswordKeepsDoctorDirectoryForPatients(t *testing.T) {
	db, mock := newMockDB(t)
	store := repotest.NewStore()
	repo := repositories.NewUserRepository(db, store, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user_cache:alice@x.com", "stale", time.Hour))
	require.NoError(t, store.Set(ctx, "doctors_cache", "[]", time.Hour))

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePassword(ctx, &models.User{ID: 1, Email: "alice@x.com", Role: models.RolePatient}, "newhash")
	require.NoError(t, err)

	got, err := store.Get(ctx, "user_cache:alice@x.com")
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = store.Get(ctx, "doctors_cache")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailMissing(t *testing.T) {
	db, mock := newMockDB(t)
	store := repotest.NewStore()
	repo := repositories.NewUserRepository(db, store, logger.Discard())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.GetByEmail(context.Background(), "ghost@x.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newAppointment() *models.Appointment {
	scheduled := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return &models.Appointment{
		PatientID:      1,
		DoctorID:       2,
		ScheduledAt:    scheduled,
		AppointmentDay: models.DayOf(scheduled, time.UTC),
		Status:         models.AppointmentScheduled,
	}
}

func TestAppointmentRepository_CreateWithNextSerial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(serial_number), 0) FROM "appointments" WHERE doctor_id = $1 AND appointment_day = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "appointments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	appt := newAppointment()
	require.NoError(t, repo.CreateWithNextSerial(context.Background(), appt))

	assert.Equal(t, 3, appt.SerialNumber)
	assert.Equal(t, int64(11), appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_CreateFirstOfDay(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(serial_number\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	appt := newAppointment()
	require.NoError(t, repo.CreateWithNextSerial(context.Background(), appt))
	assert.Equal(t, 1, appt.SerialNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_CreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(serial_number\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectQuery(`INSERT INTO "appointments"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_doctor_day_serial"})
	mock.ExpectRollback()

	appt := newAppointment()
	err := repo.CreateWithNextSerial(context.Background(), appt)
	assert.ErrorIs(t, err, models.ErrSerialConflict)
	assert.Zero(t, appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_UpdateStatusMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appointments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	appt, err := repo.UpdateStatus(context.Background(), 99, models.AppointmentCancelled)
	require.NoError(t, err)
	assert.Nil(t, appt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ListForPatientNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewReportRepository(db)
	now := time.Now()

	cols := []string{"id", "patient_id", "doctor_id", "appointment_id", "title", "description",
		"file_url", "file_type", "file_size", "status", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "medical_reports" WHERE patient_id = $1 ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, 1, 5, nil, "X-ray", "", "https://files/2.png", "image/png", 2048, "SUBMITTED", now, nil).
			AddRow(1, 1, 5, 7, "Blood test", "normal", "https://files/1.pdf", "application/pdf", 1024, "APPROVED", now.Add(-time.Hour), now))

	reports, err := repo.ListForPatient(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(2), reports[0].ID)
	assert.Nil(t, reports[0].AppointmentID)
	assert.Nil(t, reports[0].UpdatedAt)
	require.NotNil(t, reports[1].AppointmentID)
	assert.Equal(t, int64(7), *reports[1].AppointmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_UpdateWritesOnlyNamedColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewReportRepository(db)
	stamped := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	report := &models.MedicalReport{
		ID: 4, PatientID: 1, DoctorID: 5, Title: "X-ray", Description: "",
		FileURL: "https://files/4.png", Status: models.ReportApproved, UpdatedAt: &stamped,
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "medical_reports" SET "status"=$1,"updated_at"=$2 WHERE`)).
		WithArgs("APPROVED", stamped, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), report, "status", "updated_at"))

	// an empty description is written when it is named
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "medical_reports" SET "description"=$1,"updated_at"=$2 WHERE`)).
		WithArgs("", stamped, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), report, "description", "updated_at"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_UpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "medical_reports" SET "status"=$1 WHERE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.MedicalReport{ID: 99, Status: models.ReportRejected}, "status")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReports_InterleavedUpdatesKeepBothChanges(t *testing.T) {
	reports := repotest.NewReports()
	ctx := context.Background()
	original := &models.MedicalReport{
		PatientID: 1, DoctorID: 5, Title: "Blood test", FileURL: "https://files/1.pdf",
		Status: models.ReportSubmitted, CreatedAt: time.Now(),
	}
	require.NoError(t, reports.Create(ctx, original))

	// two editors load the same version
	first, err := reports.GetByID(ctx, original.ID)
	require.NoError(t, err)
	second, err := reports.GetByID(ctx, original.ID)
	require.NoError(t, err)

	first.Status = models.ReportReviewed
	require.NoError(t, reports.Update(ctx, first, "status"))
	second.Title = "Blood panel"
	require.NoError(t, reports.Update(ctx, second, "title"))

	got, err := reports.GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportReviewed, got.Status)
	assert.Equal(t, "Blood panel", got.Title)
}

func TestDoctorRepository_ListUsesCache(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repositories.NewDoctorRepository(db, repotest.NewStore(), logger.Discard())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE role = $1 ORDER BY name ASC`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "Bob", "bob@x.com", "hash", "DOCTOR", now, now))

	for i := 0; i < 2; i++ {
		doctors, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, doctors, 1)
		assert.Equal(t, "bob@x.com", doctors[0].Email)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
