package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/repositories/repotest"
	"mediconnect/services"
)

type reportFixture struct {
	*clinicFixture
	clock   time.Time
	svc     services.ReportService
	doctor  models.Identity
	patient models.Identity
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	f := &reportFixture{
		clinicFixture: newClinicFixture(t, time.UTC),
		clock:         time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = services.NewReportServiceWithClock(
		repotest.NewReports(),
		f.appointments,
		f.users,
		func() time.Time { return f.clock },
		logger.Discard(),
	)
	f.doctor = seedUser(t, f.users, "drsmith", models.RoleDoctor)
	f.patient = seedUser(t, f.users, "alice", models.RolePatient)
	return f
}

func (f *reportFixture) create(t *testing.T, in services.CreateReportInput) *models.MedicalReport {
	t.Helper()
	if in.PatientID == 0 {
		in.PatientID = f.patient.UserID
	}
	if in.Title == "" {
		in.Title = "Blood panel"
	}
	if in.FileURL == "" {
		in.FileURL = "https://files.example.com/r/1.pdf"
	}
	report, err := f.svc.Create(context.Background(), f.doctor, in)
	require.NoError(t, err)
	return report
}

func TestCreateReport(t *testing.T) {
	f := newReportFixture(t)

	report := f.create(t, services.CreateReportInput{Description: "Routine", FileType: "application/pdf", FileSize: 2048})

	assert.NotZero(t, report.ID)
	assert.Equal(t, f.doctor.UserID, report.DoctorID)
	assert.Equal(t, models.ReportSubmitted, report.Status)
	assert.Equal(t, f.clock, report.CreatedAt)
	assert.Nil(t, report.UpdatedAt)
	assert.Nil(t, report.AppointmentID)
}

func TestCreateReportRejects(t *testing.T) {
	f := newReportFixture(t)
	other := seedUser(t, f.users, "drjones", models.RoleDoctor)
	ctx := context.Background()
	valid := services.CreateReportInput{
		PatientID: f.patient.UserID,
		Title:     "X-ray",
		FileURL:   "https://files.example.com/x.png",
	}

	_, err := f.svc.Create(ctx, f.patient, valid)
	assert.ErrorIs(t, err, models.ErrForbidden)

	var vErr *models.ValidationError
	bad := valid
	bad.FileURL = "not a url"
	bad.FileSize = -1
	_, err = f.svc.Create(ctx, f.doctor, bad)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "file_url")
	assert.Contains(t, vErr.Fields, "file_size")

	notPatient := valid
	notPatient.PatientID = other.UserID
	_, err = f.svc.Create(ctx, f.doctor, notPatient)
	assert.ErrorAs(t, err, &vErr)

	// the appointment belongs to another doctor
	appointment := f.book(t, f.patient, other.UserID, at("2025-03-10", 9))
	linked := valid
	linked.AppointmentID = &appointment.ID
	_, err = f.svc.Create(ctx, f.doctor, linked)
	assert.ErrorAs(t, err, &vErr)

	missing := int64(404)
	linked.AppointmentID = &missing
	_, err = f.svc.Create(ctx, f.doctor, linked)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateDetails(t *testing.T) {
	f := newReportFixture(t)
	report := f.create(t, services.CreateReportInput{Title: "Original", Description: "First pass"})
	ctx := context.Background()

	f.clock = f.clock.Add(time.Hour)
	updated, err := f.svc.UpdateDetails(ctx, f.doctor, report.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, "First pass", updated.Description)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, f.clock, *updated.UpdatedAt)

	empty := ""
	f.clock = f.clock.Add(time.Hour)
	updated, err = f.svc.UpdateDetails(ctx, f.doctor, report.ID, "Revised", &empty)
	require.NoError(t, err)
	assert.Equal(t, "Revised", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, f.clock, *updated.UpdatedAt)

	stored, err := f.svc.Get(ctx, f.patient, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised", stored.Title)

	_, err = f.svc.UpdateDetails(ctx, f.patient, report.ID, "Mine now", nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestUpdateReportStatus(t *testing.T) {
	f := newReportFixture(t)
	report := f.create(t, services.CreateReportInput{})

	updated, err := f.svc.UpdateStatus(context.Background(), f.doctor, report.ID, models.ReportApproved)
	require.NoError(t, err)
	assert.Equal(t, models.ReportApproved, updated.Status)
	assert.Equal(t, f.clock, *updated.UpdatedAt)
}

func TestReportVisibility(t *testing.T) {
	f := newReportFixture(t)
	bob := seedUser(t, f.users, "bob", models.RolePatient)
	appointment := f.book(t, f.patient, f.doctor.UserID, at("2025-03-10", 9))
	ctx := context.Background()

	first := f.create(t, services.CreateReportInput{Title: "First", AppointmentID: &appointment.ID})
	f.clock = f.clock.Add(time.Minute)
	second := f.create(t, services.CreateReportInput{Title: "Second"})
	f.create(t, services.CreateReportInput{PatientID: bob.UserID, Title: "Bob's"})

	mine, err := f.svc.List(ctx, f.patient, services.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	forAppointment, err := f.svc.List(ctx, f.patient, services.ReportFilter{AppointmentID: appointment.ID})
	require.NoError(t, err)
	require.Len(t, forAppointment, 1)
	assert.Equal(t, first.ID, forAppointment[0].ID)

	byDoctor, err := f.svc.List(ctx, f.doctor, services.ReportFilter{PatientID: bob.UserID})
	require.NoError(t, err)
	assert.Len(t, byDoctor, 1)

	_, err = f.svc.Get(ctx, bob, first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.List(ctx, bob, services.ReportFilter{AppointmentID: appointment.ID})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.ListForDoctor(ctx, f.patient, f.doctor.UserID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
