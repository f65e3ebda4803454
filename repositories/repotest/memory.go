// Package repotest provides in-memory repositories and infrastructure fakes
// with the same observable behaviour as the PostgreSQL and Redis versions.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mediconnect/cache"
	"mediconnect/models"
	"mediconnect/repositories"
)

var (
	_ repositories.UserRepository        = (*Users)(nil)
	_ repositories.DoctorRepository      = (*Doctors)(nil)
	_ repositories.AppointmentRepository = (*Appointments)(nil)
	_ repositories.ReportRepository      = (*Reports)(nil)
	_ cache.Store                        = (*Store)(nil)
	_ cache.Locker                       = (*Locker)(nil)
)

// Users is an in-memory UserRepository with a unique email index.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.User
}

func NewUsers() *Users {
	return &Users{byID: map[int64]models.User{}}
}

func (u *Users) Create(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range u.byID {
		if existing.Email == user.Email {
			return models.ErrDuplicateEmail
		}
	}
	u.nextID++
	now := time.Now()
	user.ID = u.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	u.byID[user.ID] = *user
	return nil
}

func (u *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	user, err := u.GetByEmail(ctx, email)
	return user != nil, err
}

func (u *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, existing := range u.byID {
		if existing.Email == email {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (u *Users) GetByID(_ context.Context, id int64) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	existing, ok := u.byID[id]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

func (u *Users) List(_ context.Context) ([]models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	users := make([]models.User, 0, len(u.byID))
	for _, existing := range u.byID {
		users = append(users, existing)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (u *Users) UpdatePassword(_ context.Context, user *models.User, hashedPassword string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	existing, ok := u.byID[user.ID]
	if !ok {
		return models.NotFound("user")
	}
	existing.Password = hashedPassword
	existing.UpdatedAt = time.Now()
	u.byID[user.ID] = existing
	return nil
}

// Count is the number of stored users.
func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

// Doctors serves the doctor directory straight from a Users store.
type Doctors struct {
	users *Users
}

func NewDoctors(users *Users) *Doctors {
	return &Doctors{users: users}
}

func (d *Doctors) List(ctx context.Context) ([]models.User, error) {
	all, err := d.users.List(ctx)
	if err != nil {
		return nil, err
	}
	doctors := make([]models.User, 0, len(all))
	for _, u := range all {
		if u.Role == models.RoleDoctor {
			doctors = append(doctors, u)
		}
	}
	sort.SliceStable(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	return doctors, nil
}

func (d *Doctors) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil || u == nil || u.Role != models.RoleDoctor {
		return nil, err
	}
	return u, nil
}

// Appointments is an in-memory AppointmentRepository. Serial allocation
// happens under one mutex, matching the advisory lock in PostgreSQL.
type Appointments struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Appointment

	// ConflictsBeforeSuccess makes the next N creates fail with
	// ErrSerialConflict, to exercise retry paths.
	ConflictsBeforeSuccess int
}

func NewAppointments() *Appointments {
	return &Appointments{byID: map[int64]models.Appointment{}}
}

func (a *Appointments) CreateWithNextSerial(_ context.Context, appointment *models.Appointment) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ConflictsBeforeSuccess > 0 {
		a.ConflictsBeforeSuccess--
		return models.ErrSerialConflict
	}

	last := 0
	for _, existing := range a.byID {
		if existing.DoctorID == appointment.DoctorID && existing.AppointmentDay == appointment.AppointmentDay && existing.SerialNumber > last {
			last = existing.SerialNumber
		}
	}
	a.nextID++
	now := time.Now()
	appointment.ID = a.nextID
	appointment.SerialNumber = last + 1
	appointment.CreatedAt, appointment.UpdatedAt = now, now
	a.byID[appointment.ID] = *appointment
	return nil
}

func (a *Appointments) GetByID(_ context.Context, id int64) (*models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.byID[id]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

func (a *Appointments) ListForDoctorOnDay(_ context.Context, doctorID int64, day string) ([]models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []models.Appointment{}
	for _, existing := range a.byID {
		if existing.DoctorID == doctorID && existing.AppointmentDay == day {
			out = append(out, existing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func (a *Appointments) ListForPatient(_ context.Context, patientID int64) ([]models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []models.Appointment{}
	for _, existing := range a.byID {
		if existing.PatientID == patientID {
			out = append(out, existing)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out, nil
}

func (a *Appointments) UpdateStatus(_ context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.byID[id]
	if !ok {
		return nil, nil
	}
	existing.Status = status
	existing.UpdatedAt = time.Now()
	a.byID[id] = existing
	return &existing, nil
}

// Reports is an in-memory ReportRepository.
type Reports struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.MedicalReport
}

func NewReports() *Reports {
	return &Reports{byID: map[int64]models.MedicalReport{}}
}

func (r *Reports) Create(_ context.Context, report *models.MedicalReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	report.ID = r.nextID
	r.byID[report.ID] = *report
	return nil
}

func (r *Reports) GetByID(_ context.Context, id int64) (*models.MedicalReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

func (r *Reports) ListForPatient(_ context.Context, patientID int64) ([]models.MedicalReport, error) {
	return r.filter(func(m models.MedicalReport) bool { return m.PatientID == patientID }), nil
}

func (r *Reports) ListForDoctor(_ context.Context, doctorID int64) ([]models.MedicalReport, error) {
	return r.filter(func(m models.MedicalReport) bool { return m.DoctorID == doctorID }), nil
}

func (r *Reports) ListForAppointment(_ context.Context, appointmentID int64) ([]models.MedicalReport, error) {
	return r.filter(func(m models.MedicalReport) bool {
		return m.AppointmentID != nil && *m.AppointmentID == appointmentID
	}), nil
}

func (r *Reports) Update(_ context.Context, report *models.MedicalReport, columns ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[report.ID]
	if !ok {
		return models.NotFound("medical report")
	}
	for _, column := range columns {
		switch column {
		case "title":
			existing.Title = report.Title
		case "description":
			existing.Description = report.Description
		case "status":
			existing.Status = report.Status
		case "updated_at":
			existing.UpdatedAt = report.UpdatedAt
		default:
			return fmt.Errorf("repotest: unsupported report column %q", column)
		}
	}
	r.byID[report.ID] = existing
	return nil
}

func (r *Reports) filter(keep func(models.MedicalReport) bool) []models.MedicalReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.MedicalReport{}
	for _, existing := range r.byID {
		if keep(existing) {
			out = append(out, existing)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
