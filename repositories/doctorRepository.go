package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mediconnect/cache"
	"mediconnect/logger"
	"mediconnect/models"
)

const (
	DoctorCacheExpiry       = 10 * time.Minute
	doctorDirectoryCacheKey = "doctors_cache"
)

// DoctorRepository reads the directory of users holding the DOCTOR role.
type DoctorRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type doctorRepository struct {
	db    *gorm.DB
	cache cache.Store
	log   *logger.Logger
}

func NewDoctorRepository(db *gorm.DB, store cache.Store, log *logger.Logger) DoctorRepository {
	return &doctorRepository{db: db, cache: store, log: log}
}

// List returns every doctor ordered by name. The result is cached and
// dropped whenever a doctor registers.
func (r *doctorRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if cached, err := r.cache.Get(ctx, doctorDirectoryCacheKey); err != nil {
		r.log.WithComponent("doctor_repository").WithError(err).Warn("Failed to get doctors from cache")
	} else if cached != "" {
		var doctors []models.User
		if err := json.Unmarshal([]byte(cached), &doctors); err == nil {
			return doctors, nil
		}
	}

	var doctors []models.User
	err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleDoctor).
		Order("name ASC").Order("id ASC").
		Find(&doctors).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctors")
	}

	if payload, err := json.Marshal(doctors); err == nil {
		if err := r.cache.Set(ctx, doctorDirectoryCacheKey, payload, DoctorCacheExpiry); err != nil {
			r.log.WithComponent("doctor_repository").WithError(err).Warn("Failed to set doctors in cache")
		}
	}
	return doctors, nil
}

func (r *doctorRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doctor models.User
	err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, models.RoleDoctor).First(&doctor).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get doctor")
	}
	return &doctor, nil
}
