package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mediconnect/cache"
	"mediconnect/logger"
	"mediconnect/models"
)

const (
	UserCacheExpiry = 7 * 24 * time.Hour
)

// UserRepository is the credential store. Lookups return (nil, nil) when
// no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, user *models.User, hashedPassword string) error
}

// cachedUser keeps the password hash that models.User hides from JSON.
type cachedUser struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

type userRepository struct {
	db    *gorm.DB
	cache cache.Store
	log   *logger.Logger
}

func NewUserRepository(db *gorm.DB, store cache.Store, log *logger.Logger) UserRepository {
	return &userRepository{db: db, cache: store, log: log}
}

// Create inserts the user. The unique index on email is the final word on
// duplicates, whatever the caller checked beforehand.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return errors.Wrap(err, "failed to create user")
	}

	r.forget(ctx, user)
	return nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check email existence")
	}
	return count > 0, nil
}

// GetByEmail reads through the cache; only hits are cached.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	email = normalizeEmail(email)
	cacheKey := r.getUserCacheKey(email)
	if cached, err := r.cache.Get(ctx, cacheKey); err != nil {
		r.log.WithComponent("user_repository").WithError(err).Warn("Failed to get user from cache")
	} else if cached != "" {
		var entry cachedUser
		if err := json.Unmarshal([]byte(cached), &entry); err == nil {
			user := entry.User
			user.Password = entry.PasswordHash
			return &user, nil
		}
	}

	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user by email")
	}

	payload, err := json.Marshal(cachedUser{User: user, PasswordHash: user.Password})
	if err == nil {
		if err := r.cache.Set(ctx, cacheKey, payload, UserCacheExpiry); err != nil {
			r.log.WithComponent("user_repository").WithError(err).Warn("Failed to set user in cache")
		}
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user by id")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	return users, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, user *models.User, hashedPassword string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password":   hashedPassword,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update password")
	}
	if result.RowsAffected == 0 {
		return models.NotFound("user")
	}
	r.forget(ctx, user)
	return nil
}

// forget drops the cached user, and the doctor directory when the user is
// a doctor, in one round trip.
func (r *userRepository) forget(ctx context.Context, user *models.User) {
	keys := []string{r.getUserCacheKey(normalizeEmail(user.Email))}
	if user.Role == models.RoleDoctor {
		keys = append(keys, doctorDirectoryCacheKey)
	}
	if err := r.cache.DeleteBatch(ctx, keys...); err != nil {
		r.log.WithComponent("user_repository").WithError(err).Warn("Failed to delete user cache")
	}
}

func (r *userRepository) getUserCacheKey(email string) string {
	return fmt.Sprintf("user_cache:%s", email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
