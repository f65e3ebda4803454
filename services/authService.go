package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mediconnect/cache"
	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/repositories"
	"mediconnect/utils"
)

const registrationLockTTL = 10 * time.Second

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// RegisterInput is a sign-up request. Role is matched case-insensitively.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken      string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *models.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ResolveIdentity(ctx context.Context, accessToken string) (models.Identity, error)
	GetProfile(ctx context.Context, caller models.Identity) (*models.User, error)
	ListUsers(ctx context.Context, caller models.Identity) ([]models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type authService struct {
	users      repositories.UserRepository
	locker     cache.Locker
	tokens     *utils.TokenService
	refresh    *utils.RefreshTokenService
	resetCodes *utils.ResetCodes
	mailer     Mailer
	log        *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users repositories.UserRepository,
	locker cache.Locker,
	tokens *utils.TokenService,
	refresh *utils.RefreshTokenService,
	resetCodes *utils.ResetCodes,
	mailer Mailer,
	log *logger.Logger,
) AuthService {
	return &authService{
		users:      users,
		locker:     locker,
		tokens:     tokens,
		refresh:    refresh,
		resetCodes: resetCodes,
		mailer:     mailer,
		log:        log,
	}
}

// Register validates the request and stores a new user with a hashed
// password. The email pre-check and lock only save work; the unique index
// decides duplicates.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := utils.ValidateRegistration(in.Name, in.Email, in.Password, in.Role); err != nil {
		return nil, models.NewValidationError(err)
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("user_lock:%s", strings.ToLower(strings.TrimSpace(in.Email)))
	release, err := s.locker.Acquire(ctx, lockKey, registrationLockTTL)
	if err != nil {
		s.log.WithComponent("auth_service").WithError(err).Warn("Registering without lock")
	} else {
		defer func() {
			if err := release(ctx); err != nil {
				s.log.WithComponent("auth_service").WithError(err).Warn("Failed to release lock")
			}
		}()
	}

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicateEmail
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithUserID(user.ID).WithField("role", user.Role).Info("User registered")
	return user, nil
}

// Login returns the same error for an unknown email and a wrong password.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// burn the same bcrypt time as a real comparison
		utils.CheckPassword(s.unknownUserHash(), password)
		s.log.Security("login_failed", map[string]interface{}{"reason": "unknown_email"})
		return nil, models.ErrInvalidCredentials
	}
	if !utils.CheckPassword(user.Password, password) {
		s.log.Security("login_failed", map[string]interface{}{"reason": "bad_password", "user_id": user.ID})
		return nil, models.ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

// Refresh exchanges a refresh token for a fresh pair.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.refresh.Subject(refreshToken)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}
	user, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrInvalidToken
	}
	return s.issueTokens(user)
}

// ResolveIdentity validates an access token against the user it names.
func (s *authService) ResolveIdentity(ctx context.Context, accessToken string) (models.Identity, error) {
	subject, err := s.tokens.Subject(accessToken)
	if err != nil {
		return models.Identity{}, utils.ErrInvalidToken
	}
	user, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		return models.Identity{}, err
	}
	if user == nil || !s.tokens.Validate(accessToken, user.Email) {
		return models.Identity{}, utils.ErrInvalidToken
	}
	return models.IdentityOf(user), nil
}

func (s *authService) GetProfile(ctx context.Context, caller models.Identity) (*models.User, error) {
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NotFound("user")
	}
	return user, nil
}

func (s *authService) ListUsers(ctx context.Context, caller models.Identity) ([]models.User, error) {
	if !caller.Is(models.RoleAdmin) {
		return nil, models.ErrForbidden
	}
	return s.users.List(ctx)
}

// RequestPasswordReset mails a code when the account exists. It reports
// success either way so callers cannot probe for accounts.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := utils.ValidateEmail(email); err != nil {
		return models.NewValidationError(err)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	code, err := s.resetCodes.Issue(ctx, user.Email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendResetCode(ctx, user.Email, code); err != nil {
		s.log.WithUserID(user.ID).WithError(err).Error("Failed to send reset code")
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := utils.ValidatePasswordReset(email, code, newPassword); err != nil {
		return models.NewValidationError(err)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.ErrInvalidResetCode
	}
	ok, err := s.resetCodes.Verify(ctx, user.Email, code)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Security("reset_code_rejected", map[string]interface{}{"user_id": user.ID})
		return models.ErrInvalidResetCode
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user, hashedPassword); err != nil {
		return err
	}
	if err := s.resetCodes.Consume(ctx, user.Email); err != nil {
		s.log.WithUserID(user.ID).WithError(err).Warn("Failed to delete used reset code")
	}
	return nil
}

func (s *authService) issueTokens(user *models.User) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt, err := s.refresh.Issue(user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		ExpiresAt:        expiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiresAt,
		User:             user,
	}, nil
}

func (s *authService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := utils.HashPassword("mediconnect-unknown-user")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
