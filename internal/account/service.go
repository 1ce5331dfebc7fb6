package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"licensedesk/internal/apperr"
	"licensedesk/internal/auth"
	"licensedesk/internal/config"
	"licensedesk/internal/models"
)

const signupTimeLayout = "2006-01-02 15:04:05"

var (
	ErrEmailTaken      = apperr.New(apperr.CodeConflict, "Email already exists!")
	ErrUserNotFound    = apperr.New(apperr.CodeNotFound, "User not found")
	ErrInvalidPassword = apperr.New(apperr.CodeUnauthorized, "Invalid password")
)

// Service handles account signup, login and session revocation. Each query
// runs under its own statement timeout.
type Service struct {
	db      *gorm.DB
	jwt     config.JWTConfig
	timeout time.Duration
	now     func() time.Time
}

func NewService(db *gorm.DB, jwtCfg config.JWTConfig, timeout time.Duration) *Service {
	return &Service{db: db, jwt: jwtCfg, timeout: timeout, now: time.Now}
}

func (s *Service) query(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return s.db.WithContext(ctx), cancel
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

type SignupInput struct {
	Name     string
	Mobile   string
	Email    string
	Password string
	Amount   string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return models.User{}, apperr.New(apperr.CodeValidation, "name, email and password required")
	}

	var count int64
	tx, cancel := s.query(ctx)
	err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	cancel()
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.CodeStoreUnavailable, err, "lookup user")
	}
	if count > 0 {
		return models.User{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return models.User{}, apperr.Wrap(apperr.CodeValidation, err, "password too long")
		}
		return models.User{}, apperr.Wrap(apperr.CodeInternal, err, "hash password")
	}
	now := s.now()
	u := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Mobile:       strings.TrimSpace(in.Mobile),
		Email:        email,
		PasswordHash: hash,
		Amount:       strings.TrimSpace(in.Amount),
		SignupTime:   now.Format(signupTimeLayout),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, cancel = s.query(ctx)
	defer cancel()
	if err := tx.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, apperr.Wrap(apperr.CodeStoreUnavailable, err, "create user")
	}
	return u, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Login verifies the password and opens a session backing the issued token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, apperr.New(apperr.CodeValidation, "Email and password required")
	}

	var u models.User
	tx, cancel := s.query(ctx)
	err := tx.First(&u, "email = ?", email).Error
	cancel()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LoginResult{}, ErrUserNotFound
	}
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.CodeStoreUnavailable, err, "lookup user")
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidPassword
	}

	now := s.now()
	tok, jti, exp, err := auth.Sign(s.jwt, u.ID, now)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.CodeInternal, err, "sign token")
	}
	sess := models.Session{JTI: jti, UserID: u.ID, ExpiresAt: exp, CreatedAt: now}
	tx, cancel = s.query(ctx)
	defer cancel()
	if err := tx.Create(&sess).Error; err != nil {
		return LoginResult{}, apperr.Wrap(apperr.CodeStoreUnavailable, err, "create session")
	}
	return LoginResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

// Logout revokes the session; revoking twice is harmless.
func (s *Service) Logout(ctx context.Context, jti string) error {
	now := s.now()
	tx, cancel := s.query(ctx)
	defer cancel()
	err := tx.Model(&models.Session{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", now).Error
	if err != nil {
		return apperr.Wrap(apperr.CodeStoreUnavailable, err, "revoke session")
	}
	return nil
}

func (s *Service) Me(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	tx, cancel := s.query(ctx)
	defer cancel()
	err := tx.First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.CodeStoreUnavailable, err, "lookup user")
	}
	return u, nil
}
