package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/parse"
	"visitor-system-backend/internal/store"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// ErrSetupDisabled is returned by SetupAdmin once it is no longer allowed.
var ErrSetupDisabled = fmt.Errorf("%w: admin setup is disabled", apperr.ErrForbidden)

// Config controls token issuance and admin bootstrap.
type Config struct {
	SecretKey       string
	Issuer          string
	TokenTTL        time.Duration
	AllowSetupAdmin bool
	BcryptCost      int
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Service authenticates admins.
type Service struct {
	admins store.AdminStore
	jwt    *JWTManager
	cfg    Config
	log    *zap.Logger
}

// NewService creates an auth service.
func NewService(admins store.AdminStore, cfg Config, log *zap.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		admins: admins,
		jwt:    NewJWTManager(cfg.SecretKey, cfg.Issuer, cfg.TokenTTL),
		cfg:    cfg,
		log:    logger.OrNop(log).Named("auth"),
	}
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return apperr.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if len(password) > maxPasswordLen {
		return apperr.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLen))
	}
	return nil
}

// Login checks the credentials and issues a bearer token. Unknown users and
// wrong passwords both fail with apperr.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	admin, err := s.admins.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("login failed", zap.String("admin", username), zap.String("reason", "unknown user"))
			return nil, apperr.ErrUnauthorized
		}
		return nil, fmt.Errorf("auth.Login get admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("login failed", zap.String("admin", username), zap.String("reason", "wrong password"))
		return nil, apperr.ErrUnauthorized
	}

	signed, err := s.jwt.GenerateAccessToken(ctxutil.Principal{AdminID: admin.ID, Username: admin.Username})
	if err != nil {
		return nil, fmt.Errorf("auth.Login issue token: %w", err)
	}

	s.log.Info("admin logged in", zap.String("admin", admin.Username))
	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwt.TTL().Seconds()),
	}, nil
}

// SetupAdmin creates the first admin. It is allowed only when enabled in the
// configuration and no admin exists yet.
func (s *Service) SetupAdmin(ctx context.Context, username, password string) (*model.Admin, error) {
	if !s.cfg.AllowSetupAdmin {
		return nil, ErrSetupDisabled
	}
	name, err := parse.Username(username)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	count, err := s.admins.CountAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSetupDisabled
	}

	admin, err := s.CreateAdmin(ctx, name, password)
	if err != nil {
		return nil, err
	}
	s.log.Info("initial admin created", zap.String("admin", admin.Username))
	return admin, nil
}

// CreateAdmin hashes the password and stores a new admin.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*model.Admin, error) {
	name, err := parse.Username(username)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth.CreateAdmin hash password: %w", err)
	}

	admin := &model.Admin{Username: name, PasswordHash: string(hash)}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Authenticate validates a bearer token and returns its principal.
func (s *Service) Authenticate(_ context.Context, token string) (ctxutil.Principal, error) {
	p, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return ctxutil.Principal{}, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return p, nil
}
