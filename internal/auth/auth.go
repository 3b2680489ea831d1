// Package auth is the admin authentication guard in front of the
// mutating HTTP API (§6 GET /auth/status, POST /auth/login/logout/
// change-password): a single operator password, bcrypt-hashed and
// persisted via repo.AuthRepo, with session tokens issued as signed
// JWTs and a cooldown after repeated failed logins.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhstock/dsa/internal/db/repo"
)

const (
	keyPasswordHash   = "password_hash"
	keyFailedAttempts = "failed_attempts"
	keyCooldownUntil  = "cooldown_until"

	// MaxFailedAttempts before a cooldown kicks in.
	MaxFailedAttempts = 5
	// CooldownDuration is how long login is refused after
	// MaxFailedAttempts consecutive failures.
	CooldownDuration = 5 * time.Minute
	// TokenTTL is how long an issued session token remains valid.
	TokenTTL = 12 * time.Hour
)

var (
	ErrNotConfigured      = errors.New("auth: no admin password configured")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTooManyAttempts    = errors.New("auth: too many failed attempts, try again later")
)

// Service guards the admin-only endpoints.
type Service struct {
	repo      *repo.AuthRepo
	jwtSecret []byte
	log       zerolog.Logger
	now       func() time.Time
}

// NewService builds a Service. jwtSecret signs session tokens; an
// empty secret is only acceptable when ADMIN_AUTH_ENABLED is false.
func NewService(r *repo.AuthRepo, jwtSecret string, log zerolog.Logger) *Service {
	return &Service{
		repo:      r,
		jwtSecret: []byte(jwtSecret),
		log:       log.With().Str("component", "auth").Logger(),
		now:       time.Now,
	}
}

// Configured reports whether an admin password has been set.
func (s *Service) Configured(ctx context.Context) (bool, error) {
	_, ok, err := s.repo.Get(ctx, keyPasswordHash)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// SetPassword hashes and stores password, overwriting any existing
// one. Used both for first-time setup and by ChangePassword.
func (s *Service) SetPassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.Set(ctx, keyPasswordHash, string(hash)); err != nil {
		return err
	}
	return s.resetFailedAttempts(ctx)
}

// Login verifies password against the stored hash, honoring the
// failed-attempt cooldown, and returns a signed session token.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	if locked, err := s.cooldownActive(ctx); err != nil {
		return "", err
	} else if locked {
		return "", ErrTooManyAttempts
	}

	hash, ok, err := s.repo.Get(ctx, keyPasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if ferr := s.recordFailedAttempt(ctx); ferr != nil {
			s.log.Warn().Err(ferr).Msg("failed to persist failed login attempt")
		}
		return "", ErrInvalidCredentials
	}

	if err := s.resetFailedAttempts(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login attempt counter")
	}
	return s.issueToken()
}

// ChangePassword requires the current password before rotating it.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	hash, ok, err := s.repo.Get(ctx, keyPasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	return s.SetPassword(ctx, newPassword)
}

// ValidateToken reports whether tokenString is a currently valid
// session token signed by this service.
func (s *Service) ValidateToken(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	return err == nil && token.Valid
}

func (s *Service) issueToken() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Service) cooldownActive(ctx context.Context) (bool, error) {
	v, ok, err := s.repo.Get(ctx, keyCooldownUntil)
	if err != nil || !ok {
		return false, err
	}
	unixSec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, nil
	}
	return s.now().Before(time.Unix(unixSec, 0)), nil
}

func (s *Service) recordFailedAttempt(ctx context.Context) error {
	v, ok, err := s.repo.Get(ctx, keyFailedAttempts)
	if err != nil {
		return err
	}
	count := 0
	if ok {
		count, _ = strconv.Atoi(v)
	}
	count++
	if err := s.repo.Set(ctx, keyFailedAttempts, strconv.Itoa(count)); err != nil {
		return err
	}
	if count >= MaxFailedAttempts {
		until := s.now().Add(CooldownDuration).Unix()
		return s.repo.Set(ctx, keyCooldownUntil, strconv.FormatInt(until, 10))
	}
	return nil
}

func (s *Service) resetFailedAttempts(ctx context.Context) error {
	if err := s.repo.Set(ctx, keyFailedAttempts, "0"); err != nil {
		return err
	}
	return s.repo.Set(ctx, keyCooldownUntil, "0")
}
