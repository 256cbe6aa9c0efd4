package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// AuthService signs in the admin API operator.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
}

// NewAuthService builds the service. With no password hash configured every
// login fails.
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:       logger,
	}
}

// Login checks the admin credentials and issues a bearer token.
func (s *AuthService) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, errorutil.NewUnauthorized("admin login is disabled")
	}
	sameUser := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	err := auth.CheckAdminPassword(s.passwordHash, password)
	if err != nil && !errors.Is(err, auth.ErrPasswordMismatch) {
		s.logger.Error("admin password hash is unusable", zap.Error(err))
		return "", time.Time{}, errorutil.NewInternalError(err)
	}
	if err != nil || !sameUser {
		s.logger.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(s.username, auth.RoleAdmin)
	if err != nil {
		return "", time.Time{}, errorutil.NewInternalError(err)
	}
	return token, exp, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
