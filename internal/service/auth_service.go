package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AuthService coordinates login and password flows.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, accounts repository.AccountRepository) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login authenticates an account and returns a role-bearing token.
// Pending and terminated accounts cannot log in.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	switch account.Status {
	case domain.AccountStatusPending:
		return nil, "", time.Time{}, apperrors.NewForbidden("account pending approval")
	case domain.AccountStatusTerminated:
		return nil, "", time.Time{}, apperrors.NewForbidden("account terminated")
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return account, token, exp, nil
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", nil)
		}
		return apperrors.NewUpstreamUnavailable(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return apperrors.NewUpstreamUnavailable(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
