package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// DirectoryService manages the account directory: registration pending
// approval, activation, edits and deletion. The single SuperAdmin account
// is immutable through every path here.
type DirectoryService struct {
	accounts   repository.AccountRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewDirectoryService builds the service.
func NewDirectoryService(accounts repository.AccountRepository, cfg config.AuthConfig, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		accounts:   accounts,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// RegisterInput describes a self-service registration.
type RegisterInput struct {
	Username   string
	Password   string
	Department string
	Phone      string
}

// Register creates an account in the Pending state awaiting approval.
func (s *DirectoryService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Department:   strings.TrimSpace(input.Department),
		Phone:        input.Phone,
		Status:       domain.AccountStatusPending,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return account, nil
}

// Approve activates a pending account. Admin or SuperAdmin only.
func (s *DirectoryService) Approve(ctx context.Context, actor *domain.Account, accountID string) (*domain.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != domain.AccountStatusPending {
		return nil, apperrors.NewConflict("account not pending approval",
			map[string]any{"status": account.Status})
	}
	account.Status = domain.AccountStatusActive
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return account, nil
}

// AccountUpdateInput carries optional account edits.
type AccountUpdateInput struct {
	Role       *domain.AccountRole
	Department *string
	Phone      *string
	Status     *domain.AccountStatus
}

// UpdateAccount applies admin edits to an account. The SuperAdmin account
// rejects every mutation, and no edit may mint a second SuperAdmin.
func (s *DirectoryService) UpdateAccount(ctx context.Context, actor *domain.Account, accountID string, input AccountUpdateInput) (*domain.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Protected() {
		return nil, apperrors.NewForbidden("super admin account is immutable")
	}
	if input.Role != nil {
		if *input.Role == domain.RoleSuperAdmin {
			return nil, apperrors.NewForbidden("cannot promote to super admin")
		}
		account.Role = *input.Role
	}
	if input.Department != nil {
		account.Department = strings.TrimSpace(*input.Department)
	}
	if input.Phone != nil {
		account.Phone = *input.Phone
	}
	if input.Status != nil {
		account.Status = *input.Status
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return account, nil
}

// DeleteAccount removes an account; the SuperAdmin cannot be deleted.
func (s *DirectoryService) DeleteAccount(ctx context.Context, actor *domain.Account, accountID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Protected() {
		return apperrors.NewForbidden("super admin account cannot be deleted")
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return apperrors.NewUpstreamUnavailable(err)
	}
	return nil
}

// ListAccounts returns accounts matching the filter. Admin or SuperAdmin only.
func (s *DirectoryService) ListAccounts(ctx context.Context, actor *domain.Account, filter repository.AccountFilter) ([]domain.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return list, nil
}

// EnsureSuperAdmin creates the protected SuperAdmin account at boot when
// absent. Without a configured password the bootstrap is skipped.
func (s *DirectoryService) EnsureSuperAdmin(ctx context.Context, cfg config.AuthConfig) error {
	if cfg.SuperAdminPassword == "" {
		s.logger.Warn("AUTH_SUPERADMIN_PASSWORD not set; skipping super admin bootstrap")
		return nil
	}
	if _, err := s.accounts.GetByUsername(ctx, cfg.SuperAdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SuperAdminPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account := &domain.Account{
		Username:     cfg.SuperAdminUsername,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
		Phone:        cfg.SuperAdminPhone,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return err
	}
	s.logger.Info("super admin account created", zap.String("username", account.Username))
	return nil
}

func (s *DirectoryService) getAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"account_id": id})
		}
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	return account, nil
}

func requireAdmin(actor *domain.Account) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
