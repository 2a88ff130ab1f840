package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and loads the account principal.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.Context(), claims.AccountID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return apperrors.NewForbidden("account not active")
	}

	c.Locals(principalKey, account)
	return c.Next()
}

// AccountFromContext retrieves the authenticated account.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
