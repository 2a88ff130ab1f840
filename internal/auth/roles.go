package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// RequireRole ensures the authenticated account has one of the allowed roles.
func RequireRole(allowed ...domain.AccountRole) fiber.Handler {
	allowedSet := make(map[domain.AccountRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[account.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits Manager, Admin and SuperAdmin accounts.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleManager, domain.RoleAdmin, domain.RoleSuperAdmin)
}

// RequireAdmin admits Admin and SuperAdmin accounts.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)
}
