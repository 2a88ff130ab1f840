package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AccountsHandler serves the admin account directory endpoints.
type AccountsHandler struct {
	directory *service.DirectoryService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(directory *service.DirectoryService) *AccountsHandler {
	return &AccountsHandler{directory: directory}
}

// List GET /accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	accounts, err := h.directory.ListAccounts(c.Context(), principal, parseAccountQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, accountResponse(&accounts[i]))
	}
	return success(c, fiber.StatusOK, "ok", items)
}

// Approve POST /accounts/:id/approve.
func (h *AccountsHandler) Approve(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	account, err := h.directory.Approve(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "account approved", accountResponse(account))
}

// Update PATCH /accounts/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.directory.UpdateAccount(c.Context(), principal, c.Params("id"), service.AccountUpdateInput{
		Role:       req.Role,
		Department: req.Department,
		Phone:      req.Phone,
		Status:     req.Status,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "account updated", accountResponse(account))
}

// Delete DELETE /accounts/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.directory.DeleteAccount(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "account deleted", nil)
}

func parseAccountQuery(c *fiber.Ctx) repository.AccountFilter {
	filter := repository.AccountFilter{Limit: 50}

	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := domain.AccountRole(strings.ToUpper(raw))
		filter.Role = &role
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.AccountStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	if department := strings.TrimSpace(c.Query("department")); department != "" {
		filter.Department = &department
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			filter.Limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			filter.Offset = v
		}
	}
	return filter
}
