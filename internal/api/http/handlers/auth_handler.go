package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// AuthHandler serves registration, login and password endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	directory *service.DirectoryService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, directory *service.DirectoryService) *AuthHandler {
	return &AuthHandler{auth: authService, directory: directory}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.directory.Register(c.Context(), service.RegisterInput{
		Username:   req.Username,
		Password:   req.Password,
		Department: req.Department,
		Phone:      req.Phone,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "registration received; awaiting approval", accountResponse(account))
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	account, token, expiresAt, err := h.auth.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "login successful", dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   accountResponse(account),
	})
}

// ChangePassword POST /auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.auth.ChangePassword(c.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "password updated", nil)
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return success(c, fiber.StatusOK, "ok", accountResponse(principal))
}
