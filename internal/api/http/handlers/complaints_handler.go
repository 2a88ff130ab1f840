package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ComplaintsHandler serves the complaint lifecycle endpoints.
type ComplaintsHandler struct {
	lifecycle *service.LifecycleService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(lifecycle *service.LifecycleService) *ComplaintsHandler {
	return &ComplaintsHandler{lifecycle: lifecycle}
}

// Create POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.CreateComplaint(c.Context(), principal, service.ComplaintCreateInput{
		Department:  req.Department,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, "complaint registered", complaintSummary(complaint))
}

// List GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseComplaintQuery(c)
	// Plain users only ever see their own complaints.
	if principal.Role == domain.RoleUser {
		reporter := principal.Username
		filter.ReportedBy = &reporter
	}

	complaints, err := h.lifecycle.ListComplaints(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return success(c, fiber.StatusOK, "ok", items)
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.lifecycle.GetComplaint(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return h.renderDetail(c, principal, detail)
}

// GetByReference GET /complaints/ref/:reference.
func (h *ComplaintsHandler) GetByReference(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.lifecycle.GetComplaintByReference(c.Context(), strings.ToUpper(c.Params("reference")))
	if err != nil {
		return err
	}
	return h.renderDetail(c, principal, detail)
}

func (h *ComplaintsHandler) renderDetail(c *fiber.Ctx, principal *domain.Account, detail *service.ComplaintDetail) error {
	if principal.Role == domain.RoleUser && !strings.EqualFold(detail.Complaint.ReportedBy, principal.Username) {
		return apperrors.NewForbidden("not your complaint")
	}
	return success(c, fiber.StatusOK, "ok", complaintDetail(detail))
}

// Resolve POST /complaints/:id/resolve.
func (h *ComplaintsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.Resolve(c.Context(), principal, c.Params("id"), req.Remark)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "complaint resolved", complaintSummary(complaint))
}

// ForceClose POST /complaints/:id/force-close.
func (h *ComplaintsHandler) ForceClose(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.ForceClose(c.Context(), principal, c.Params("id"), req.Remark)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "complaint force closed", complaintSummary(complaint))
}

// Extend POST /complaints/:id/extend.
func (h *ComplaintsHandler) Extend(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ExtendComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	target, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		return apperrors.NewValidationError("target_date must be YYYY-MM-DD", nil)
	}

	complaint, err := h.lifecycle.Extend(c.Context(), principal, c.Params("id"), target, req.Remark)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "target date extended", complaintSummary(complaint))
}

// Transfer POST /complaints/:id/transfer.
func (h *ComplaintsHandler) Transfer(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransferComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.Transfer(c.Context(), principal, c.Params("id"), req.Department, req.Resolver)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "complaint transferred", complaintSummary(complaint))
}

// Reopen POST /complaints/:id/reopen.
func (h *ComplaintsHandler) Reopen(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.Reopen(c.Context(), principal, c.Params("id"), req.Remark)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "complaint reopened", complaintSummary(complaint))
}

// Rate POST /complaints/:id/rate.
func (h *ComplaintsHandler) Rate(c *fiber.Ctx) error {
	principal, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.lifecycle.Rate(c.Context(), principal, c.Params("id"), req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "rating recorded", complaintSummary(complaint))
}

func parseComplaintQuery(c *fiber.Ctx) repository.ComplaintFilter {
	filter := repository.ComplaintFilter{Limit: 50}

	if department := strings.TrimSpace(c.Query("department")); department != "" {
		filter.Department = &department
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.ComplaintStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status.Valid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.CreatedTo = &t
		}
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
