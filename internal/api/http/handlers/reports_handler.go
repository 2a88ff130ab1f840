package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/service"
)

// ReportsHandler serves the dashboard aggregates.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Summary GET /reports/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.reports.Summary(c.Context())
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "ok", summary)
}

// Resolvers GET /reports/resolvers.
func (h *ReportsHandler) Resolvers(c *fiber.Ctx) error {
	performance, err := h.reports.ResolverPerformance(c.Context())
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "ok", performance)
}
