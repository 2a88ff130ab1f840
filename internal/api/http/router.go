package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Accounts       *handlers.AccountsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/healthz", cfg.Health.Health)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	complaints := app.Group("/complaints", cfg.AuthMiddleware.Handle)
	complaints.Post("", cfg.Complaints.Create)
	complaints.Get("", cfg.Complaints.List)
	complaints.Get("/ref/:reference", cfg.Complaints.GetByReference)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Post("/:id/reopen", cfg.Complaints.Reopen)
	complaints.Post("/:id/rate", cfg.Complaints.Rate)

	staff := complaints.Group("", auth.RequireStaff())
	staff.Post("/:id/resolve", cfg.Complaints.Resolve)
	staff.Post("/:id/extend", cfg.Complaints.Extend)
	staff.Post("/:id/transfer", cfg.Complaints.Transfer)
	staff.Post("/:id/force-close", cfg.Complaints.ForceClose)

	accounts := app.Group("/admin/accounts", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	accounts.Get("", cfg.Accounts.List)
	accounts.Post("/:id/approve", cfg.Accounts.Approve)
	accounts.Patch("/:id", cfg.Accounts.Update)
	accounts.Delete("/:id", cfg.Accounts.Delete)

	reports := app.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	reports.Get("/summary", cfg.Reports.Summary)
	reports.Get("/resolvers", cfg.Reports.Resolvers)
}
