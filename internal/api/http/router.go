package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Panels         *handlers.PanelsHandler
	Tickets        *handlers.TicketsHandler
	Transcripts    *handlers.TranscriptsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleAdmin))

	panels := api.Group("/panels")
	panels.Get("/", cfg.Panels.ListPanels)
	panels.Post("/", cfg.Panels.CreatePanel)
	panels.Get("/:panelID", cfg.Panels.GetPanel)
	panels.Patch("/:panelID", cfg.Panels.UpdatePanel)
	panels.Delete("/:panelID", cfg.Panels.DeletePanel)
	panels.Post("/:panelID/display", cfg.Panels.ToggleDisplay)
	panels.Post("/:panelID/publish", cfg.Panels.PublishPanel)
	panels.Post("/:panelID/categories", cfg.Panels.CreateCategory)
	panels.Patch("/:panelID/categories/:categoryID", cfg.Panels.UpdateCategory)
	panels.Delete("/:panelID/categories/:categoryID", cfg.Panels.DeleteCategory)
	panels.Post("/:panelID/categories/:categoryID/visibility", cfg.Panels.ToggleVisibility)

	api.Get("/staff-roles", cfg.Panels.ListStaffRoles)
	api.Post("/staff-roles", cfg.Panels.AddStaffRole)
	api.Delete("/staff-roles/:roleID", cfg.Panels.RemoveStaffRole)
	api.Get("/audit", cfg.Panels.GetAudit)
	api.Put("/audit", cfg.Panels.UpdateAudit)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:channelID", cfg.Tickets.GetTicket)

	api.Get("/transcripts", cfg.Transcripts.ListTranscripts)
	api.Get("/transcripts/archive", cfg.Transcripts.ListArchived)
	api.Get("/transcripts/:id", cfg.Transcripts.GetTranscript)
}
