package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	CustomerTickets *handlers.CustomerTicketsHandler
	AdminTickets    *handlers.AdminTicketsHandler
	ExternalTickets *handlers.ExternalTicketsHandler
	Categories      *handlers.CategoriesHandler
	ExternalAPIKey  string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/categories", cfg.Categories.List)

	customer := app.Group("/customer", auth.RequireRole(domain.RoleCustomer))
	customer.Post("/tickets", cfg.CustomerTickets.CreateTicket)
	customer.Get("/tickets", cfg.CustomerTickets.ListTickets)
	customer.Get("/tickets/:id", cfg.CustomerTickets.GetTicket)
	customer.Post("/tickets/:id/comments", cfg.CustomerTickets.AddComment)
	customer.Post("/tickets/:id/close", cfg.CustomerTickets.CloseTicket)

	admin := app.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/stats", cfg.AdminTickets.Stats)
	admin.Get("/tickets/:id", cfg.AdminTickets.GetTicket)
	admin.Put("/tickets/:id", cfg.AdminTickets.UpdateTicket)
	admin.Post("/tickets/:id/comments", cfg.AdminTickets.AddComment)
	admin.Post("/categories", cfg.Categories.Create)

	external := app.Group("/external", auth.RequireAPIKey(cfg.ExternalAPIKey))
	external.Post("/tickets", cfg.ExternalTickets.CreateTicket)
}
