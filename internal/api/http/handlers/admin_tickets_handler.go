package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminTicketsHandler serves the staff-facing ticket endpoints.
type AdminTicketsHandler struct {
	service *service.TicketService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{service: ticketService}
}

// ListTickets GET /admin/tickets.
// Filters: status, priority, category, assigned_to, source, q.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseAdminTicketQuery(c)
	tickets, err := h.service.ListAdminTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /admin/tickets/stats.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
		BySource:   stats.BySource,
	}})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, comments, attachments, err := h.service.GetAdminTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(ticket, comments, attachments)})
}

// UpdateTicket PUT /admin/tickets/:id. The payload is a partial field set;
// keys outside the allow-list are rejected by the service.
func (h *AdminTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var fields map[string]any
	if err := json.Unmarshal(c.Body(), &fields); err != nil || fields == nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.AdminUpdateTicket(c.UserContext(), c.Params("id"), fields)
	if err != nil {
		return err
	}
	ticket, comments, attachments, err := h.service.GetAdminTicket(c.UserContext(), updated.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(ticket, comments, attachments)})
}

// AddComment POST /admin/tickets/:id/comments.
func (h *AdminTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("admin required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromComment(comment)})
}

func parseAdminTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if v := c.Query("status"); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := domain.TicketPriority(v)
		filter.Priority = &priority
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	if v := c.Query("source"); v != "" {
		source := domain.TicketSource(v)
		filter.Source = &source
	}
	if v := c.Query("q"); v != "" {
		filter.Search = &v
	}
	page, pageSize := parsePagination(c)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter
}
