package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ExternalTicketsHandler ingests tickets from external systems. The route is
// gated by the X-API-KEY middleware, not by an actor.
type ExternalTicketsHandler struct {
	service *service.TicketService
}

// NewExternalTicketsHandler constructs handler.
func NewExternalTicketsHandler(ticketService *service.TicketService) *ExternalTicketsHandler {
	return &ExternalTicketsHandler{service: ticketService}
}

// CreateTicket POST /external/tickets.
func (h *ExternalTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.ExternalTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	uploads, closeFiles, err := collectUploads(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	ticket, attachments, err := h.service.CreateExternalTicket(c.UserContext(), service.ExternalTicketInput{
		TicketCreateInput: service.TicketCreateInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			Category:    req.Category,
		},
		ExternalRef: req.ExternalRef,
		CustomerID:  req.CustomerID,
	}, uploads)
	if err != nil {
		return err
	}

	refs := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		refs = append(refs, attachment.FileRef)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"ticket_id":    ticket.ID,
		"external_ref": ticket.ExternalRef,
		"status":       ticket.Status,
		"attachments":  refs,
	}})
}
