package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// attachmentsField is the multipart field carrying uploaded files.
const attachmentsField = "attachments"

// CustomerTicketsHandler serves the customer-facing ticket endpoints.
type CustomerTicketsHandler struct {
	service *service.TicketService
}

// NewCustomerTicketsHandler constructs handler.
func NewCustomerTicketsHandler(ticketService *service.TicketService) *CustomerTicketsHandler {
	return &CustomerTicketsHandler{service: ticketService}
}

// CreateTicket POST /customer/tickets.
func (h *CustomerTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("customer required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	uploads, closeFiles, err := collectUploads(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	ticket, attachments, err := h.service.CreateCustomerTicket(c.UserContext(), actor.User, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	}, uploads)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicketDetail(ticket, nil, attachments)})
}

// ListTickets GET /customer/tickets.
func (h *CustomerTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("customer required")
	}
	page, pageSize := parsePagination(c)
	tickets, err := h.service.ListCustomerTickets(c.UserContext(), actor.User, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page, PageSize: pageSize},
	})
}

// GetTicket GET /customer/tickets/:id.
func (h *CustomerTicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("customer required")
	}
	ticket, comments, attachments, err := h.service.GetCustomerTicket(c.UserContext(), actor.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(ticket, comments, attachments)})
}

// AddComment POST /customer/tickets/:id/comments.
func (h *CustomerTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("customer required")
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

// CloseTicket POST /customer/tickets/:id/close. Rejections surface as 409,
// not as validation failures.
func (h *CustomerTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewForbidden("customer required")
	}
	ticket, result, err := h.service.CloseTicketAsCustomer(c.UserContext(), actor.User, c.Params("id"))
	if err != nil {
		return err
	}
	if !result.WasClosed {
		return apperrors.NewConflict(result.Reason, nil)
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

func parsePagination(c *fiber.Ctx) (page, pageSize int) {
	page = parsePositiveInt(c.Query("page"), 1)
	pageSize = parsePositiveInt(c.Query("page_size"), 20)
	return page, pageSize
}

func parsePositiveInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// collectUploads pulls files from the multipart "attachments" field, if any.
// The returned closer releases the open file handles.
func collectUploads(c *fiber.Ctx) ([]service.AttachmentUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	files := form.File[attachmentsField]
	if len(files) == 0 {
		return nil, noop, nil
	}

	uploads := make([]service.AttachmentUpload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			closeAll()
			return nil, noop, apperrors.NewValidationError("unreadable attachment", map[string]any{
				"attachments": header.Filename,
			})
		}
		opened = append(opened, file)
		uploads = append(uploads, service.AttachmentUpload{
			FileName: header.Filename,
			Content:  file,
		})
	}
	return uploads, closeAll, nil
}
