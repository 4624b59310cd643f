package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// adminUpdatableFields is the allow-list for admin partial updates. Any other
// key in the payload fails validation before anything is written.
var adminUpdatableFields = map[string]struct{}{
	"status":      {},
	"priority":    {},
	"category":    {},
	"assigned_to": {},
	"title":       {},
	"description": {},
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	files       storage.AttachmentStore
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	FileStore      storage.AttachmentStore
	Dispatcher     events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
	Category    string
}

// ExternalTicketInput describes an externally ingested ticket.
type ExternalTicketInput struct {
	TicketCreateInput
	ExternalRef string
	CustomerID  *string
}

// AttachmentUpload carries one uploaded file into the service.
type AttachmentUpload struct {
	FileName string
	Content  io.Reader
}

// CloseResult is the outcome of a customer close attempt. Rejection is a
// normal return value, not an error, so the caller can render a specific
// conflict response.
type CloseResult struct {
	WasClosed bool
	Reason    string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		files:       deps.FileStore,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateCustomerTicket creates a ticket on behalf of a customer. Source,
// status and ownership are forced regardless of input.
func (s *TicketService) CreateCustomerTicket(ctx context.Context, customer string, input TicketCreateInput, uploads []AttachmentUpload) (*domain.Ticket, []domain.Attachment, error) {
	ticket := &domain.Ticket{
		Source:      domain.TicketSourceCustomer,
		CustomerID:  &customer,
		Status:      domain.TicketStatusOpen,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
	}
	if err := applyCreateDefaults(ticket, input); err != nil {
		return nil, nil, err
	}
	if details := ticket.Validate(); details != nil {
		return nil, nil, apperrors.NewValidationError("invalid ticket", details)
	}

	attachments, err := s.storeUploads(uploads)
	if err != nil {
		return nil, nil, err
	}
	if err := s.tickets.Create(ctx, ticket, attachments); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleCustomer, User: customer},
		Payload: events.TicketCreatedPayload{
			Source:   ticket.Source,
			Priority: ticket.Priority,
			Category: ticket.Category,
			Title:    ticket.Title,
		},
	})
	return ticket, attachments, nil
}

// CreateExternalTicket ingests a ticket from an external system. The
// external_ref requirement is checked both here and by the entity invariant.
func (s *TicketService) CreateExternalTicket(ctx context.Context, input ExternalTicketInput, uploads []AttachmentUpload) (*domain.Ticket, []domain.Attachment, error) {
	ref := strings.TrimSpace(input.ExternalRef)
	if ref == "" {
		return nil, nil, apperrors.NewValidationError("invalid ticket", map[string]any{
			"external_ref": "external_ref is required",
		})
	}

	ticket := &domain.Ticket{
		Source:      domain.TicketSourceExternal,
		ExternalRef: &ref,
		CustomerID:  input.CustomerID,
		Status:      domain.TicketStatusOpen,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
	}
	if err := applyCreateDefaults(ticket, input.TicketCreateInput); err != nil {
		return nil, nil, err
	}
	if details := ticket.Validate(); details != nil {
		return nil, nil, apperrors.NewValidationError("invalid ticket", details)
	}

	attachments, err := s.storeUploads(uploads)
	if err != nil {
		return nil, nil, err
	}
	if err := s.tickets.Create(ctx, ticket, attachments); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Source:   ticket.Source,
			Priority: ticket.Priority,
			Category: ticket.Category,
			Title:    ticket.Title,
		},
	})
	return ticket, attachments, nil
}

// ListCustomerTickets returns the caller's own tickets, newest first.
func (s *TicketService) ListCustomerTickets(ctx context.Context, customer string, limit, offset int) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByCustomer(ctx, customer, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetCustomerTicket fetches a ticket owned by the caller, with its thread.
// A ticket owned by someone else is indistinguishable from a missing one.
func (s *TicketService) GetCustomerTicket(ctx context.Context, customer, ticketID string) (*domain.Ticket, []domain.Comment, []domain.Attachment, error) {
	ticket, err := s.tickets.GetByIDForCustomer(ctx, ticketID, customer)
	if err != nil {
		return nil, nil, nil, mapTicketErr(err)
	}
	return s.withThread(ctx, ticket)
}

// ListAdminTickets returns all tickets matching the filter.
func (s *TicketService) ListAdminTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetAdminTicket fetches any ticket by id, with its thread.
func (s *TicketService) GetAdminTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.Comment, []domain.Attachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, mapTicketErr(err)
	}
	return s.withThread(ctx, ticket)
}

// Stats returns ticket counts grouped by status, priority and source.
func (s *TicketService) Stats(ctx context.Context) (*repository.TicketStats, error) {
	stats, err := s.tickets.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// AddComment appends a comment to a ticket visible to the actor. Customers
// can only comment on their own tickets.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, message string) (*domain.Comment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("invalid comment", map[string]any{
			"message": "message is required",
		})
	}

	var ticket *domain.Ticket
	var err error
	if actor.Role == domain.RoleAdmin {
		ticket, err = s.tickets.GetByID(ctx, ticketID)
	} else {
		ticket, err = s.tickets.GetByIDForCustomer(ctx, ticketID, actor.User)
	}
	if err != nil {
		return nil, mapTicketErr(err)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		Author:   actor.User,
		Role:     actor.Role,
		Message:  message,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: actor.Role, User: actor.User},
		Payload: events.CommentAddedPayload{
			CommentID:      comment.ID,
			Role:           comment.Role,
			MessagePreview: stringPreview(comment.Message, 120),
		},
	})
	return comment, nil
}

// AdminUpdateTicket applies a partial update restricted to the allow-list.
// Admins may set any status value directly; the guarded transition applies to
// customer close only.
func (s *TicketService) AdminUpdateTicket(ctx context.Context, ticketID string, fields map[string]any) (*domain.Ticket, error) {
	unknown := []string{}
	for key := range fields {
		if _, ok := adminUpdatableFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("unknown fields", map[string]any{
			"fields": strings.Join(sortedStrings(unknown), ", "),
		})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	oldStatus := ticket.Status
	changed := make([]string, 0, len(fields))
	for key, value := range fields {
		if err := applyAdminField(ticket, key, value); err != nil {
			return nil, err
		}
		changed = append(changed, key)
	}
	if details := ticket.Validate(); details != nil {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketErr(err)
	}

	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{Role: domain.RoleAdmin},
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleAdmin},
		Payload:  events.TicketUpdatedPayload{Fields: sortedStrings(changed)},
	})
	return ticket, nil
}

// CloseTicketAsCustomer is the one guarded transition of the lifecycle:
//
//	closed          -> idempotent success, no write
//	not resolved    -> soft rejection, no write
//	resolved        -> closed
func (s *TicketService) CloseTicketAsCustomer(ctx context.Context, customer, ticketID string) (*domain.Ticket, CloseResult, error) {
	ticket, err := s.tickets.GetByIDForCustomer(ctx, ticketID, customer)
	if err != nil {
		return nil, CloseResult{}, mapTicketErr(err)
	}

	if ticket.Status == domain.TicketStatusClosed {
		return ticket, CloseResult{WasClosed: true}, nil
	}
	if ticket.Status != domain.TicketStatusResolved {
		return ticket, CloseResult{
			WasClosed: false,
			Reason:    "ticket can be closed by customer only when status=resolved",
		}, nil
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, CloseResult{}, mapTicketErr(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleCustomer, User: customer},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, CloseResult{WasClosed: true}, nil
}

func (s *TicketService) withThread(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, []domain.Comment, []domain.Attachment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, attachments, nil
}

func (s *TicketService) storeUploads(uploads []AttachmentUpload) ([]domain.Attachment, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.files == nil {
		return nil, apperrors.NewValidationError("attachments not supported", nil)
	}
	attachments := make([]domain.Attachment, 0, len(uploads))
	for _, upload := range uploads {
		ref, err := s.files.Save(upload.FileName, upload.Content)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		attachments = append(attachments, domain.Attachment{
			FileRef:  ref,
			FileName: upload.FileName,
		})
	}
	return attachments, nil
}

func applyCreateDefaults(ticket *domain.Ticket, input TicketCreateInput) error {
	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	} else {
		ticket.Priority = domain.TicketPriority(priority)
		if !domain.ValidPriority(ticket.Priority) {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"priority": "priority must be one of low, medium, high",
			})
		}
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.DefaultCategory
	}
	ticket.Category = category
	return nil
}

func applyAdminField(ticket *domain.Ticket, key string, value any) error {
	str := func() (string, bool) {
		s, ok := value.(string)
		return s, ok
	}

	switch key {
	case "status":
		s, ok := str()
		if !ok || !domain.ValidStatus(domain.TicketStatus(s)) {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"status": "status must be one of open, in_progress, resolved, closed",
			})
		}
		ticket.Status = domain.TicketStatus(s)
	case "priority":
		s, ok := str()
		if !ok || !domain.ValidPriority(domain.TicketPriority(s)) {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"priority": "priority must be one of low, medium, high",
			})
		}
		ticket.Priority = domain.TicketPriority(s)
	case "category":
		s, ok := str()
		if !ok || strings.TrimSpace(s) == "" {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"category": "category must be a non-empty string",
			})
		}
		ticket.Category = strings.TrimSpace(s)
	case "assigned_to":
		if value == nil {
			ticket.AssignedTo = nil
			return nil
		}
		s, ok := str()
		if !ok {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"assigned_to": "assigned_to must be a string or null",
			})
		}
		s = strings.TrimSpace(s)
		if s == "" {
			ticket.AssignedTo = nil
		} else {
			ticket.AssignedTo = &s
		}
	case "title":
		s, ok := str()
		if !ok {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"title": "title must be a string",
			})
		}
		ticket.Title = strings.TrimSpace(s)
	case "description":
		s, ok := str()
		if !ok {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"description": "description must be a string",
			})
		}
		ticket.Description = s
	}
	return nil
}

func mapTicketErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket")
	}
	return apperrors.MapError(err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func sortedStrings(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}
