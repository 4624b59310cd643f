package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload for customer ticket creation.
type CreateTicketRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Priority    string `json:"priority" form:"priority"`
	Category    string `json:"category" form:"category"`
}

// ExternalTicketRequest payload for external ingest.
type ExternalTicketRequest struct {
	ExternalRef string  `json:"external_ref" form:"external_ref"`
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Priority    string  `json:"priority" form:"priority"`
	Category    string  `json:"category" form:"category"`
	CustomerID  *string `json:"customer_id" form:"customer_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message string `json:"message"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// TicketResponse is the wire representation of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Source      domain.TicketSource   `json:"source"`
	ExternalRef *string               `json:"external_ref"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Category    string                `json:"category"`
	CustomerID  *string               `json:"customer_id"`
	AssignedTo  *string               `json:"assigned_to"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse adds the comment thread and attachments.
type TicketDetailResponse struct {
	TicketResponse
	Comments    []CommentResponse    `json:"comments"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// CommentResponse is the wire representation of a comment.
type CommentResponse struct {
	ID        string      `json:"id"`
	TicketID  string      `json:"ticket_id"`
	Author    string      `json:"author"`
	Role      domain.Role `json:"role"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// AttachmentResponse exposes the opaque storage reference.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileRef   string    `json:"file_ref"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryResponse is the wire representation of a category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatsResponse groups ticket counts per dimension.
type StatsResponse struct {
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
	BySource   map[string]int64 `json:"by_source"`
}

// PageMeta describes list pagination.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// FromTicket maps an entity to its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Source:      ticket.Source,
		ExternalRef: ticket.ExternalRef,
		Title:       ticket.Title,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Category:    ticket.Category,
		CustomerID:  ticket.CustomerID,
		AssignedTo:  ticket.AssignedTo,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// FromTicketDetail maps an entity with its thread.
func FromTicketDetail(ticket *domain.Ticket, comments []domain.Comment, attachments []domain.Attachment) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: FromTicket(ticket),
		Comments:       make([]CommentResponse, 0, len(comments)),
		Attachments:    make([]AttachmentResponse, 0, len(attachments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, FromComment(&comments[i]))
	}
	for i := range attachments {
		resp.Attachments = append(resp.Attachments, FromAttachment(&attachments[i]))
	}
	return resp
}

// FromComment maps an entity to its response shape.
func FromComment(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Author:    comment.Author,
		Role:      comment.Role,
		Message:   comment.Message,
		CreatedAt: comment.CreatedAt,
	}
}

// FromAttachment maps an entity to its response shape.
func FromAttachment(attachment *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        attachment.ID,
		FileRef:   attachment.FileRef,
		FileName:  attachment.FileName,
		CreatedAt: attachment.CreatedAt,
	}
}
