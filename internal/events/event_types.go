package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventCommentAdded        EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event. External ingest events
// carry an empty actor.
type Actor struct {
	Role domain.Role `json:"role,omitempty"`
	User string      `json:"user,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Source   domain.TicketSource   `json:"source"`
	Priority domain.TicketPriority `json:"priority"`
	Category string                `json:"category"`
	Title    string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID      string      `json:"comment_id"`
	Role           domain.Role `json:"role"`
	MessagePreview string      `json:"message_preview"`
}
