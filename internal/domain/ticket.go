package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// TicketSource identifies where a ticket originated.
type TicketSource string

const (
	TicketSourceCustomer TicketSource = "customer"
	TicketSourceExternal TicketSource = "external"
)

// MaxTitleLength caps ticket titles.
const MaxTitleLength = 200

// DefaultCategory is applied when the creator does not pick one.
const DefaultCategory = "general"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Source      TicketSource
	ExternalRef *string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	Category    string
	CustomerID  *string
	AssignedTo  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Validate checks entity invariants. Violations are keyed by field name so
// the HTTP layer can surface them as validation details. A nil map means the
// ticket is valid.
func (t *Ticket) Validate() map[string]any {
	details := map[string]any{}

	title := strings.TrimSpace(t.Title)
	if title == "" {
		details["title"] = "title is required"
	} else if len(title) > MaxTitleLength {
		details["title"] = "title must be at most 200 characters"
	}

	if t.Source != TicketSourceCustomer && t.Source != TicketSourceExternal {
		details["source"] = "source must be customer or external"
	}
	if t.Source == TicketSourceExternal && (t.ExternalRef == nil || strings.TrimSpace(*t.ExternalRef) == "") {
		details["external_ref"] = "external_ref is required when source=external"
	}

	if !ValidStatus(t.Status) {
		details["status"] = "status must be one of open, in_progress, resolved, closed"
	}
	if !ValidPriority(t.Priority) {
		details["priority"] = "priority must be one of low, medium, high"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}
