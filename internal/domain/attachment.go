package domain

import "time"

// Attachment records an uploaded file belonging to a ticket. Only the opaque
// storage reference lives here; the bytes are handled by the storage layer.
type Attachment struct {
	ID        string
	TicketID  string
	FileRef   string
	FileName  string
	CreatedAt time.Time
}
