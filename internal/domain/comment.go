package domain

import "time"

// Comment is a thread entry on a ticket, authored by either side.
type Comment struct {
	ID        string
	TicketID  string
	Author    string
	Role      Role
	Message   string
	CreatedAt time.Time
}
