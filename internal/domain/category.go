package domain

// Category is a lookup value for grouping tickets. Ticket.Category references
// it by name only; the relation is deliberately not enforced as a foreign key.
type Category struct {
	ID   string
	Name string
}

// DefaultCategories are seeded on first startup.
var DefaultCategories = []string{"billing", "technical", "general"}
