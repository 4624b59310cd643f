package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures admin search parameters. Exact-match fields are
// ANDed; Search is a case-insensitive substring match ORed across title,
// description, external_ref, customer_id and assigned_to.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	Category   *string
	AssignedTo *string
	Source     *domain.TicketSource
	Search     *string
	Limit      int
	Offset     int
}

// TicketStats aggregates ticket counts per dimension.
type TicketStats struct {
	ByStatus   map[string]int64
	ByPriority map[string]int64
	BySource   map[string]int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create persists the ticket together with its attachment references in
	// a single transaction.
	Create(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForCustomer returns pgx.ErrNoRows when the ticket exists but
	// belongs to someone else, so other customers' tickets stay invisible.
	GetByIDForCustomer(ctx context.Context, id, customerID string) (*domain.Ticket, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Stats(ctx context.Context) (*TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, source, external_ref, title, description, priority, status, category,
               customer_id, assigned_to, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertTicket(ctx, tx, ticket); err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].TicketID = ticket.ID
			if err := insertAttachment(ctx, tx, &attachments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTicket(ctx context.Context, q Querier, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (source, external_ref, title, description, priority, status, category, customer_id, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		ticket.Source,
		ticket.ExternalRef,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.CustomerID,
		ticket.AssignedTo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET external_ref=$1, title=$2, description=$3, priority=$4,
            status=$5, category=$6, customer_id=$7, assigned_to=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ExternalRef,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.CustomerID,
		ticket.AssignedTo,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForCustomer(ctx context.Context, id, customerID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND customer_id=$2`
	return r.fetchSingle(ctx, query, id, customerID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.Source,
		&ticket.ExternalRef,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.CustomerID,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE customer_id=$1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, normalizeLimit(limit), normalizeOffset(offset))
	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Source != nil {
		args = append(args, *filter.Source)
		clauses = append(clauses, fmt.Sprintf("source=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %[1]s OR LOWER(description) LIKE %[1]s OR LOWER(COALESCE(external_ref,'')) LIKE %[1]s OR LOWER(COALESCE(customer_id,'')) LIKE %[1]s OR LOWER(COALESCE(assigned_to,'')) LIKE %[1]s)", p))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context) (*TicketStats, error) {
	stats := &TicketStats{
		ByStatus:   map[string]int64{},
		ByPriority: map[string]int64{},
		BySource:   map[string]int64{},
	}
	for column, target := range map[string]map[string]int64{
		"status":   stats.ByStatus,
		"priority": stats.ByPriority,
		"source":   stats.BySource,
	} {
		query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM tickets GROUP BY %s`, column, column)
		rows, err := r.pool.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var key string
			var count int64
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, err
			}
			target[key] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Source,
			&ticket.ExternalRef,
			&ticket.Title,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.Category,
			&ticket.CustomerID,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
