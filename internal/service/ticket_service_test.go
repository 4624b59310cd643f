package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type fakeTicketRepo struct {
	createFn         func(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error
	updateFn         func(ctx context.Context, ticket *domain.Ticket) error
	getByIDFn        func(ctx context.Context, id string) (*domain.Ticket, error)
	getForCustomerFn func(ctx context.Context, id, customerID string) (*domain.Ticket, error)
	listByCustomerFn func(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error)
	listWithFilterFn func(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	statsFn          func(ctx context.Context) (*repository.TicketStats, error)

	createCalls int
	updateCalls int
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket, attachments []domain.Attachment) error {
	f.createCalls++
	if f.createFn == nil {
		ticket.ID = "t-1"
		return nil
	}
	return f.createFn(ctx, ticket, attachments)
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	f.updateCalls++
	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(ctx, ticket)
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if f.getByIDFn == nil {
		return nil, pgx.ErrNoRows
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeTicketRepo) GetByIDForCustomer(ctx context.Context, id, customerID string) (*domain.Ticket, error) {
	if f.getForCustomerFn == nil {
		return nil, pgx.ErrNoRows
	}
	return f.getForCustomerFn(ctx, id, customerID)
}

func (f *fakeTicketRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error) {
	if f.listByCustomerFn == nil {
		return nil, nil
	}
	return f.listByCustomerFn(ctx, customerID, limit, offset)
}

func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if f.listWithFilterFn == nil {
		return nil, nil
	}
	return f.listWithFilterFn(ctx, filter)
}

func (f *fakeTicketRepo) Stats(ctx context.Context) (*repository.TicketStats, error) {
	if f.statsFn == nil {
		return &repository.TicketStats{}, nil
	}
	return f.statsFn(ctx)
}

type fakeCommentRepo struct {
	createFn     func(ctx context.Context, comment *domain.Comment) error
	listByTicket func(ctx context.Context, ticketID string) ([]domain.Comment, error)
	createCalls  int
}

func (f *fakeCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	f.createCalls++
	if f.createFn == nil {
		comment.ID = "c-1"
		return nil
	}
	return f.createFn(ctx, comment)
}

func (f *fakeCommentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if f.listByTicket == nil {
		return nil, nil
	}
	return f.listByTicket(ctx, ticketID)
}

type fakeAttachmentRepo struct{}

func (fakeAttachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	return nil
}

func (fakeAttachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return nil, nil
}

func newTestService(tickets *fakeTicketRepo, comments *fakeCommentRepo) *TicketService {
	if comments == nil {
		comments = &fakeCommentRepo{}
	}
	return NewTicketService(TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    comments,
		AttachmentRepo: fakeAttachmentRepo{},
		Dispatcher:     events.NewInMemoryDispatcher(),
	})
}

func validationDetails(t *testing.T, err error) map[string]any {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	return domainErr.Details
}

func TestCreateCustomerTicketForcesSourceAndStatus(t *testing.T) {
	repo := &fakeTicketRepo{}
	svc := newTestService(repo, nil)

	ticket, _, err := svc.CreateCustomerTicket(context.Background(), "alice@example.com", TicketCreateInput{
		Title: "My ticket",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketSourceCustomer, ticket.Source)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.CustomerID)
	assert.Equal(t, "alice@example.com", *ticket.CustomerID)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.DefaultCategory, ticket.Category)
	assert.Equal(t, 1, repo.createCalls)
}

func TestCreateCustomerTicketValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   TicketCreateInput
		wantKey string
	}{
		{"missing title", TicketCreateInput{}, "title"},
		{"blank title", TicketCreateInput{Title: "   "}, "title"},
		{"invalid priority", TicketCreateInput{Title: "x", Priority: "urgent"}, "priority"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeTicketRepo{}
			svc := newTestService(repo, nil)
			_, _, err := svc.CreateCustomerTicket(context.Background(), "alice@example.com", tc.input, nil)
			details := validationDetails(t, err)
			assert.Contains(t, details, tc.wantKey)
			assert.Zero(t, repo.createCalls, "validation failure must not write")
		})
	}
}

func TestCreateExternalTicketRequiresRef(t *testing.T) {
	repo := &fakeTicketRepo{}
	svc := newTestService(repo, nil)

	_, _, err := svc.CreateExternalTicket(context.Background(), ExternalTicketInput{
		TicketCreateInput: TicketCreateInput{Title: "x"},
	}, nil)
	details := validationDetails(t, err)
	assert.Contains(t, details, "external_ref")
	assert.Zero(t, repo.createCalls)
}

func TestCreateExternalTicket(t *testing.T) {
	repo := &fakeTicketRepo{}
	svc := newTestService(repo, nil)

	ticket, _, err := svc.CreateExternalTicket(context.Background(), ExternalTicketInput{
		TicketCreateInput: TicketCreateInput{Title: "x", Priority: "high"},
		ExternalRef:       "EXT-1",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketSourceExternal, ticket.Source)
	require.NotNil(t, ticket.ExternalRef)
	assert.Equal(t, "EXT-1", *ticket.ExternalRef)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Nil(t, ticket.CustomerID)
}

func ticketWithStatus(status domain.TicketStatus) *domain.Ticket {
	customer := "alice@example.com"
	return &domain.Ticket{
		ID:         "t-1",
		Source:     domain.TicketSourceCustomer,
		Title:      "My ticket",
		Priority:   domain.TicketPriorityMedium,
		Status:     status,
		Category:   domain.DefaultCategory,
		CustomerID: &customer,
	}
}

func TestCloseTicketAsCustomer(t *testing.T) {
	cases := []struct {
		name       string
		status     domain.TicketStatus
		wasClosed  bool
		wantWrites int
	}{
		{"resolved closes", domain.TicketStatusResolved, true, 1},
		{"closed is idempotent", domain.TicketStatusClosed, true, 0},
		{"open rejected", domain.TicketStatusOpen, false, 0},
		{"in_progress rejected", domain.TicketStatusInProgress, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeTicketRepo{
				getForCustomerFn: func(ctx context.Context, id, customerID string) (*domain.Ticket, error) {
					return ticketWithStatus(tc.status), nil
				},
			}
			svc := newTestService(repo, nil)

			ticket, result, err := svc.CloseTicketAsCustomer(context.Background(), "alice@example.com", "t-1")
			require.NoError(t, err)
			assert.Equal(t, tc.wasClosed, result.WasClosed)
			assert.Equal(t, tc.wantWrites, repo.updateCalls)
			if tc.wasClosed {
				assert.Empty(t, result.Reason)
				assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
			} else {
				assert.NotEmpty(t, result.Reason)
				assert.Equal(t, tc.status, ticket.Status)
			}
		})
	}
}

func TestCloseTicketAsCustomerHidesForeignTickets(t *testing.T) {
	repo := &fakeTicketRepo{} // GetByIDForCustomer defaults to no rows
	svc := newTestService(repo, nil)

	_, _, err := svc.CloseTicketAsCustomer(context.Background(), "bob@example.com", "t-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAdminUpdateTicketRejectsUnknownFields(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			return ticketWithStatus(domain.TicketStatusOpen), nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.AdminUpdateTicket(context.Background(), "t-1", map[string]any{
		"status":      string(domain.TicketStatusResolved),
		"customer_id": "mallory@example.com",
	})
	details := validationDetails(t, err)
	assert.Contains(t, details["fields"], "customer_id")
	assert.Zero(t, repo.updateCalls, "unknown field must not write")
}

func TestAdminUpdateTicketAppliesAllowedFields(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			return ticketWithStatus(domain.TicketStatusOpen), nil
		},
	}
	svc := newTestService(repo, nil)

	ticket, err := svc.AdminUpdateTicket(context.Background(), "t-1", map[string]any{
		"status":      "in_progress",
		"priority":    "high",
		"assigned_to": "agent@example.com",
		"title":       "Renamed",
		"description": "details",
		"category":    "billing",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "agent@example.com", *ticket.AssignedTo)
	assert.Equal(t, "Renamed", ticket.Title)
	assert.Equal(t, "details", ticket.Description)
	assert.Equal(t, "billing", ticket.Category)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestAdminUpdateTicketStatusBypassesCloseMachine(t *testing.T) {
	// Admin may jump to any status, including reopening a closed ticket.
	repo := &fakeTicketRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			return ticketWithStatus(domain.TicketStatusClosed), nil
		},
	}
	svc := newTestService(repo, nil)

	ticket, err := svc.AdminUpdateTicket(context.Background(), "t-1", map[string]any{"status": "open"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestAdminUpdateTicketValidatesValues(t *testing.T) {
	cases := []struct {
		name    string
		fields  map[string]any
		wantKey string
	}{
		{"bad status", map[string]any{"status": "archived"}, "status"},
		{"bad priority", map[string]any{"priority": "urgent"}, "priority"},
		{"non-string title", map[string]any{"title": 42}, "title"},
		{"blank category", map[string]any{"category": " "}, "category"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeTicketRepo{
				getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
					return ticketWithStatus(domain.TicketStatusOpen), nil
				},
			}
			svc := newTestService(repo, nil)
			_, err := svc.AdminUpdateTicket(context.Background(), "t-1", tc.fields)
			details := validationDetails(t, err)
			assert.Contains(t, details, tc.wantKey)
			assert.Zero(t, repo.updateCalls)
		})
	}
}

func TestAdminUpdateTicketClearsAssignee(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			ticket := ticketWithStatus(domain.TicketStatusOpen)
			assignee := "agent@example.com"
			ticket.AssignedTo = &assignee
			return ticket, nil
		},
	}
	svc := newTestService(repo, nil)

	ticket, err := svc.AdminUpdateTicket(context.Background(), "t-1", map[string]any{"assigned_to": nil})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedTo)
}

func TestAdminUpdateTicketKeepsExternalInvariant(t *testing.T) {
	repo := &fakeTicketRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			ref := "EXT-1"
			ticket := ticketWithStatus(domain.TicketStatusOpen)
			ticket.Source = domain.TicketSourceExternal
			ticket.ExternalRef = &ref
			return ticket, nil
		},
	}
	svc := newTestService(repo, nil)

	// Clearing title on an external ticket re-runs entity validation.
	_, err := svc.AdminUpdateTicket(context.Background(), "t-1", map[string]any{"title": "  "})
	details := validationDetails(t, err)
	assert.Contains(t, details, "title")
	assert.Zero(t, repo.updateCalls)
}

func TestAddComment(t *testing.T) {
	tickets := &fakeTicketRepo{
		getForCustomerFn: func(ctx context.Context, id, customerID string) (*domain.Ticket, error) {
			if customerID != "alice@example.com" {
				return nil, pgx.ErrNoRows
			}
			return ticketWithStatus(domain.TicketStatusOpen), nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Ticket, error) {
			return ticketWithStatus(domain.TicketStatusOpen), nil
		},
	}
	comments := &fakeCommentRepo{}
	svc := newTestService(tickets, comments)

	comment, err := svc.AddComment(context.Background(), domain.Actor{Role: domain.RoleCustomer, User: "alice@example.com"}, "t-1", "please help")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, comment.Role)
	assert.Equal(t, "alice@example.com", comment.Author)
	assert.Equal(t, "please help", comment.Message)

	// admins reach any ticket
	_, err = svc.AddComment(context.Background(), domain.Actor{Role: domain.RoleAdmin, User: "admin@example.com"}, "t-1", "on it")
	require.NoError(t, err)

	// customers cannot comment on foreign tickets, and the failure reads as absence
	_, err = svc.AddComment(context.Background(), domain.Actor{Role: domain.RoleCustomer, User: "bob@example.com"}, "t-1", "hi")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAddCommentRejectsEmptyMessage(t *testing.T) {
	tickets := &fakeTicketRepo{}
	comments := &fakeCommentRepo{}
	svc := newTestService(tickets, comments)

	_, err := svc.AddComment(context.Background(), domain.Actor{Role: domain.RoleAdmin, User: "admin@example.com"}, "t-1", "   ")
	details := validationDetails(t, err)
	assert.Contains(t, details, "message")
	assert.Zero(t, comments.createCalls)
}

func TestServicePropagatesRepoErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeTicketRepo{
		listByCustomerFn: func(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error) {
			return nil, boom
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.ListCustomerTickets(context.Background(), "alice@example.com", 20, 0)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
}
