package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type fakeCategoryRepo struct {
	listFn   func(ctx context.Context) ([]domain.Category, error)
	createFn func(ctx context.Context, category *domain.Category) error
	seedFn   func(ctx context.Context, names []string) error
}

func (f *fakeCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx)
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	if f.createFn == nil {
		category.ID = "cat-1"
		return nil
	}
	return f.createFn(ctx, category)
}

func (f *fakeCategoryRepo) Seed(ctx context.Context, names []string) error {
	if f.seedFn == nil {
		return nil
	}
	return f.seedFn(ctx, names)
}

func TestCategoryCreate(t *testing.T) {
	svc := NewCategoryService(&fakeCategoryRepo{}, nil, zap.NewNop())

	category, err := svc.Create(context.Background(), "  hardware  ")
	require.NoError(t, err)
	assert.Equal(t, "hardware", category.Name)
	assert.NotEmpty(t, category.ID)
}

func TestCategoryCreateRejectsEmptyName(t *testing.T) {
	svc := NewCategoryService(&fakeCategoryRepo{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "   ")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestCategoryCreateDuplicate(t *testing.T) {
	repo := &fakeCategoryRepo{
		createFn: func(ctx context.Context, category *domain.Category) error {
			return &pgconn.PgError{Code: "23505"}
		},
	}
	svc := NewCategoryService(repo, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "billing")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Details["name"], "already exists")
}

func TestCategorySeedUsesDefaults(t *testing.T) {
	var seeded []string
	repo := &fakeCategoryRepo{
		seedFn: func(ctx context.Context, names []string) error {
			seeded = names
			return nil
		},
	}
	svc := NewCategoryService(repo, nil, zap.NewNop())

	require.NoError(t, svc.Seed(context.Background()))
	assert.Equal(t, domain.DefaultCategories, seeded)
}
