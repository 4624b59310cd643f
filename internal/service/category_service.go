package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	categoryCacheKey = "helpdesk:categories"
	categoryCacheTTL = 5 * time.Minute
)

// CategoryService exposes the category lookup. The list is public and
// read-mostly, so it is cached in Redis and invalidated on writes.
type CategoryService struct {
	categories repository.CategoryRepository
	cache      *redis.Client
	logger     *zap.Logger
}

// NewCategoryService constructs the service. cache may be nil.
func NewCategoryService(categories repository.CategoryRepository, cache *redis.Client, logger *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, cache: cache, logger: logger}
}

// Seed inserts the default categories, skipping existing ones.
func (s *CategoryService) Seed(ctx context.Context) error {
	if err := s.categories.Seed(ctx, domain.DefaultCategories); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.toCache(ctx, categories)
	return categories, nil
}

// Create adds a category. Names must be unique and non-empty.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{
			"name": "name is required",
		})
	}

	category := &domain.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.NewValidationError("invalid category", map[string]any{
				"name": "category already exists",
			})
		}
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *CategoryService) fromCache(ctx context.Context) []domain.Category {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, categoryCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var categories []domain.Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil
	}
	return categories
}

func (s *CategoryService) toCache(ctx context.Context, categories []domain.Category) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, categoryCacheKey, raw, categoryCacheTTL).Err(); err != nil {
		s.logger.Debug("category cache set failed", zap.Error(err))
	}
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoryCacheKey).Err(); err != nil {
		s.logger.Debug("category cache invalidate failed", zap.Error(err))
	}
}
