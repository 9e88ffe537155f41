package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/domain"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	Create(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

// Create adds a new category with a generated identifier
func (s *categoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{
		ID:        identifier.Generate(identifier.PrefixCategory),
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, apperror.Conflict("Category with this name already exists")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

// List retrieves all categories ordered by name
func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a single category
func (s *categoryService) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, apperror.Newf(apperror.CodeNotFound, "Category with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}
