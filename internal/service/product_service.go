package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/domain"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/money"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
	"github.com/Aphatheology/future-stack-assessment/internal/sku"
)

// IdempotencyTTL is how long a creation key shields retries.
const IdempotencyTTL = 24 * time.Hour

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CreateProductInput carries the validated fields for product creation
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	StockLevel  int
	CategoryID  string
}

// UpdateProductInput carries the optional fields for product updates;
// nil fields are left unchanged
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	StockLevel  *int
	CategoryID  *string
}

// ProductQuery narrows and pages product listings
type ProductQuery struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	CategoryID string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
}

// Pagination describes a page of results
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ProductPage is a paginated product listing
type ProductPage struct {
	Data       []*domain.Product `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, userID string, input CreateProductInput, idempotencyKey string) (*domain.Product, error)
	List(ctx context.Context, query ProductQuery) (*ProductPage, error)
	ListByCreator(ctx context.Context, userID string, query ProductQuery) (*ProductPage, error)
	GetByID(ctx context.Context, productID string) (*domain.Product, error)
	Update(ctx context.Context, productID, userID string, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, productID, userID string) error
}

type productService struct {
	productRepo     repository.ProductRepository
	categoryRepo    repository.CategoryRepository
	idempotencyRepo repository.IdempotencyRepository
	skuGen          *sku.Generator
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	idempotencyRepo repository.IdempotencyRepository,
	skuGen *sku.Generator,
) ProductService {
	return &productService{
		productRepo:     productRepo,
		categoryRepo:    categoryRepo,
		idempotencyRepo: idempotencyRepo,
		skuGen:          skuGen,
	}
}

// Create materializes a new product listing. When idempotencyKey is
// non-empty, a retry carrying the same key from the same user within
// the TTL window returns the originally created product instead of
// creating a second one.
func (s *productService) Create(ctx context.Context, userID string, input CreateProductInput, idempotencyKey string) (*domain.Product, error) {
	if idempotencyKey != "" {
		replayed, err := s.replayIdempotentCreate(ctx, idempotencyKey, userID)
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			return replayed, nil
		}
	}

	duplicate, err := s.productRepo.FindDuplicate(ctx, userID, input.Name, input.Price)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check duplicate product: %w", err)
	}
	if duplicate != nil {
		return nil, apperror.Conflict("A product with the same name and price already exists")
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, apperror.BadRequest("Category not found")
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	productSKU, err := s.skuGen.GenerateProductSKU(ctx, input.CategoryID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          identifier.Generate(identifier.PrefixProduct),
		SKU:         productSKU,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		UnitPrice:   money.FloatToKobo(input.Price),
		Currency:    money.CurrencyCode,
		StockLevel:  input.StockLevel,
		CategoryID:  input.CategoryID,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if idempotencyKey != "" {
		record := &domain.IdempotencyKey{
			ID:        identifier.Generate(identifier.PrefixIdempotencyKey),
			Key:       idempotencyKey,
			UserID:    userID,
			ProductID: product.ID,
			ExpiresAt: now.Add(IdempotencyTTL),
			CreatedAt: now,
		}
		if err := s.idempotencyRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to store idempotency key: %w", err)
		}
	}

	return product, nil
}

// replayIdempotentCreate returns the product created by an earlier use
// of the key, or nil when the user has no live record for it. Records
// are scoped per user, so another user's key is simply absent here and
// creation falls through to the duplicate-listing rule.
func (s *productService) replayIdempotentCreate(ctx context.Context, key, userID string) (*domain.Product, error) {
	record, err := s.idempotencyRepo.FindByKey(ctx, key, userID)
	if err != nil {
		if errors.Is(err, repository.ErrIdempotencyKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	if record.ProductID == "" {
		return nil, nil
	}

	product, err := s.productRepo.FindByID(ctx, record.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load product for idempotency key: %w", err)
	}

	return product, nil
}

// List retrieves a filtered, paginated product listing
func (s *productService) List(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	return s.list(ctx, "", query)
}

// ListByCreator retrieves the given user's own product listings
func (s *productService) ListByCreator(ctx context.Context, userID string, query ProductQuery) (*ProductPage, error) {
	return s.list(ctx, userID, query)
}

func (s *productService) list(ctx context.Context, createdBy string, query ProductQuery) (*ProductPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sortOrder := repository.SortOrderDesc
	if query.SortOrder == "asc" || query.SortOrder == "ASC" {
		sortOrder = repository.SortOrderAsc
	}

	filter := repository.ProductFilter{
		CategoryID: query.CategoryID,
		CreatedBy:  createdBy,
		Search:     query.Search,
		MinPrice:   query.MinPrice,
		MaxPrice:   query.MaxPrice,
		InStock:    query.InStock,
		Page:       page,
		Limit:      limit,
		SortBy:     query.SortBy,
		SortOrder:  sortOrder,
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := (total + limit - 1) / limit

	return &ProductPage{
		Data: products,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetByID retrieves a single product
func (s *productService) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Update modifies a product owned by userID. A category change
// regenerates the SKU; a price change recomputes the kobo unit price.
func (s *productService) Update(ctx context.Context, productID, userID string, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if product.CreatedBy != userID {
		return nil, apperror.Forbidden("You can only update your own products")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
		product.UnitPrice = money.FloatToKobo(*input.Price)
	}
	if input.StockLevel != nil {
		product.StockLevel = *input.StockLevel
	}

	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, apperror.BadRequest("Category not found")
			}
			return nil, fmt.Errorf("failed to find category: %w", err)
		}

		newSKU, err := s.skuGen.GenerateProductSKU(ctx, *input.CategoryID, userID)
		if err != nil {
			return nil, err
		}
		product.CategoryID = *input.CategoryID
		product.SKU = newSKU
	}

	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product owned by userID
func (s *productService) Delete(ctx context.Context, productID, userID string) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperror.NotFound("Product not found")
		}
		return fmt.Errorf("failed to find product: %w", err)
	}

	if product.CreatedBy != userID {
		return apperror.Forbidden("You can only delete your own products")
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}
