package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aphatheology/future-stack-assessment/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows and pages a product listing. Zero values mean
// "no constraint"; Page and Limit are expected to be normalized by the
// service before the filter reaches the repository.
type ProductFilter struct {
	CategoryID string
	CreatedBy  string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	Page       int
	Limit      int
	SortBy     string
	SortOrder  SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	FindDuplicate(ctx context.Context, createdBy, name string, price float64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, sku, name, description, price, unit_price, currency, stock_level, category_id, created_by, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.UnitPrice,
		&product.Currency,
		&product.StockLevel,
		&product.CategoryID,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, sku, name, description, price, unit_price, currency, stock_level, category_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.UnitPrice,
		product.Currency,
		product.StockLevel,
		product.CategoryID,
		product.CreatedBy,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, description = $4, price = $5, unit_price = $6,
		    stock_level = $7, category_id = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.UnitPrice,
		product.StockLevel,
		product.CategoryID,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySKU retrieves a product by its SKU, used for collision checks
// during SKU generation
func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE sku = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by SKU: %w", err)
	}

	return product, nil
}

// FindDuplicate retrieves a product with the same creator, name and
// price, used to enforce the duplicate-listing business rule
func (r *productRepository) FindDuplicate(ctx context.Context, createdBy, name string, price float64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE created_by = $1 AND name = $2 AND price = $3`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, createdBy, name, price))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find duplicate product: %w", err)
	}

	return product, nil
}

// List retrieves products matching the filter with pagination and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":        true,
		"price":       true,
		"created_at":  true,
		"stock_level": true,
		"sku":         true,
	}

	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	// Build the WHERE clause
	whereClause := ""
	args := []any{}
	argIndex := 1

	addCondition := func(condition string, value any) {
		if whereClause == "" {
			whereClause = "WHERE "
		} else {
			whereClause += " AND "
		}
		whereClause += fmt.Sprintf(condition, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.CategoryID != "" {
		addCondition("category_id = $%d", filter.CategoryID)
	}
	if filter.CreatedBy != "" {
		addCondition("created_by = $%d", filter.CreatedBy)
	}
	if filter.Search != "" {
		addCondition("(name ILIKE $%[1]d OR description ILIKE $%[1]d OR sku ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.MinPrice != nil {
		addCondition("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addCondition("price <= $%d", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			if whereClause == "" {
				whereClause = "WHERE stock_level > 0"
			} else {
				whereClause += " AND stock_level > 0"
			}
		} else {
			if whereClause == "" {
				whereClause = "WHERE stock_level = 0"
			} else {
				whereClause += " AND stock_level = 0"
			}
		}
	}

	// Count total matching products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, filter.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
