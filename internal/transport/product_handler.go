package transport

import (
	"net/http"
	"strconv"

	"github.com/Aphatheology/future-stack-assessment/internal/middleware"
	"github.com/Aphatheology/future-stack-assessment/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	StockLevel  int     `json:"stockLevel" validate:"gte=0"`
	CategoryID  string  `json:"categoryId" validate:"required,category_id"`
}

// UpdateProductRequest represents the product update payload; omitted
// fields are left unchanged
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	StockLevel  *int     `json:"stockLevel" validate:"omitempty,gte=0"`
	CategoryID  *string  `json:"categoryId" validate:"omitempty,category_id"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.With(middleware.RequireIdempotencyKey).Post("/", h.Create)
			r.Get("/mine", h.ListMine)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Create handles product creation. Requests must carry an
// X-Idempotency-Key header; replays within the key's lifetime return
// the originally created product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	idempotencyKey, ok := middleware.GetIdempotencyKey(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "X-Idempotency-Key header is required")
		return
	}

	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), userID, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockLevel:  req.StockLevel,
		CategoryID:  req.CategoryID,
	}, idempotencyKey)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.String("created_by", userID),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// List handles the public product listing with filters and pagination
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := parseProductQuery(r)

	page, err := h.productService.List(r.Context(), query)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// ListMine handles listing the authenticated user's own products
func (h *ProductHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := parseProductQuery(r)

	page, err := h.productService.ListByCreator(r.Context(), userID, query)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetByID handles fetching a single product
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	product, err := h.productService.GetByID(r.Context(), productID)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles product updates by the owning user
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := chi.URLParam(r, "id")

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), productID, userID, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StockLevel:  req.StockLevel,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to update product")
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles product deletion by the owning user
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := chi.URLParam(r, "id")

	if err := h.productService.Delete(r.Context(), productID, userID); err != nil {
		respondServiceError(h.logger, w, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", productID))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// parseProductQuery reads the listing filters from query parameters.
// Invalid numeric values are ignored rather than rejected.
func parseProductQuery(r *http.Request) service.ProductQuery {
	q := r.URL.Query()

	query := service.ProductQuery{
		CategoryID: q.Get("categoryId"),
		Search:     q.Get("search"),
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		query.Limit = limit
	}
	if minPrice, err := strconv.ParseFloat(q.Get("minPrice"), 64); err == nil {
		query.MinPrice = &minPrice
	}
	if maxPrice, err := strconv.ParseFloat(q.Get("maxPrice"), 64); err == nil {
		query.MaxPrice = &maxPrice
	}
	if raw := q.Get("inStock"); raw != "" {
		if inStock, err := strconv.ParseBool(raw); err == nil {
			query.InStock = &inStock
		}
	}

	return query
}
