package transport

import (
	"errors"
	"net/http"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/middleware"
	"github.com/Aphatheology/future-stack-assessment/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// respondServiceError writes domain errors with their mapped status and
// everything else as an opaque 500.
func respondServiceError(logger *zap.Logger, w http.ResponseWriter, err error, fallback string) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		middleware.RespondWithAppError(w, err)
		return
	}

	logger.Error(fallback, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
}

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// CategoryHandler handles HTTP requests for category operations
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes. Creation is restricted
// to admins; listing and lookup are public.
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
		})
	})
}

// Create handles category creation
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categoryService.Create(r.Context(), req.Name)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to create category")
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID), zap.String("name", category.Name))
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// List handles listing all categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// GetByID handles fetching a single category
func (h *CategoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")

	category, err := h.categoryService.GetByID(r.Context(), categoryID)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to get category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}
