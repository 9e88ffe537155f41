package transport

import (
	"net/http"

	"github.com/Aphatheology/future-stack-assessment/internal/middleware"
	"github.com/Aphatheology/future-stack-assessment/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID string `json:"productId" validate:"required,product_id"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateCartItemRequest represents the set-quantity payload
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Every cart operation
// requires authentication; the cart is resolved from the caller.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productId}", h.UpdateItemQuantity)
		r.Delete("/items/{productId}", h.RemoveItem)
	})
}

// GetCart returns the caller's cart, creating it on first access
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// AddItem adds a product to the caller's cart, merging quantities when
// the product is already present
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart item validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to add item to cart")
		return
	}

	h.logger.Info("Cart item added",
		zap.String("user_id", userID),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// UpdateItemQuantity sets the absolute quantity of a cart line
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := chi.URLParam(r, "productId")

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart quantity validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.cartService.UpdateItemQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to update cart item")
		return
	}

	h.logger.Info("Cart item quantity updated",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// RemoveItem deletes a product's line from the caller's cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := chi.URLParam(r, "productId")

	view, err := h.cartService.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondServiceError(h.logger, w, err, "failed to remove cart item")
		return
	}

	h.logger.Info("Cart item removed",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
	)
	middleware.RespondWithJSON(w, http.StatusOK, view)
}
