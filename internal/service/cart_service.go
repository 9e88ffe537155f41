package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/money"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
)

// CartViewItem is a cart line joined with live product data and its
// computed total
type CartViewItem struct {
	ProductID      string  `json:"productId"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	UnitPrice      int64   `json:"unitPrice"`
	Currency       string  `json:"currency"`
	Quantity       int     `json:"quantity"`
	ItemTotalKobo  int64   `json:"itemTotalKobo"`
	ItemTotalNaira float64 `json:"itemTotalNaira"`
}

// CartView is the full cart as returned by every cart operation.
// Totals are computed in kobo; naira figures are display-only.
type CartView struct {
	ID            string         `json:"id"`
	Items         []CartViewItem `json:"items"`
	SubtotalKobo  int64          `json:"subtotalKobo"`
	SubtotalNaira float64        `json:"subtotalNaira"`
}

// CartService defines the interface for cart business logic. Every
// operation is user-scoped and fetches or lazily creates the user's
// cart on entry.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*CartView, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (*CartView, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the user's cart with live product data and totals.
// An empty cart is a valid result; GetCart never mutates stock.
func (s *cartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreateForUser(ctx, userID, identifier.Generate(identifier.PrefixCart))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return s.buildView(ctx, cart.ID)
}

// AddItem merges quantity into the user's line for the product,
// enforcing the stock invariant inside a single transaction
func (s *cartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.BadRequest("Quantity must be at least 1")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if product.CreatedBy == userID {
		return nil, apperror.BadRequest("You cannot add your own products to your cart")
	}

	cart, err := s.cartRepo.GetOrCreateForUser(ctx, userID, identifier.Generate(identifier.PrefixCart))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	newItemID := identifier.Generate(identifier.PrefixCartItem)
	if err := s.cartRepo.AddItem(ctx, cart.ID, productID, newItemID, quantity); err != nil {
		return nil, translateCartMutationError(err)
	}

	return s.buildView(ctx, cart.ID)
}

// UpdateItemQuantity sets the line to an absolute quantity, enforcing
// the stock invariant inside a single transaction
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.BadRequest("Quantity must be at least 1")
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	cart, err := s.cartRepo.GetOrCreateForUser(ctx, userID, identifier.Generate(identifier.PrefixCart))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	if err := s.cartRepo.SetItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, translateCartMutationError(err)
	}

	return s.buildView(ctx, cart.ID)
}

// RemoveItem deletes the user's line for the product
func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	cart, err := s.cartRepo.GetOrCreateForUser(ctx, userID, identifier.Generate(identifier.PrefixCart))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, apperror.NotFound("Item not found in cart")
		}
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.buildView(ctx, cart.ID)
}

// buildView reads the cart's lines back after a mutation and computes
// per-line and overall totals in kobo
func (s *cartService) buildView(ctx context.Context, cartID string) (*CartView, error) {
	details, err := s.cartRepo.ListItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	items := make([]CartViewItem, 0, len(details))
	var subtotalKobo int64

	for _, d := range details {
		itemTotal := d.UnitPrice * int64(d.Quantity)
		subtotalKobo += itemTotal
		items = append(items, CartViewItem{
			ProductID:      d.ProductID,
			SKU:            d.SKU,
			Name:           d.ProductName,
			Price:          d.Price,
			UnitPrice:      d.UnitPrice,
			Currency:       d.Currency,
			Quantity:       d.Quantity,
			ItemTotalKobo:  itemTotal,
			ItemTotalNaira: money.KoboToNaira(itemTotal),
		})
	}

	return &CartView{
		ID:            cartID,
		Items:         items,
		SubtotalKobo:  subtotalKobo,
		SubtotalNaira: money.KoboToNaira(subtotalKobo),
	}, nil
}

// translateCartMutationError maps repository-level cart mutation
// failures onto the operational taxonomy
func translateCartMutationError(err error) error {
	var stockErr *repository.StockExceededError
	switch {
	case errors.As(err, &stockErr):
		return apperror.BadRequest(stockErr.Error())
	case errors.Is(err, repository.ErrCartItemNotFound):
		return apperror.NotFound("Item not found in cart")
	case errors.Is(err, repository.ErrProductNotFound):
		return apperror.NotFound("Product not found")
	default:
		return fmt.Errorf("cart mutation failed: %w", err)
	}
}
