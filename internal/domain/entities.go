package domain

import "time"

// User represents a registered account. IDs are prefixed ULIDs (usr_...).
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserSession stores a refresh token issued at login or registration.
// Sessions are soft-deleted on logout and on rotation.
type UserSession struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	Deleted      bool       `json:"deleted" db:"deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Category represents a product category
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Product represents a listing in the catalog.
//
// Price is the naira amount as entered by the seller; UnitPrice is the
// same amount in kobo and is the only field used for arithmetic.
type Product struct {
	ID          string    `json:"id" db:"id"`
	SKU         string    `json:"sku" db:"sku"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	UnitPrice   int64     `json:"unitPrice" db:"unit_price"`
	Currency    string    `json:"currency" db:"currency"`
	StockLevel  int       `json:"stockLevel" db:"stock_level"`
	CategoryID  string    `json:"categoryId" db:"category_id"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Cart is the per-user cart aggregate. Exactly one cart exists per
// user; it is created lazily on first access and never deleted.
type Cart struct {
	ID        string    `json:"id" db:"id"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is a single cart line. A cart holds at most one line per
// product; quantity is always >= 1.
type CartItem struct {
	ID        string    `json:"id" db:"id"`
	CartID    string    `json:"cartId" db:"cart_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItemDetail is a cart line joined with live product data, as read
// back when building a cart view.
type CartItemDetail struct {
	ProductID   string
	SKU         string
	ProductName string
	Price       float64
	UnitPrice   int64
	Currency    string
	Quantity    int
}

// IdempotencyKey maps a client-supplied creation key to the product it
// first produced. Looked up on retries; swept after ExpiresAt.
type IdempotencyKey struct {
	ID        string    `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
