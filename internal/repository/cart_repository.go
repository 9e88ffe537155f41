package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/domain"
)

var ErrCartItemNotFound = errors.New("item not found in cart")

// StockExceededError is returned when a cart mutation would push a
// line's quantity past the product's current stock level.
type StockExceededError struct {
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("Requested quantity (%d) exceeds available stock (%d)", e.Requested, e.Available)
}

// CartRepository defines the interface for cart data access.
//
// AddItem and SetItemQuantity run inside a single database transaction:
// the existing line row is locked, the product's stock level is re-read,
// and the write happens only if the stock invariant holds. Two
// concurrent mutations of the same (cart, product) pair serialize on
// the row lock, so neither can pass the stock check against a stale
// quantity.
type CartRepository interface {
	GetOrCreateForUser(ctx context.Context, userID, newCartID string) (*domain.Cart, error)
	ListItems(ctx context.Context, cartID string) ([]*domain.CartItemDetail, error)
	FindItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error)
	AddItem(ctx context.Context, cartID, productID, newItemID string, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// GetOrCreateForUser returns the user's cart, creating it with newCartID
// on first access. The unique constraint on created_by guarantees at
// most one cart per user even under concurrent first access.
func (r *cartRepository) GetOrCreateForUser(ctx context.Context, userID, newCartID string) (*domain.Cart, error) {
	cart := &domain.Cart{}
	query := `SELECT id, created_by, created_at, updated_at FROM carts WHERE created_by = $1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.CreatedBy, &cart.CreatedAt, &cart.UpdatedAt)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (created_by) DO NOTHING
	`, newCartID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	// Re-read: either our insert landed or a concurrent one did.
	err = r.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.CreatedBy, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back cart: %w", err)
	}

	return cart, nil
}

// ListItems retrieves the cart's lines joined with live product data
func (r *cartRepository) ListItems(ctx context.Context, cartID string) ([]*domain.CartItemDetail, error) {
	query := `
		SELECT ci.product_id, p.sku, p.name, p.price, p.unit_price, p.currency, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItemDetail{}
	for rows.Next() {
		item := &domain.CartItemDetail{}
		err := rows.Scan(
			&item.ProductID,
			&item.SKU,
			&item.ProductName,
			&item.Price,
			&item.UnitPrice,
			&item.Currency,
			&item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// FindItem retrieves a single cart line by cart and product
func (r *cartRepository) FindItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, cartID, productID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// AddItem merges quantity into the (cart, product) line, enforcing the
// stock invariant atomically. The line is created with newItemID if it
// does not exist yet.
func (r *cartRepository) AddItem(ctx context.Context, cartID, productID, newItemID string, quantity int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := lockLineQuantity(ctx, tx, cartID, productID)
		if err != nil {
			return err
		}

		if !found {
			// Two transactions can both see the line as absent; only
			// one insert wins, so the loser falls back to the merge
			// path against the row the winner committed.
			if err := checkStock(ctx, tx, productID, quantity); err != nil {
				return err
			}

			inserted, err := insertLineIfAbsent(ctx, tx, cartID, productID, newItemID, quantity)
			if err != nil {
				return err
			}
			if inserted {
				return nil
			}

			existing, found, err = lockLineQuantity(ctx, tx, cartID, productID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("cart item for product %s vanished during insert", productID)
			}
		}

		merged := existing + quantity
		if err := checkStock(ctx, tx, productID, merged); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = $3, updated_at = $4
			WHERE cart_id = $1 AND product_id = $2
		`, cartID, productID, merged, time.Now())
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		return nil
	})
}

// SetItemQuantity sets the line to an absolute quantity, enforcing the
// stock invariant atomically. The line must already exist.
func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, found, err := lockLineQuantity(ctx, tx, cartID, productID)
		if err != nil {
			return err
		}
		if !found {
			return ErrCartItemNotFound
		}

		if err := checkStock(ctx, tx, productID, quantity); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = $3, updated_at = $4
			WHERE cart_id = $1 AND product_id = $2
		`, cartID, productID, quantity, time.Now())
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		return nil
	})
}

// RemoveItem deletes the (cart, product) line
func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// inTx runs fn inside a read-committed transaction, rolling back on any
// error.
func (r *cartRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertLineIfAbsent creates the cart line only if no committed line
// exists for (cart, product). It reports whether this transaction's
// insert won.
func insertLineIfAbsent(ctx context.Context, tx *sql.Tx, cartID, productID, newItemID string, quantity int) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (cart_id, product_id) DO NOTHING
	`, newItemID, cartID, productID, quantity, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to insert cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// checkStock fails with StockExceededError when the requested quantity
// is above the product's current stock.
func checkStock(ctx context.Context, tx *sql.Tx, productID string, requested int) error {
	stock, err := readStockLevel(ctx, tx, productID)
	if err != nil {
		return err
	}
	if requested > stock {
		return &StockExceededError{Requested: requested, Available: stock}
	}
	return nil
}

// lockLineQuantity reads the current quantity of a cart line with a row
// lock. The second return reports whether the line exists.
func lockLineQuantity(ctx context.Context, tx *sql.Tx, cartID, productID string) (int, bool, error) {
	var quantity int
	err := tx.QueryRowContext(ctx, `
		SELECT quantity FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		FOR UPDATE
	`, cartID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to lock cart item: %w", err)
	}
	return quantity, true, nil
}

// readStockLevel reads the product's current stock inside the
// transaction so the check always sees a fresh value.
func readStockLevel(ctx context.Context, tx *sql.Tx, productID string) (int, error) {
	var stock int
	err := tx.QueryRowContext(ctx,
		`SELECT stock_level FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to read stock level: %w", err)
	}
	return stock, nil
}
