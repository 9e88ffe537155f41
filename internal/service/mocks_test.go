package service

import (
	"context"
	"errors"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/domain"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"
)

// In-memory repository doubles shared across the service tests.

type mockUserRepository struct {
	users map[string]*domain.User // keyed by email
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockSessionRepository struct {
	sessions map[string]*domain.UserSession // keyed by session id
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*domain.UserSession)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.UserSession) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepository) FindActive(ctx context.Context, id, userID, refreshToken string) (*domain.UserSession, error) {
	session, exists := m.sessions[id]
	if !exists || session.Deleted || session.UserID != userID ||
		session.RefreshToken != refreshToken || session.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockSessionRepository) SoftDelete(ctx context.Context, id string) error {
	session, exists := m.sessions[id]
	if !exists {
		return repository.ErrSessionNotFound
	}
	now := time.Now()
	session.Deleted = true
	session.DeletedAt = &now
	return nil
}

type mockCategoryRepository struct {
	categories map[string]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[string]*domain.Category)}
}

func (m *mockCategoryRepository) add(name string) *domain.Category {
	category := &domain.Category{
		ID:        identifier.Generate(identifier.PrefixCategory),
		Name:      name,
		CreatedAt: time.Now(),
	}
	m.categories[category.ID] = category
	return category
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

type mockProductRepository struct {
	products map[string]*domain.Product // keyed by product id
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[string]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	for _, product := range m.products {
		if product.SKU == sku {
			return product, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) FindDuplicate(ctx context.Context, createdBy, name string, price float64) (*domain.Product, error) {
	for _, product := range m.products {
		if product.CreatedBy == createdBy && product.Name == name && product.Price == price {
			return product, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	matched := make([]*domain.Product, 0, len(m.products))
	for _, product := range m.products {
		if filter.CreatedBy != "" && product.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.CategoryID != "" && product.CategoryID != filter.CategoryID {
			continue
		}
		matched = append(matched, product)
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type mockIdempotencyRepository struct {
	records map[string]*domain.IdempotencyKey // keyed by client key + user id
}

func newMockIdempotencyRepository() *mockIdempotencyRepository {
	return &mockIdempotencyRepository{records: make(map[string]*domain.IdempotencyKey)}
}

func idempotencyRecordKey(key, userID string) string {
	return key + "\x00" + userID
}

func (m *mockIdempotencyRepository) Create(ctx context.Context, record *domain.IdempotencyKey) error {
	composite := idempotencyRecordKey(record.Key, record.UserID)
	if _, exists := m.records[composite]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	m.records[composite] = record
	return nil
}

func (m *mockIdempotencyRepository) FindByKey(ctx context.Context, key, userID string) (*domain.IdempotencyKey, error) {
	record, exists := m.records[idempotencyRecordKey(key, userID)]
	if !exists || !record.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrIdempotencyKeyNotFound
	}
	return record, nil
}

func (m *mockIdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	for key, record := range m.records {
		if !record.ExpiresAt.After(time.Now()) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// mockCartRepository mirrors the transactional stock checks of the real
// repository against the product double's stock levels.
type mockCartRepository struct {
	products *mockProductRepository
	carts    map[string]*domain.Cart     // keyed by user id
	items    map[string][]*domain.CartItem // keyed by cart id, insertion order
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{
		products: products,
		carts:    make(map[string]*domain.Cart),
		items:    make(map[string][]*domain.CartItem),
	}
}

func (m *mockCartRepository) GetOrCreateForUser(ctx context.Context, userID, newCartID string) (*domain.Cart, error) {
	if cart, exists := m.carts[userID]; exists {
		return cart, nil
	}
	cart := &domain.Cart{
		ID:        newCartID,
		CreatedBy: userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.carts[userID] = cart
	return cart, nil
}

func (m *mockCartRepository) ListItems(ctx context.Context, cartID string) ([]*domain.CartItemDetail, error) {
	lines := m.items[cartID]
	details := make([]*domain.CartItemDetail, 0, len(lines))
	for _, line := range lines {
		product, exists := m.products.products[line.ProductID]
		if !exists {
			continue
		}
		details = append(details, &domain.CartItemDetail{
			ProductID:   product.ID,
			SKU:         product.SKU,
			ProductName: product.Name,
			Price:       product.Price,
			UnitPrice:   product.UnitPrice,
			Currency:    product.Currency,
			Quantity:    line.Quantity,
		})
	}
	return details, nil
}

func (m *mockCartRepository) FindItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	for _, line := range m.items[cartID] {
		if line.ProductID == productID {
			return line, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID, productID, newItemID string, quantity int) error {
	product, exists := m.products.products[productID]
	if !exists {
		return repository.ErrProductNotFound
	}

	existing := 0
	for _, line := range m.items[cartID] {
		if line.ProductID == productID {
			existing = line.Quantity
			break
		}
	}

	merged := existing + quantity
	if merged > product.StockLevel {
		return &repository.StockExceededError{Requested: merged, Available: product.StockLevel}
	}

	for _, line := range m.items[cartID] {
		if line.ProductID == productID {
			line.Quantity = merged
			return nil
		}
	}
	m.items[cartID] = append(m.items[cartID], &domain.CartItem{
		ID:        newItemID,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	return nil
}

func (m *mockCartRepository) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	product, exists := m.products.products[productID]
	if !exists {
		return repository.ErrProductNotFound
	}

	for _, line := range m.items[cartID] {
		if line.ProductID == productID {
			if quantity > product.StockLevel {
				return &repository.StockExceededError{Requested: quantity, Available: product.StockLevel}
			}
			line.Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	lines := m.items[cartID]
	for i, line := range lines {
		if line.ProductID == productID {
			m.items[cartID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}
