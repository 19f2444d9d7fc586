package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ergili-bookshop/internal/domain"
)

// MemoryStore implements Storage with plain maps guarded by a single
// RWMutex. Identifiers are monotonically increasing per entity, start at 1
// and are never reused. Because every exported operation holds the lock for
// its full duration, multi-step mutations (notably PlaceOrder) are
// all-or-nothing without an explicit transaction layer.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[int64]*domain.User
	categories map[int64]*domain.Category
	products   map[int64]*domain.Product
	reviews    map[int64]*domain.Review
	carts      map[int64]*domain.Cart
	cartItems  map[int64]*domain.CartItem
	orders     map[int64]*domain.Order
	orderItems map[int64]*domain.OrderItem

	nextUserID      int64
	nextCategoryID  int64
	nextProductID   int64
	nextReviewID    int64
	nextCartID      int64
	nextCartItemID  int64
	nextOrderID     int64
	nextOrderItemID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:           make(map[int64]*domain.User),
		categories:      make(map[int64]*domain.Category),
		products:        make(map[int64]*domain.Product),
		reviews:         make(map[int64]*domain.Review),
		carts:           make(map[int64]*domain.Cart),
		cartItems:       make(map[int64]*domain.CartItem),
		orders:          make(map[int64]*domain.Order),
		orderItems:      make(map[int64]*domain.OrderItem),
		nextUserID:      1,
		nextCategoryID:  1,
		nextProductID:   1,
		nextReviewID:    1,
		nextCartID:      1,
		nextCartItemID:  1,
		nextOrderID:     1,
		nextOrderItemID: 1,
	}
}

// sortedIDs returns the map's keys in ascending order. Ids are assigned
// monotonically, so ascending id order is insertion order.
func sortedIDs[T any](m map[int64]*T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- UserStorer ---

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, ErrUsernameExists
		}
		if u.Email == user.Email {
			return nil, ErrEmailExists
		}
	}

	created := *user
	created.ID = s.nextUserID
	s.nextUserID++
	created.CreatedAt = time.Now().UTC()
	s.users[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedIDs(s.users) {
		if s.users[id].Username == username {
			out := *s.users[id]
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedIDs(s.users) {
		if s.users[id].Email == email {
			out := *s.users[id]
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) UpdateUser(_ context.Context, id int64, params UpdateUserParams) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	if params.FullName != nil {
		user.FullName = params.FullName
	}
	if params.Avatar != nil {
		user.Avatar = params.Avatar
	}
	if params.Address != nil {
		user.Address = params.Address
	}
	if params.Phone != nil {
		user.Phone = params.Phone
	}

	out := *user
	return &out, nil
}

// --- CategoryStorer ---

func (s *MemoryStore) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *category
	created.ID = s.nextCategoryID
	s.nextCategoryID++
	s.categories[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) GetCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	out := *category
	return &out, nil
}

func (s *MemoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, id := range sortedIDs(s.categories) {
		categories = append(categories, *s.categories[id])
	}
	return categories, nil
}

// recomputeCategoryCounts rebuilds every category's cached product count by
// a full rescan over all products. O(products) per call; fine for catalog
// sizes this store is meant for. Caller must hold the write lock.
func (s *MemoryStore) recomputeCategoryCounts() {
	for _, category := range s.categories {
		category.ProductCount = 0
	}
	for _, product := range s.products {
		if category, ok := s.categories[product.CategoryID]; ok {
			category.ProductCount++
		}
	}
}

// --- ProductStorer ---

func (s *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, ErrCategoryNotFound
	}

	created := *product
	created.ID = s.nextProductID
	s.nextProductID++
	created.CreatedAt = time.Now().UTC()
	s.products[created.ID] = &created

	s.recomputeCategoryCounts()

	out := created
	return &out, nil
}

func (s *MemoryStore) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	out := *product
	return &out, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, params ListProductsParams) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Category filter wins over search term when both are present.
	if params.CategoryID != nil {
		return s.filterProducts(func(p *domain.Product) bool {
			return p.CategoryID == *params.CategoryID
		}), nil
	}
	if params.SearchQuery != nil && *params.SearchQuery != "" {
		return s.filterProducts(matchesSearch(*params.SearchQuery)), nil
	}
	return s.filterProducts(func(*domain.Product) bool { return true }), nil
}

func (s *MemoryStore) ListFeaturedProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProducts(func(p *domain.Product) bool { return p.IsFeatured }), nil
}

func (s *MemoryStore) ListBestsellingProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProducts(func(p *domain.Product) bool { return p.IsBestseller }), nil
}

func (s *MemoryStore) ListNewProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProducts(func(p *domain.Product) bool { return p.IsNew }), nil
}

func (s *MemoryStore) SearchProducts(_ context.Context, term string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterProducts(matchesSearch(term)), nil
}

// filterProducts returns copies of the products matching keep, in insertion
// order. Caller must hold at least the read lock.
func (s *MemoryStore) filterProducts(keep func(*domain.Product) bool) []domain.Product {
	products := make([]domain.Product, 0)
	for _, id := range sortedIDs(s.products) {
		if keep(s.products[id]) {
			products = append(products, *s.products[id])
		}
	}
	return products
}

// matchesSearch builds a case-insensitive substring predicate over product
// name and description. An empty term matches everything.
func matchesSearch(term string) func(*domain.Product) bool {
	needle := strings.ToLower(term)
	return func(p *domain.Product) bool {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return true
		}
		return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), needle)
	}
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id int64, params UpdateProductParams) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}

	previousCategoryID := product.CategoryID

	if params.CategoryID != nil {
		if _, ok := s.categories[*params.CategoryID]; !ok {
			return nil, ErrCategoryNotFound
		}
		product.CategoryID = *params.CategoryID
	}
	if params.Name != nil {
		product.Name = *params.Name
	}
	if params.Description != nil {
		product.Description = params.Description
	}
	if params.Price != nil {
		product.Price = *params.Price
	}
	if params.ClearDiscountPrice {
		product.DiscountPrice = nil
	} else if params.DiscountPrice != nil {
		product.DiscountPrice = params.DiscountPrice
	}
	if params.ImageURL != nil {
		product.ImageURL = *params.ImageURL
	}
	if params.InStock != nil {
		product.InStock = *params.InStock
	}
	if params.IsFeatured != nil {
		product.IsFeatured = *params.IsFeatured
	}
	if params.IsBestseller != nil {
		product.IsBestseller = *params.IsBestseller
	}
	if params.IsNew != nil {
		product.IsNew = *params.IsNew
	}
	if params.DiscountPercentage != nil {
		product.DiscountPercentage = params.DiscountPercentage
	}

	if product.CategoryID != previousCategoryID {
		s.recomputeCategoryCounts()
	}

	out := *product
	return &out, nil
}

func (s *MemoryStore) GetProductWithDetails(_ context.Context, id int64) (*domain.ProductWithDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	category, ok := s.categories[product.CategoryID]
	if !ok {
		// Orphaned category reference is a data-integrity fault; surface it
		// as not-found rather than returning a half-joined record.
		return nil, ErrCategoryNotFound
	}

	avg, count := s.reviewAggregate(id)
	return &domain.ProductWithDetails{
		Product:     *product,
		Category:    *category,
		AvgRating:   avg,
		ReviewCount: count,
	}, nil
}

// reviewAggregate computes the average rating and review count for a
// product. Caller must hold at least the read lock.
func (s *MemoryStore) reviewAggregate(productID int64) (float64, int) {
	var sum int64
	var count int
	for _, review := range s.reviews {
		if review.ProductID == productID {
			sum += int64(review.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

// --- ReviewStorer ---

func (s *MemoryStore) CreateReview(_ context.Context, review *domain.Review) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[review.ProductID]; !ok {
		return nil, ErrProductNotFound
	}
	if _, ok := s.users[review.UserID]; !ok {
		return nil, ErrUserNotFound
	}

	created := *review
	created.ID = s.nextReviewID
	s.nextReviewID++
	created.CreatedAt = time.Now().UTC()
	s.reviews[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) ListReviewsByProduct(_ context.Context, productID int64) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := make([]domain.Review, 0)
	for _, id := range sortedIDs(s.reviews) {
		if s.reviews[id].ProductID == productID {
			reviews = append(reviews, *s.reviews[id])
		}
	}
	return reviews, nil
}

func (s *MemoryStore) GetProductAverageRating(_ context.Context, productID int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	avg, _ := s.reviewAggregate(productID)
	return avg, nil
}

// --- CartStorer ---

func (s *MemoryStore) GetOrCreateCart(_ context.Context, userID int64) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart := s.findCartByUser(userID); cart != nil {
		out := *cart
		return &out, nil
	}

	cart := &domain.Cart{
		ID:        s.nextCartID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	s.nextCartID++
	s.carts[cart.ID] = cart

	out := *cart
	return &out, nil
}

func (s *MemoryStore) GetCartByUserID(_ context.Context, userID int64) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := s.findCartByUser(userID)
	if cart == nil {
		return nil, ErrCartNotFound
	}
	out := *cart
	return &out, nil
}

// findCartByUser returns the user's cart or nil. Caller must hold a lock.
func (s *MemoryStore) findCartByUser(userID int64) *domain.Cart {
	for _, cart := range s.carts {
		if cart.UserID == userID {
			return cart
		}
	}
	return nil
}

func (s *MemoryStore) GetCartWithItems(_ context.Context, cartID int64) (*domain.CartWithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartWithItems(cartID)
}

// cartWithItems resolves a cart's lines and computes the total from current
// unit prices. Caller must hold at least the read lock.
func (s *MemoryStore) cartWithItems(cartID int64) (*domain.CartWithItems, error) {
	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}

	items := make([]domain.CartLine, 0)
	total := decimal.Zero
	for _, id := range sortedIDs(s.cartItems) {
		item := s.cartItems[id]
		if item.CartID != cartID {
			continue
		}
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		items = append(items, domain.CartLine{CartItem: *item, Product: *product})
		total = total.Add(product.UnitPrice().Mul(decimal.NewFromInt32(item.Quantity)))
	}

	return &domain.CartWithItems{
		Cart:       *cart,
		Items:      items,
		TotalPrice: total,
	}, nil
}

func (s *MemoryStore) AddCartItem(_ context.Context, cartID, productID int64, quantity int32) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[cartID]; !ok {
		return nil, ErrCartNotFound
	}
	if _, ok := s.products[productID]; !ok {
		return nil, ErrProductNotFound
	}

	// Merge into an existing line rather than creating a duplicate row.
	for _, item := range s.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			out := *item
			return &out, nil
		}
	}

	item := &domain.CartItem{
		ID:        s.nextCartItemID,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	s.nextCartItemID++
	s.cartItems[item.ID] = item

	out := *item
	return &out, nil
}

func (s *MemoryStore) UpdateCartItemQuantity(_ context.Context, itemID int64, quantity int32) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cartItems[itemID]
	if !ok {
		return nil, ErrCartItemNotFound
	}
	item.Quantity = quantity

	out := *item
	return &out, nil
}

func (s *MemoryStore) RemoveCartItem(_ context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cartItems[itemID]; !ok {
		return ErrCartItemNotFound
	}
	delete(s.cartItems, itemID)
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearCartLocked(cartID)
	return nil
}

// clearCartLocked removes every line of the cart. Caller must hold the
// write lock.
func (s *MemoryStore) clearCartLocked(cartID int64) {
	for id, item := range s.cartItems {
		if item.CartID == cartID {
			delete(s.cartItems, id)
		}
	}
}

// --- OrderStorer ---

func (s *MemoryStore) PlaceOrder(_ context.Context, userID int64, address, phone string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.findCartByUser(userID)
	if cart == nil {
		return nil, ErrEmptyCart
	}
	resolved, err := s.cartWithItems(cart.ID)
	if err != nil {
		return nil, err
	}
	if len(resolved.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// The lock is held across order creation, item snapshotting and cart
	// clearing, so no caller can observe a partially populated order.
	order := &domain.Order{
		ID:        s.nextOrderID,
		Reference: uuid.NewString(),
		UserID:    userID,
		Total:     resolved.TotalPrice,
		Status:    domain.OrderStatusPending,
		Address:   address,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	s.nextOrderID++
	s.orders[order.ID] = order

	for _, line := range resolved.Items {
		item := &domain.OrderItem{
			ID:        s.nextOrderItemID,
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Product.UnitPrice(),
		}
		s.nextOrderItemID++
		s.orderItems[item.ID] = item
	}

	s.clearCartLocked(cart.ID)

	out := *order
	return &out, nil
}

func (s *MemoryStore) GetOrderByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, id := range sortedIDs(s.orders) {
		if s.orders[id].UserID == userID {
			orders = append(orders, *s.orders[id])
		}
	}
	// Newest first.
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (s *MemoryStore) GetOrderWithItems(_ context.Context, orderID int64) (*domain.OrderWithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	items := make([]domain.OrderLine, 0)
	for _, id := range sortedIDs(s.orderItems) {
		item := s.orderItems[id]
		if item.OrderID != orderID {
			continue
		}
		line := domain.OrderLine{OrderItem: *item}
		// The product join is display-only; the line keeps its snapshot
		// price even when the product record has changed or is gone.
		if product, ok := s.products[item.ProductID]; ok {
			p := *product
			line.Product = &p
		}
		items = append(items, line)
	}

	return &domain.OrderWithItems{Order: *order, Items: items}, nil
}
