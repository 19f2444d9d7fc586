package store

import (
	"context"

	"github.com/shopspring/decimal"

	"ergili-bookshop/internal/domain"
)

// UpdateUserParams holds the profile fields a user may change. Nil fields
// are left untouched (shallow field-by-field merge).
type UpdateUserParams struct {
	FullName *string
	Avatar   *string
	Address  *string
	Phone    *string
}

// UserStorer defines storage operations for user accounts.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*domain.User, error)
}

// CategoryStorer defines storage operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// ListProductsParams narrows a product listing. CategoryID takes precedence
// over SearchQuery when both are set.
type ListProductsParams struct {
	CategoryID  *int64
	SearchQuery *string
}

// UpdateProductParams holds a partial product update. Nil fields are left
// untouched. ClearDiscountPrice removes an existing discount; it wins over
// DiscountPrice when both are set.
type UpdateProductParams struct {
	Name               *string
	Description        *string
	Price              *decimal.Decimal
	DiscountPrice      *decimal.Decimal
	ClearDiscountPrice bool
	CategoryID         *int64
	ImageURL           *string
	InStock            *bool
	IsFeatured         *bool
	IsBestseller       *bool
	IsNew              *bool
	DiscountPercentage *int32
}

// ProductStorer defines storage operations for the catalog.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	// ListProducts returns products in insertion order. Category filter wins
	// over search when both params are given.
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error)
	ListFeaturedProducts(ctx context.Context) ([]domain.Product, error)
	ListBestsellingProducts(ctx context.Context) ([]domain.Product, error)
	ListNewProducts(ctx context.Context) ([]domain.Product, error)
	// SearchProducts matches the term case-insensitively against name or
	// description. An empty term matches everything.
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (*domain.Product, error)
	// GetProductWithDetails joins the product with its category and review
	// aggregates. An orphaned category reference surfaces as
	// ErrCategoryNotFound rather than a partial result.
	GetProductWithDetails(ctx context.Context, id int64) (*domain.ProductWithDetails, error)
}

// ReviewStorer defines storage operations for product reviews.
type ReviewStorer interface {
	// CreateReview fails with ErrProductNotFound or ErrUserNotFound when
	// either reference does not resolve; no orphaned review is ever stored.
	CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error)
	ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error)
	// GetProductAverageRating returns the arithmetic mean of all ratings for
	// the product, 0 when it has no reviews.
	GetProductAverageRating(ctx context.Context, productID int64) (float64, error)
}

// CartStorer defines storage operations for carts and their lines.
type CartStorer interface {
	// GetOrCreateCart returns the user's cart, creating it on first access.
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	GetCartByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	// GetCartWithItems resolves every line's product and computes the total
	// from current unit prices. A line whose product no longer resolves is a
	// data-integrity fault and fails the whole call with ErrProductNotFound.
	GetCartWithItems(ctx context.Context, cartID int64) (*domain.CartWithItems, error)
	// AddCartItem merges quantity into an existing (cartID, productID) line
	// instead of creating a duplicate row.
	AddCartItem(ctx context.Context, cartID, productID int64, quantity int32) (*domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int32) (*domain.CartItem, error)
	RemoveCartItem(ctx context.Context, itemID int64) error
	// ClearCart removes every line of the cart. Clearing an empty cart is
	// not an error.
	ClearCart(ctx context.Context, cartID int64) error
}

// OrderStorer defines storage operations for orders.
type OrderStorer interface {
	// PlaceOrder converts the user's cart into an order: computes the total,
	// creates the order with status pending, snapshots one order item per
	// cart line at the current unit price, and clears the cart. The steps
	// are a single logical unit; implementations must not leave a partially
	// populated order behind. Fails with ErrEmptyCart when the user has no
	// cart or no cart lines.
	PlaceOrder(ctx context.Context, userID int64, address, phone string) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	// ListOrdersByUser returns the user's orders, newest first.
	ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	// GetOrderWithItems joins order items with their current product records
	// for display. Line prices always come from the snapshot.
	GetOrderWithItems(ctx context.Context, orderID int64) (*domain.OrderWithItems, error)
}

// Storage is the full capability set a storefront backend needs. Both the
// in-memory store and the Postgres store implement it, so callers never
// depend on the backing technology.
type Storage interface {
	UserStorer
	CategoryStorer
	ProductStorer
	ReviewStorer
	CartStorer
	OrderStorer
}
