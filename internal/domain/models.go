package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered shop account.
// Password is an opaque credential and is never serialized in API responses.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  *string   `json:"full_name,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups products. ProductCount is a cached aggregate kept in sync
// by the store after any product create or category-changing update.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	ProductCount int    `json:"product_count"`
}

// Product represents a catalog entry. DiscountPrice, when set, is the
// effective unit price; DiscountPercentage is free-standing editorial
// metadata and is not derived from the two prices.
type Product struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Description        *string          `json:"description,omitempty"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPrice      *decimal.Decimal `json:"discount_price,omitempty"`
	CategoryID         int64            `json:"category_id"`
	ImageURL           string           `json:"image_url"`
	InStock            bool             `json:"in_stock"`
	IsFeatured         bool             `json:"is_featured"`
	IsBestseller       bool             `json:"is_bestseller"`
	IsNew              bool             `json:"is_new"`
	DiscountPercentage *int32           `json:"discount_percentage,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// UnitPrice returns the price a buyer pays for one unit right now:
// the discount price when present, the list price otherwise.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Review is a user's rating of a product. A user may review the same
// product more than once.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int32     `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewAuthor is the trimmed user record attached to reviews in API
// responses.
type ReviewAuthor struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName *string `json:"full_name,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// ReviewWithUser joins a review with its author for display. The author may
// be nil when the referenced user no longer resolves.
type ReviewWithUser struct {
	Review
	User *ReviewAuthor `json:"user,omitempty"`
}

// Cart is a user's single mutable pre-purchase collection. One active cart
// per user, created lazily on first access.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem is one product/quantity line in a cart. At most one line exists
// per (CartID, ProductID); adding the same product again merges quantities.
type CartItem struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// OrderStatus enumerates the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is created from a cart at checkout. Total is snapshotted at
// placement; everything except Status is immutable afterwards.
type Order struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	UserID    int64           `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem is a price-snapshotted order line. Price is the unit price at
// the moment the order was placed and is never recomputed from the product.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ProductWithDetails joins a product with its category and review aggregates.
type ProductWithDetails struct {
	Product
	Category    Category `json:"category"`
	AvgRating   float64  `json:"avg_rating"`
	ReviewCount int      `json:"review_count"`
}

// CartLine is a cart item with its product resolved.
type CartLine struct {
	CartItem
	Product Product `json:"product"`
}

// CartWithItems is a cart with all lines resolved and the total computed
// from current unit prices.
type CartWithItems struct {
	Cart
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderLine is an order item optionally joined with the current product
// record for display. The price shown is always the snapshot, not the
// product's live price.
type OrderLine struct {
	OrderItem
	Product *Product `json:"product,omitempty"`
}

// OrderWithItems is an order with its snapshotted lines.
type OrderWithItems struct {
	Order
	Items []OrderLine `json:"items"`
}
