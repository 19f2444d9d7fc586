package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ergili-bookshop/internal/domain"
)

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}

func decFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// newStoreWithCatalog sets up a store with one user, one category and two
// priced products, returning the created records.
func newStoreWithCatalog(t *testing.T) (*MemoryStore, *domain.User, *domain.Category, *domain.Product, *domain.Product) {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, &domain.User{Username: "reader", Email: "reader@example.com", Password: "secret1"})
	require.NoError(t, err)

	category, err := s.CreateCategory(ctx, &domain.Category{Name: "Fiction", Icon: "book"})
	require.NoError(t, err)

	discount := decFromString(t, "75.00")
	novel, err := s.CreateProduct(ctx, &domain.Product{
		Name:          "Novel",
		Price:         decFromString(t, "100.00"),
		DiscountPrice: &discount,
		CategoryID:    category.ID,
		InStock:       true,
	})
	require.NoError(t, err)

	poems, err := s.CreateProduct(ctx, &domain.Product{
		Name:       "Poems",
		Price:      decFromString(t, "40.00"),
		CategoryID: category.ID,
		InStock:    true,
	})
	require.NoError(t, err)

	return s, user, category, novel, poems
}

func TestMemoryStore_CreateUser_AssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.CreateUser(ctx, &domain.User{Username: "a", Email: "a@example.com", Password: "x"})
	require.NoError(t, err)
	second, err := s.CreateUser(ctx, &domain.User{Username: "b", Email: "b@example.com", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestMemoryStore_CreateUser_Uniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, &domain.User{Username: "dup", Email: "dup@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &domain.User{Username: "dup", Email: "other@example.com", Password: "x"})
	assert.True(t, errors.Is(err, ErrUsernameExists), "Error should be ErrUsernameExists")

	_, err = s.CreateUser(ctx, &domain.User{Username: "other", Email: "dup@example.com", Password: "x"})
	assert.True(t, errors.Is(err, ErrEmailExists), "Error should be ErrEmailExists")
}

func TestMemoryStore_UpdateUser_PartialMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, &domain.User{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "x",
		FullName: PtrTo("Old Name"),
	})
	require.NoError(t, err)

	updated, err := s.UpdateUser(ctx, user.ID, UpdateUserParams{Phone: PtrTo("+77010000000")})
	require.NoError(t, err)

	require.NotNil(t, updated.FullName)
	assert.Equal(t, "Old Name", *updated.FullName, "Omitted fields keep their values")
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+77010000000", *updated.Phone)

	_, err = s.UpdateUser(ctx, int64(99), UpdateUserParams{})
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestMemoryStore_CreateProduct_UnknownCategory(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.CreateProduct(context.Background(), &domain.Product{
		Name:       "Orphan",
		Price:      decimal.NewFromInt(10),
		CategoryID: 42,
	})
	assert.True(t, errors.Is(err, ErrCategoryNotFound))
}

func TestMemoryStore_ListProducts_CategoryFilterWinsOverSearch(t *testing.T) {
	s, _, category, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	other, err := s.CreateCategory(ctx, &domain.Category{Name: "History", Icon: "scroll"})
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, &domain.Product{
		Name:       "Novel approaches to history",
		Price:      decimal.NewFromInt(50),
		CategoryID: other.ID,
		InStock:    true,
	})
	require.NoError(t, err)

	// Both filters supplied: only the category filter applies.
	products, err := s.ListProducts(ctx, ListProductsParams{
		CategoryID:  PtrTo(category.ID),
		SearchQuery: PtrTo("history"),
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, novel.ID, products[0].ID)

	// Search alone is case-insensitive over name and description.
	products, err = s.ListProducts(ctx, ListProductsParams{SearchQuery: PtrTo("NOVEL")})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestMemoryStore_FlagLists(t *testing.T) {
	s, _, category, _, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	featured, err := s.CreateProduct(ctx, &domain.Product{
		Name:       "Featured Book",
		Price:      decimal.NewFromInt(20),
		CategoryID: category.ID,
		IsFeatured: true,
		IsNew:      true,
	})
	require.NoError(t, err)

	got, err := s.ListFeaturedProducts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, featured.ID, got[0].ID)

	got, err = s.ListBestsellingProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListNewProducts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, featured.ID, got[0].ID)
}

func TestMemoryStore_CategoryProductCount(t *testing.T) {
	s, _, category, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	got, err := s.GetCategoryByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ProductCount)

	// Moving a product to another category adjusts both counts.
	other, err := s.CreateCategory(ctx, &domain.Category{Name: "History", Icon: "scroll"})
	require.NoError(t, err)

	_, err = s.UpdateProduct(ctx, novel.ID, UpdateProductParams{CategoryID: PtrTo(other.ID)})
	require.NoError(t, err)

	got, err = s.GetCategoryByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProductCount)

	got, err = s.GetCategoryByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProductCount)
}

func TestMemoryStore_UpdateProduct_ClearDiscountPrice(t *testing.T) {
	s, _, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	updated, err := s.UpdateProduct(ctx, novel.ID, UpdateProductParams{ClearDiscountPrice: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DiscountPrice)
	assert.True(t, updated.UnitPrice().Equal(decFromString(t, "100.00")),
		"Unit price falls back to the list price once the discount is cleared")
}

func TestMemoryStore_ReviewAggregates(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	// No reviews yet: average is zero, not an error.
	details, err := s.GetProductWithDetails(ctx, novel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, details.AvgRating)
	assert.Equal(t, 0, details.ReviewCount)

	for _, rating := range []int32{5, 4, 3} {
		_, err := s.CreateReview(ctx, &domain.Review{ProductID: novel.ID, UserID: user.ID, Rating: rating})
		require.NoError(t, err)
	}

	details, err = s.GetProductWithDetails(ctx, novel.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, details.AvgRating, 1e-9)
	assert.Equal(t, 3, details.ReviewCount)

	avg, err := s.GetProductAverageRating(ctx, novel.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)
}

func TestMemoryStore_CreateReview_UnknownProduct(t *testing.T) {
	s, user, _, _, _ := newStoreWithCatalog(t)

	_, err := s.CreateReview(context.Background(), &domain.Review{ProductID: 99, UserID: user.ID, Rating: 5})
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestMemoryStore_CreateReview_UnknownUser(t *testing.T) {
	s, _, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	_, err := s.CreateReview(ctx, &domain.Review{ProductID: novel.ID, UserID: 999, Rating: 5})
	assert.True(t, errors.Is(err, ErrUserNotFound), "Error should be ErrUserNotFound")

	reviews, err := s.ListReviewsByProduct(ctx, novel.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews, "No orphaned review may be stored")
}

func TestMemoryStore_GetOrCreateCart_IsIdempotent(t *testing.T) {
	s, user, _, _, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	first, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	second, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "A user has exactly one cart")
}

func TestMemoryStore_AddCartItem_MergesDuplicateProduct(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	first, err := s.AddCartItem(ctx, cart.ID, novel.ID, 2)
	require.NoError(t, err)
	merged, err := s.AddCartItem(ctx, cart.ID, novel.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID, "Adding the same product merges into the existing line")
	assert.Equal(t, int32(5), merged.Quantity)

	resolved, err := s.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
}

func TestMemoryStore_AddCartItem_Validation(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	_, err = s.AddCartItem(ctx, cart.ID, novel.ID, 0)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = s.AddCartItem(ctx, cart.ID, int64(99), 1)
	assert.True(t, errors.Is(err, ErrProductNotFound))

	_, err = s.AddCartItem(ctx, int64(99), novel.ID, 1)
	assert.True(t, errors.Is(err, ErrCartNotFound))
}

func TestMemoryStore_CartTotal_UsesDiscountedUnitPrices(t *testing.T) {
	s, user, _, novel, poems := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	// 2 × 75.00 (discounted) + 1 × 40.00 (list) = 190.00
	_, err = s.AddCartItem(ctx, cart.ID, novel.ID, 2)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, cart.ID, poems.ID, 1)
	require.NoError(t, err)

	resolved, err := s.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, resolved.TotalPrice.Equal(decFromString(t, "190.00")),
		"expected 190.00, got %s", resolved.TotalPrice)

	// Re-reading the same cart yields the same total.
	again, err := s.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, resolved.TotalPrice.Equal(again.TotalPrice))
}

func TestMemoryStore_UpdateCartItemQuantity(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	item, err := s.AddCartItem(ctx, cart.ID, novel.ID, 1)
	require.NoError(t, err)

	updated, err := s.UpdateCartItemQuantity(ctx, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(4), updated.Quantity)

	_, err = s.UpdateCartItemQuantity(ctx, item.ID, 0)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = s.UpdateCartItemQuantity(ctx, int64(99), 2)
	assert.True(t, errors.Is(err, ErrCartItemNotFound))
}

func TestMemoryStore_RemoveCartItem(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	item, err := s.AddCartItem(ctx, cart.ID, novel.ID, 1)
	require.NoError(t, err)

	require.NoError(t, s.RemoveCartItem(ctx, item.ID))
	err = s.RemoveCartItem(ctx, item.ID)
	assert.True(t, errors.Is(err, ErrCartItemNotFound))
}

func TestMemoryStore_ClearCart_EmptiesLinesAndZeroesTotal(t *testing.T) {
	s, user, _, novel, poems := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, cart.ID, novel.ID, 2)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, cart.ID, poems.ID, 1)
	require.NoError(t, err)

	require.NoError(t, s.ClearCart(ctx, cart.ID))

	resolved, err := s.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, resolved.Items)
	assert.True(t, resolved.TotalPrice.IsZero())
}

func TestMemoryStore_PlaceOrder_SnapshotsPricesAndClearsCart(t *testing.T) {
	s, user, _, novel, poems := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, cart.ID, novel.ID, 2)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, cart.ID, poems.ID, 1)
	require.NoError(t, err)

	order, err := s.PlaceOrder(ctx, user.ID, "12 Abay Ave, Almaty", "+77010000000")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEmpty(t, order.Reference)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.Total.Equal(decFromString(t, "190.00")))

	// The cart is empty afterwards.
	resolved, err := s.GetCartWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, resolved.Items)

	// Raising the product price later must not touch the snapshot.
	_, err = s.UpdateProduct(ctx, novel.ID, UpdateProductParams{
		Price:              PtrTo(decFromString(t, "500.00")),
		ClearDiscountPrice: true,
	})
	require.NoError(t, err)

	withItems, err := s.GetOrderWithItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, withItems.Items, 2)
	assert.True(t, withItems.Items[0].Price.Equal(decFromString(t, "75.00")),
		"Snapshot keeps the unit price at placement time")
	assert.True(t, withItems.Total.Equal(decFromString(t, "190.00")))
}

func TestMemoryStore_PlaceOrder_EmptyCartFails(t *testing.T) {
	s, user, _, _, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	// No cart at all.
	_, err := s.PlaceOrder(ctx, user.ID, "12 Abay Ave, Almaty", "+77010000000")
	assert.True(t, errors.Is(err, ErrEmptyCart))

	// Cart exists but has no lines.
	_, err = s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)
	_, err = s.PlaceOrder(ctx, user.ID, "12 Abay Ave, Almaty", "+77010000000")
	assert.True(t, errors.Is(err, ErrEmptyCart))

	// Nothing was created by the failed attempts.
	orders, err := s.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemoryStore_ListOrdersByUser_NewestFirst(t *testing.T) {
	s, user, _, novel, _ := newStoreWithCatalog(t)
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, user.ID)
	require.NoError(t, err)

	var placed []int64
	for i := 0; i < 3; i++ {
		_, err = s.AddCartItem(ctx, cart.ID, novel.ID, 1)
		require.NoError(t, err)
		order, err := s.PlaceOrder(ctx, user.ID, "12 Abay Ave, Almaty", "+77010000000")
		require.NoError(t, err)
		placed = append(placed, order.ID)
	}

	orders, err := s.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, placed[2], orders[0].ID)
	assert.Equal(t, placed[0], orders[2].ID)
}

func TestMemoryStore_GetOrderWithItems_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetOrderWithItems(context.Background(), int64(7))
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestMemoryStore_SeedSampleData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SeedSampleData(ctx))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	products, err := s.ListProducts(ctx, ListProductsParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	// Cached counts line up with the seeded products.
	var total int
	for _, c := range categories {
		total += c.ProductCount
	}
	assert.Equal(t, len(products), total)
}
