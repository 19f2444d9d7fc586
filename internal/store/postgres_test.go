package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ergili-bookshop/internal/domain"
)

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewPostgresStore(db)
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

const userColumnsList = "id, username, email, password, full_name, avatar, address, phone, created_at"

func userRows(user *domain.User, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "password", "full_name", "avatar", "address", "phone", "created_at"}).
		AddRow(user.ID, user.Username, user.Email, user.Password, user.FullName, user.Avatar, user.Address, user.Phone, now)
}

func TestPostgresStore_CreateUser(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	userToCreate := &domain.User{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "secret1",
		FullName: PtrTo("Test Reader"),
	}

	query := regexp.QuoteMeta(`
			INSERT INTO users (username, email, password, full_name, avatar, address, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + userColumnsList + `;
		`)

	expected := *userToCreate
	expected.ID = 1
	mock.ExpectQuery(query).
		WithArgs(userToCreate.Username, userToCreate.Email, userToCreate.Password,
			userToCreate.FullName, userToCreate.Avatar, userToCreate.Address, userToCreate.Phone).
		WillReturnRows(userRows(&expected, now))

	created, err := store.CreateUser(context.Background(), userToCreate)

	require.NoError(t, err, "CreateUser should not return an error")
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, userToCreate.Username, created.Username)
	assert.WithinDuration(t, now, created.CreatedAt, time.Second)

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_CreateUser_UsernameExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
			INSERT INTO users (username, email, password, full_name, avatar, address, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + userColumnsList + `;
		`)

	pqErr := &pq.Error{Code: "23505", Constraint: "users_username_key"}
	mock.ExpectQuery(query).WillReturnError(pqErr)

	created, err := store.CreateUser(context.Background(), &domain.User{
		Username: "dup", Email: "dup@example.com", Password: "x",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsernameExists), "Error should be ErrUsernameExists")
	assert.Nil(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
			SELECT ` + userColumnsList + `
			FROM users WHERE id = $1;
		`)
	mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	user, err := store.GetUserByID(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound), "Error should be ErrUserNotFound")
	assert.Nil(t, user)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
			INSERT INTO categories (name, icon)
			VALUES ($1, $2)
			RETURNING id, name, icon, product_count;
		`)

	rows := sqlmock.NewRows([]string{"id", "name", "icon", "product_count"}).
		AddRow(int64(1), "Fiction", "book", 0)

	mock.ExpectQuery(query).WithArgs("Fiction", "book").WillReturnRows(rows)

	created, err := store.CreateCategory(context.Background(), &domain.Category{Name: "Fiction", Icon: "book"})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, 0, created.ProductCount)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCategoryByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`SELECT id, name, icon, product_count FROM categories WHERE id = $1;`)
	mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	category, err := store.GetCategoryByID(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	assert.Nil(t, category)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	productColumnNames := []string{"id", "name", "description", "price", "discount_price", "category_id",
		"image_url", "in_stock", "is_featured", "is_bestseller", "is_new", "discount_percentage", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnRows(sqlmock.NewRows(productColumnNames).
			AddRow(int64(1), "Novel", nil, "100.00", "75.00", int64(2),
				"https://example.com/novel.jpg", true, false, false, false, nil, now))
	// The cached category counts are rebuilt inside the same transaction.
	mock.ExpectExec(`UPDATE categories c`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := store.CreateProduct(context.Background(), &domain.Product{
		Name:       "Novel",
		Price:      decimal.RequireFromString("100.00"),
		CategoryID: 2,
		ImageURL:   "https://example.com/novel.jpg",
		InStock:    true,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.ID)
	require.NotNil(t, created.DiscountPrice)
	assert.True(t, created.DiscountPrice.Equal(decimal.RequireFromString("75.00")))

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_CreateProduct_UnknownCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	pqErr := &pq.Error{Code: "23503", Constraint: "products_category_id_fkey"}
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).WillReturnError(pqErr)
	mock.ExpectRollback()

	created, err := store.CreateProduct(context.Background(), &domain.Product{
		Name:       "Orphan",
		Price:      decimal.NewFromInt(10),
		CategoryID: 42,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryNotFound), "Error should be ErrCategoryNotFound")
	assert.Nil(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct_RecomputeFailureRollsBack(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	productColumnNames := []string{"id", "name", "description", "price", "discount_price", "category_id",
		"image_url", "in_stock", "is_featured", "is_bestseller", "is_new", "discount_percentage", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnRows(sqlmock.NewRows(productColumnNames).
			AddRow(int64(1), "Novel", nil, "100.00", nil, int64(2),
				"https://example.com/novel.jpg", true, false, false, false, nil, now))
	mock.ExpectExec(`UPDATE categories c`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	created, err := store.CreateProduct(context.Background(), &domain.Product{
		Name:       "Novel",
		Price:      decimal.RequireFromString("100.00"),
		CategoryID: 2,
		ImageURL:   "https://example.com/novel.jpg",
		InStock:    true,
	})

	require.Error(t, err)
	assert.Nil(t, created, "The insert must not survive a failed count recompute")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetOrCreateCart_Upsert(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`
			INSERT INTO carts (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id, user_id, created_at;
		`)

	rows := sqlmock.NewRows([]string{"id", "user_id", "created_at"}).AddRow(int64(3), int64(7), now)
	mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(rows)

	cart, err := store.GetOrCreateCart(context.Background(), 7)

	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Equal(t, int64(3), cart.ID)
	assert.Equal(t, int64(7), cart.UserID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCartItem_MergesOnConflict(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
			INSERT INTO cart_items (cart_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id, cart_id, product_id, quantity;
		`)

	// The existing line had quantity 2; adding 3 returns the merged line.
	rows := sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity"}).
		AddRow(int64(1), int64(3), int64(5), int32(5))
	mock.ExpectQuery(query).WithArgs(int64(3), int64(5), int32(3)).WillReturnRows(rows)

	item, err := store.AddCartItem(context.Background(), 3, 5, 3)

	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int32(5), item.Quantity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddCartItem_InvalidQuantity(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	// Rejected before any query is issued.
	_, err := store.AddCartItem(context.Background(), 3, 5, 0)
	assert.True(t, errors.Is(err, ErrInvalidQuantity), "Error should be ErrInvalidQuantity")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RemoveCartItem_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`DELETE FROM cart_items WHERE id = $1;`)
	mock.ExpectExec(query).WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RemoveCartItem(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCartItemNotFound), "Error should be ErrCartItemNotFound")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PlaceOrder(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	userID := int64(7)
	cartID := int64(3)

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM carts WHERE user_id = $1;`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(cartID))

	linesQuery := regexp.QuoteMeta(`
			SELECT ci.product_id, ci.quantity, p.price, p.discount_price
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.id ASC
			FOR UPDATE;
		`)
	// 2 × 75.00 (discounted) + 1 × 40.00 = 190.00
	lineRows := sqlmock.NewRows([]string{"product_id", "quantity", "price", "discount_price"}).
		AddRow(int64(1), int32(2), "100.00", "75.00").
		AddRow(int64(2), int32(1), "40.00", nil)
	mock.ExpectQuery(linesQuery).WithArgs(cartID).WillReturnRows(lineRows)

	orderQuery := regexp.QuoteMeta(`
			INSERT INTO orders (reference, user_id, total, status, address, phone)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, reference, user_id, total, status, address, phone, created_at;
		`)
	orderRows := sqlmock.NewRows([]string{"id", "reference", "user_id", "total", "status", "address", "phone", "created_at"}).
		AddRow(int64(1), "ref-uuid", userID, "190.00", "pending", "12 Abay Ave, Almaty", "+77010000000", now)
	mock.ExpectQuery(orderQuery).
		WithArgs(sqlmock.AnyArg(), userID, sqlmock.AnyArg(), string(domain.OrderStatusPending), "12 Abay Ave, Almaty", "+77010000000").
		WillReturnRows(orderRows)

	itemQuery := regexp.QuoteMeta(`
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4);
		`)
	mock.ExpectExec(itemQuery).
		WithArgs(int64(1), int64(1), int32(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(itemQuery).
		WithArgs(int64(1), int64(2), int32(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id = $1;`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	mock.ExpectCommit()

	order, err := store.PlaceOrder(context.Background(), userID, "12 Abay Ave, Almaty", "+77010000000")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("190.00")),
		"expected 190.00, got %s", order.Total)

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_PlaceOrder_NoCart(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM carts WHERE user_id = $1;`)).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	order, err := store.PlaceOrder(context.Background(), 7, "12 Abay Ave, Almaty", "+77010000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCart), "Error should be ErrEmptyCart")
	assert.Nil(t, order)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PlaceOrder_EmptyCart(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM carts WHERE user_id = $1;`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT ci.product_id, ci.quantity`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity", "price", "discount_price"}))
	mock.ExpectRollback()

	order, err := store.PlaceOrder(context.Background(), 7, "12 Abay Ave, Almaty", "+77010000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCart), "Error should be ErrEmptyCart")
	assert.Nil(t, order)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrdersByUser(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`
			SELECT id, reference, user_id, total, status, address, phone, created_at
			FROM orders WHERE user_id = $1 ORDER BY id DESC;
		`)

	rows := sqlmock.NewRows([]string{"id", "reference", "user_id", "total", "status", "address", "phone", "created_at"}).
		AddRow(int64(2), "ref-b", int64(7), "40.00", "pending", "addr", "+77010000000", now).
		AddRow(int64(1), "ref-a", int64(7), "190.00", "completed", "addr", "+77010000000", now)

	mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(rows)

	orders, err := store.ListOrdersByUser(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID, "Orders are listed newest first")
	assert.Equal(t, domain.OrderStatusCompleted, orders[1].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
