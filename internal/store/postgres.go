package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ergili-bookshop/internal/domain"
)

// PostgresStore implements Storage using PostgreSQL. It mirrors the memory
// store's semantics; the multi-step operations (PlaceOrder, UpdateProduct)
// run inside explicit transactions to keep the all-or-nothing guarantee the
// memory store gets from its mutex.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, constraint)
}

func isForeignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503" && strings.Contains(pqErr.Constraint, constraint)
}

// --- UserStorer ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (username, email, password, full_name, avatar, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, username, email, password, full_name, avatar, address, phone, created_at;
	`
	row := s.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Password, user.FullName, user.Avatar, user.Address, user.Phone,
	)

	var created domain.User
	err := row.Scan(
		&created.ID, &created.Username, &created.Email, &created.Password,
		&created.FullName, &created.Avatar, &created.Address, &created.Phone, &created.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return nil, ErrUsernameExists
		}
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) scanUserRow(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Password,
		&user.FullName, &user.Avatar, &user.Address, &user.Phone, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: failed to scan user row: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, email, password, full_name, avatar, address, phone, created_at
		FROM users WHERE id = $1;
	`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password, full_name, avatar, address, phone, created_at
		FROM users WHERE username = $1;
	`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query, username))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password, full_name, avatar, address, phone, created_at
		FROM users WHERE email = $1;
	`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (*domain.User, error) {
	// Shallow merge: COALESCE keeps the stored value for every nil param.
	query := `
		UPDATE users
		SET full_name = COALESCE($1, full_name),
			avatar    = COALESCE($2, avatar),
			address   = COALESCE($3, address),
			phone     = COALESCE($4, phone)
		WHERE id = $5
		RETURNING id, username, email, password, full_name, avatar, address, phone, created_at;
	`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query,
		params.FullName, params.Avatar, params.Address, params.Phone, id,
	))
}

// --- CategoryStorer ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO categories (name, icon)
		VALUES ($1, $2)
		RETURNING id, name, icon, product_count;
	`
	var created domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Name, category.Icon).Scan(
		&created.ID, &created.Name, &created.Icon, &created.ProductCount,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT id, name, icon, product_count FROM categories WHERE id = $1;`
	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.Icon, &category.ProductCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT id, name, icon, product_count FROM categories ORDER BY id ASC;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

// recomputeCategoryCounts rebuilds every category's cached product count by
// a full rescan, matching the memory store's behavior.
func recomputeCategoryCounts(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}) error {
	query := `
		UPDATE categories c
		SET product_count = (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id);
	`
	if _, err := execer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("store: failed to recompute category counts: %w", err)
	}
	return nil
}

// --- ProductStorer ---

const productColumns = `id, name, description, price, discount_price, category_id, image_url,
		in_stock, is_featured, is_bestseller, is_new, discount_percentage, created_at`

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	var p domain.Product
	var discountPrice decimal.NullDecimal
	var discountPercentage sql.NullInt32
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &discountPrice, &p.CategoryID, &p.ImageURL,
		&p.InStock, &p.IsFeatured, &p.IsBestseller, &p.IsNew, &discountPercentage, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.DiscountPrice = decimalPtr(discountPrice)
	if discountPercentage.Valid {
		v := discountPercentage.Int32
		p.DiscountPercentage = &v
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	// Insert and count recompute commit together; a failed recompute must not
	// leave a product row behind with a stale cached count.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products
			(name, description, price, discount_price, category_id, image_url,
			 in_stock, is_featured, is_bestseller, is_new, discount_percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + productColumns + `;`

	var discountPercentage sql.NullInt32
	if product.DiscountPercentage != nil {
		discountPercentage = sql.NullInt32{Int32: *product.DiscountPercentage, Valid: true}
	}

	row := tx.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, nullDecimal(product.DiscountPrice),
		product.CategoryID, product.ImageURL, product.InStock, product.IsFeatured,
		product.IsBestseller, product.IsNew, discountPercentage,
	)

	created, err := scanProduct(row)
	if err != nil {
		if isForeignKeyViolation(err, "products_category_id_fkey") {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}

	if err := recomputeCategoryCounts(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to commit: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1;`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return product, nil
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: product iteration error: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	// Category filter wins over search term when both are present.
	if params.CategoryID != nil {
		query := `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 ORDER BY id ASC;`
		return s.queryProducts(ctx, query, *params.CategoryID)
	}
	if params.SearchQuery != nil && *params.SearchQuery != "" {
		return s.SearchProducts(ctx, *params.SearchQuery)
	}
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id ASC;`
	return s.queryProducts(ctx, query)
}

func (s *PostgresStore) ListFeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_featured ORDER BY id ASC;`
	return s.queryProducts(ctx, query)
}

func (s *PostgresStore) ListBestsellingProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_bestseller ORDER BY id ASC;`
	return s.queryProducts(ctx, query)
}

func (s *PostgresStore) ListNewProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_new ORDER BY id ASC;`
	return s.queryProducts(ctx, query)
}

func (s *PostgresStore) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY id ASC;`
	return s.queryProducts(ctx, query, "%"+term+"%")
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE;`
	product, err := scanProduct(tx.QueryRowContext(ctx, selectQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to load product: %w", err)
	}

	previousCategoryID := product.CategoryID

	// Explicit field-by-field merge, same rules as the memory store.
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
	if params.CategoryID != nil {
		product.CategoryID = *params.CategoryID
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

	var discountPercentage sql.NullInt32
	if product.DiscountPercentage != nil {
		discountPercentage = sql.NullInt32{Int32: *product.DiscountPercentage, Valid: true}
	}

	updateQuery := `
		UPDATE products
		SET name = $1, description = $2, price = $3, discount_price = $4, category_id = $5,
			image_url = $6, in_stock = $7, is_featured = $8, is_bestseller = $9, is_new = $10,
			discount_percentage = $11
		WHERE id = $12;
	`
	_, err = tx.ExecContext(ctx, updateQuery,
		product.Name, product.Description, product.Price, nullDecimal(product.DiscountPrice),
		product.CategoryID, product.ImageURL, product.InStock, product.IsFeatured,
		product.IsBestseller, product.IsNew, discountPercentage, id,
	)
	if err != nil {
		if isForeignKeyViolation(err, "products_category_id_fkey") {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to execute update: %w", err)
	}

	if product.CategoryID != previousCategoryID {
		if err := recomputeCategoryCounts(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to commit: %w", err)
	}
	return product, nil
}

func (s *PostgresStore) GetProductWithDetails(ctx context.Context, id int64) (*domain.ProductWithDetails, error) {
	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category, err := s.GetCategoryByID(ctx, product.CategoryID)
	if err != nil {
		return nil, err
	}

	aggQuery := `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE product_id = $1;`
	var avgRating float64
	var reviewCount int
	if err := s.db.QueryRowContext(ctx, aggQuery, id).Scan(&avgRating, &reviewCount); err != nil {
		return nil, fmt.Errorf("store: GetProductWithDetails failed to aggregate reviews: %w", err)
	}

	return &domain.ProductWithDetails{
		Product:     *product,
		Category:    *category,
		AvgRating:   avgRating,
		ReviewCount: reviewCount,
	}, nil
}

// --- ReviewStorer ---

func (s *PostgresStore) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, user_id, rating, comment, created_at;
	`
	var created domain.Review
	err := s.db.QueryRowContext(ctx, query, review.ProductID, review.UserID, review.Rating, review.Comment).Scan(
		&created.ID, &created.ProductID, &created.UserID, &created.Rating, &created.Comment, &created.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, "reviews_product_id_fkey") {
			return nil, ErrProductNotFound
		}
		if isForeignKeyViolation(err, "reviews_user_id_fkey") {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: CreateReview failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: ListReviewsByProduct failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListReviewsByProduct failed to scan review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListReviewsByProduct iteration error: %w", err)
	}
	return reviews, nil
}

func (s *PostgresStore) GetProductAverageRating(ctx context.Context, productID int64) (float64, error) {
	query := `SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1;`
	var avg float64
	if err := s.db.QueryRowContext(ctx, query, productID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("store: GetProductAverageRating failed to scan row: %w", err)
	}
	return avg, nil
}

// --- CartStorer ---

func (s *PostgresStore) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// The unique constraint on user_id makes the upsert race-free.
	query := `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at;
	`
	var cart domain.Cart
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "carts_user_id_fkey") {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetOrCreateCart failed to scan row: %w", err)
	}
	return &cart, nil
}

func (s *PostgresStore) GetCartByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at FROM carts WHERE user_id = $1;`
	var cart domain.Cart
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("store: GetCartByUserID failed to scan row: %w", err)
	}
	return &cart, nil
}

func (s *PostgresStore) GetCartWithItems(ctx context.Context, cartID int64) (*domain.CartWithItems, error) {
	cartQuery := `SELECT id, user_id, created_at FROM carts WHERE id = $1;`
	var cart domain.Cart
	err := s.db.QueryRowContext(ctx, cartQuery, cartID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("store: GetCartWithItems failed to scan cart row: %w", err)
	}

	itemsQuery := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
			p.id, p.name, p.description, p.price, p.discount_price, p.category_id, p.image_url,
			p.in_stock, p.is_featured, p.is_bestseller, p.is_new, p.discount_percentage, p.created_at
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC;
	`
	rows, err := s.db.QueryContext(ctx, itemsQuery, cartID)
	if err != nil {
		return nil, fmt.Errorf("store: GetCartWithItems failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartLine, 0)
	total := decimal.Zero
	for rows.Next() {
		var line domain.CartLine
		var productID sql.NullInt64
		var name, imageURL sql.NullString
		var description *string
		var price, discountPrice decimal.NullDecimal
		var categoryID sql.NullInt64
		var inStock, isFeatured, isBestseller, isNew sql.NullBool
		var discountPercentage sql.NullInt32
		var createdAt sql.NullTime

		err := rows.Scan(
			&line.ID, &line.CartID, &line.CartItem.ProductID, &line.Quantity,
			&productID, &name, &description, &price, &discountPrice, &categoryID, &imageURL,
			&inStock, &isFeatured, &isBestseller, &isNew, &discountPercentage, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: GetCartWithItems failed to scan item row: %w", err)
		}
		if !productID.Valid {
			// A cart line pointing at a vanished product is a
			// data-integrity fault; fail the whole read.
			return nil, ErrProductNotFound
		}

		line.Product = domain.Product{
			ID:            productID.Int64,
			Name:          name.String,
			Description:   description,
			Price:         price.Decimal,
			DiscountPrice: decimalPtr(discountPrice),
			CategoryID:    categoryID.Int64,
			ImageURL:      imageURL.String,
			InStock:       inStock.Bool,
			IsFeatured:    isFeatured.Bool,
			IsBestseller:  isBestseller.Bool,
			IsNew:         isNew.Bool,
			CreatedAt:     createdAt.Time,
		}
		if discountPercentage.Valid {
			v := discountPercentage.Int32
			line.Product.DiscountPercentage = &v
		}

		items = append(items, line)
		total = total.Add(line.Product.UnitPrice().Mul(decimal.NewFromInt32(line.Quantity)))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetCartWithItems iteration error: %w", err)
	}

	return &domain.CartWithItems{Cart: cart, Items: items, TotalPrice: total}, nil
}

func (s *PostgresStore) AddCartItem(ctx context.Context, cartID, productID int64, quantity int32) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	// Merge-on-duplicate via the (cart_id, product_id) unique constraint.
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity;
	`
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, query, cartID, productID, quantity).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
	)
	if err != nil {
		if isForeignKeyViolation(err, "cart_items_cart_id_fkey") {
			return nil, ErrCartNotFound
		}
		if isForeignKeyViolation(err, "cart_items_product_id_fkey") {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: AddCartItem failed to scan row: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int32) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	query := `
		UPDATE cart_items SET quantity = $1 WHERE id = $2
		RETURNING id, cart_id, product_id, quantity;
	`
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, query, quantity, itemID).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("store: UpdateCartItemQuantity failed to scan row: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) RemoveCartItem(ctx context.Context, itemID int64) error {
	query := `DELETE FROM cart_items WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, itemID)
	if err != nil {
		return fmt.Errorf("store: RemoveCartItem failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: RemoveCartItem failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, cartID int64) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1;`
	if _, err := s.db.ExecContext(ctx, query, cartID); err != nil {
		return fmt.Errorf("store: ClearCart failed to execute delete: %w", err)
	}
	return nil
}

// --- OrderStorer ---

func (s *PostgresStore) PlaceOrder(ctx context.Context, userID int64, address, phone string) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: PlaceOrder failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cartID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE user_id = $1;`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("store: PlaceOrder failed to load cart: %w", err)
	}

	// Lock the cart lines and snapshot current unit prices in one pass.
	linesQuery := `
		SELECT ci.product_id, ci.quantity, p.price, p.discount_price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC
		FOR UPDATE;
	`
	rows, err := tx.QueryContext(ctx, linesQuery, cartID)
	if err != nil {
		return nil, fmt.Errorf("store: PlaceOrder failed to query cart lines: %w", err)
	}

	type snapshotLine struct {
		productID int64
		quantity  int32
		unitPrice decimal.Decimal
	}
	lines := make([]snapshotLine, 0)
	total := decimal.Zero
	for rows.Next() {
		var productID int64
		var quantity int32
		var price decimal.Decimal
		var discountPrice decimal.NullDecimal
		if err := rows.Scan(&productID, &quantity, &price, &discountPrice); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: PlaceOrder failed to scan cart line: %w", err)
		}
		unit := price
		if discountPrice.Valid {
			unit = discountPrice.Decimal
		}
		lines = append(lines, snapshotLine{productID: productID, quantity: quantity, unitPrice: unit})
		total = total.Add(unit.Mul(decimal.NewFromInt32(quantity)))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: PlaceOrder cart line iteration error: %w", err)
	}
	rows.Close()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	orderQuery := `
		INSERT INTO orders (reference, user_id, total, status, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, reference, user_id, total, status, address, phone, created_at;
	`
	var order domain.Order
	err = tx.QueryRowContext(ctx, orderQuery,
		uuid.NewString(), userID, total, domain.OrderStatusPending, address, phone,
	).Scan(
		&order.ID, &order.Reference, &order.UserID, &order.Total,
		&order.Status, &order.Address, &order.Phone, &order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: PlaceOrder failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4);
	`
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, itemQuery, order.ID, line.productID, line.quantity, line.unitPrice); err != nil {
			return nil, fmt.Errorf("store: PlaceOrder failed to insert order item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1;`, cartID); err != nil {
		return nil, fmt.Errorf("store: PlaceOrder failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: PlaceOrder failed to commit: %w", err)
	}
	return &order, nil
}

func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, reference, user_id, total, status, address, phone, created_at
		FROM orders WHERE id = $1;
	`
	var order domain.Order
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.Reference, &order.UserID, &order.Total,
		&order.Status, &order.Address, &order.Phone, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: GetOrderByID failed to scan row: %w", err)
	}
	return &order, nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	query := `
		SELECT id, reference, user_id, total, status, address, phone, created_at
		FROM orders WHERE user_id = $1 ORDER BY id DESC;
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: ListOrdersByUser failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		err := rows.Scan(&o.ID, &o.Reference, &o.UserID, &o.Total, &o.Status, &o.Address, &o.Phone, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("store: ListOrdersByUser failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListOrdersByUser iteration error: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) GetOrderWithItems(ctx context.Context, orderID int64) (*domain.OrderWithItems, error) {
	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
			p.id, p.name, p.description, p.price, p.discount_price, p.category_id, p.image_url,
			p.in_stock, p.is_featured, p.is_bestseller, p.is_new, p.discount_percentage, p.created_at
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC;
	`
	rows, err := s.db.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("store: GetOrderWithItems failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		var productID sql.NullInt64
		var name, imageURL sql.NullString
		var description *string
		var price, discountPrice decimal.NullDecimal
		var categoryID sql.NullInt64
		var inStock, isFeatured, isBestseller, isNew sql.NullBool
		var discountPercentage sql.NullInt32
		var createdAt sql.NullTime

		err := rows.Scan(
			&line.ID, &line.OrderID, &line.OrderItem.ProductID, &line.Quantity, &line.Price,
			&productID, &name, &description, &price, &discountPrice, &categoryID, &imageURL,
			&inStock, &isFeatured, &isBestseller, &isNew, &discountPercentage, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: GetOrderWithItems failed to scan item row: %w", err)
		}

		// The product join is display-only; the line price stays the
		// snapshot even when the product has changed or is gone.
		if productID.Valid {
			product := &domain.Product{
				ID:            productID.Int64,
				Name:          name.String,
				Description:   description,
				Price:         price.Decimal,
				DiscountPrice: decimalPtr(discountPrice),
				CategoryID:    categoryID.Int64,
				ImageURL:      imageURL.String,
				InStock:       inStock.Bool,
				IsFeatured:    isFeatured.Bool,
				IsBestseller:  isBestseller.Bool,
				IsNew:         isNew.Bool,
				CreatedAt:     createdAt.Time,
			}
			if discountPercentage.Valid {
				v := discountPercentage.Int32
				product.DiscountPercentage = &v
			}
			line.Product = product
		}
		items = append(items, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: GetOrderWithItems iteration error: %w", err)
	}

	return &domain.OrderWithItems{Order: *order, Items: items}, nil
}
