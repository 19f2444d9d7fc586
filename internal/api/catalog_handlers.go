package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"ergili-bookshop/internal/domain"
	"ergili-bookshop/internal/store"
)

// --- Category Handlers ---

// CategoryCreateInput defines the expected input for creating a category.
type CategoryCreateInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Icon string `json:"icon" validate:"required,max=255"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	category := &domain.Category{Name: input.Name, Icon: input.Icon}
	created, err := h.categories.CreateCategory(r.Context(), category)
	if err != nil {
		log.Printf("ERROR: CreateCategory store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: ListCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseIDParam(w, r, "categoryId")
	if !ok {
		return
	}

	category, err := h.categories.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		log.Printf("ERROR: GetCategoryByID store operation for ID %d failed: %v", categoryID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

// --- Product Handlers ---

// ProductCreateInput defines the expected input for creating a product.
type ProductCreateInput struct {
	Name               string           `json:"name" validate:"required,max=255"`
	Description        *string          `json:"description" validate:"omitempty"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPrice      *decimal.Decimal `json:"discount_price"`
	CategoryID         int64            `json:"category_id" validate:"required,gt=0"`
	ImageURL           string           `json:"image_url" validate:"required,max=2048"`
	InStock            *bool            `json:"in_stock"`
	IsFeatured         bool             `json:"is_featured"`
	IsBestseller       bool             `json:"is_bestseller"`
	IsNew              bool             `json:"is_new"`
	DiscountPercentage *int32           `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
}

// validatePrices rejects negative money values. Decimal types are opaque to
// the struct validator, so these are checked by hand.
func validatePrices(w http.ResponseWriter, price decimal.Decimal, discountPrice *decimal.Decimal) bool {
	if price.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return false
	}
	if discountPrice != nil && discountPrice.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: discount_price must not be negative")
		return false
	}
	return true
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if !validatePrices(w, input.Price, input.DiscountPrice) {
		return
	}

	inStock := true
	if input.InStock != nil {
		inStock = *input.InStock
	}

	product := &domain.Product{
		Name:               input.Name,
		Description:        input.Description,
		Price:              input.Price,
		DiscountPrice:      input.DiscountPrice,
		CategoryID:         input.CategoryID,
		ImageURL:           input.ImageURL,
		InStock:            inStock,
		IsFeatured:         input.IsFeatured,
		IsBestseller:       input.IsBestseller,
		IsNew:              input.IsNew,
		DiscountPercentage: input.DiscountPercentage,
	}

	created, err := h.products.CreateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist")
			return
		}
		log.Printf("ERROR: CreateProduct store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()
	params := store.ListProductsParams{}

	if idStr := qParams.Get("category_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		params.CategoryID = &id
	}
	if q := qParams.Get("q"); q != "" {
		params.SearchQuery = &q
	}

	products, err := h.products.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: ListProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) listProductsWith(w http.ResponseWriter, products []domain.Product, err error, what string) {
	if err != nil {
		log.Printf("ERROR: List%s store operation failed: %v", what, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) ListFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListFeaturedProducts(r.Context())
	h.listProductsWith(w, products, err, "FeaturedProducts")
}

func (h *HTTPHandler) ListBestsellingProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListBestsellingProducts(r.Context())
	h.listProductsWith(w, products, err, "BestsellingProducts")
}

func (h *HTTPHandler) ListNewProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListNewProducts(r.Context())
	h.listProductsWith(w, products, err, "NewProducts")
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productId")
	if !ok {
		return
	}

	product, err := h.products.GetProductWithDetails(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) || errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		log.Printf("ERROR: GetProductWithDetails store operation for ID %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

// ProductUpdateInput defines the expected input for a partial product
// update. Omitted fields keep their stored values; clear_discount_price
// removes an existing discount.
type ProductUpdateInput struct {
	Name               *string          `json:"name" validate:"omitempty,max=255"`
	Description        *string          `json:"description" validate:"omitempty"`
	Price              *decimal.Decimal `json:"price"`
	DiscountPrice      *decimal.Decimal `json:"discount_price"`
	ClearDiscountPrice bool             `json:"clear_discount_price"`
	CategoryID         *int64           `json:"category_id" validate:"omitempty,gt=0"`
	ImageURL           *string          `json:"image_url" validate:"omitempty,max=2048"`
	InStock            *bool            `json:"in_stock"`
	IsFeatured         *bool            `json:"is_featured"`
	IsBestseller       *bool            `json:"is_bestseller"`
	IsNew              *bool            `json:"is_new"`
	DiscountPercentage *int32           `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productId")
	if !ok {
		return
	}

	var input ProductUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Price != nil && input.Price.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return
	}
	if input.DiscountPrice != nil && input.DiscountPrice.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: discount_price must not be negative")
		return
	}

	params := store.UpdateProductParams{
		Name:               input.Name,
		Description:        input.Description,
		Price:              input.Price,
		DiscountPrice:      input.DiscountPrice,
		ClearDiscountPrice: input.ClearDiscountPrice,
		CategoryID:         input.CategoryID,
		ImageURL:           input.ImageURL,
		InStock:            input.InStock,
		IsFeatured:         input.IsFeatured,
		IsBestseller:       input.IsBestseller,
		IsNew:              input.IsNew,
		DiscountPercentage: input.DiscountPercentage,
	}

	updated, err := h.products.UpdateProduct(r.Context(), productID, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist")
		default:
			log.Printf("ERROR: UpdateProduct store operation for ID %d failed: %v", productID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteProduct soft-deletes a product by flipping inStock off. The record
// stays resolvable so carts and order history keep working.
func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productId")
	if !ok {
		return
	}

	inStock := false
	_, err := h.products.UpdateProduct(r.Context(), productID, store.UpdateProductParams{InStock: &inStock})
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		log.Printf("ERROR: DeleteProduct store operation for ID %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Review Handlers ---

// ReviewCreateInput defines the expected input for posting a review.
type ReviewCreateInput struct {
	UserID  int64   `json:"user_id" validate:"required,gt=0"`
	Rating  int32   `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// reviewWithAuthor attaches the trimmed author record to a review. A
// missing author is tolerated; the review is returned without one.
func (h *HTTPHandler) reviewWithAuthor(r *http.Request, review domain.Review) domain.ReviewWithUser {
	out := domain.ReviewWithUser{Review: review}
	user, err := h.users.GetUserByID(r.Context(), review.UserID)
	if err == nil {
		out.User = &domain.ReviewAuthor{
			ID:       user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Avatar:   user.Avatar,
		}
	}
	return out
}

func (h *HTTPHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productId")
	if !ok {
		return
	}

	reviews, err := h.reviews.ListReviewsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: ListReviewsByProduct store operation for product %d failed: %v", productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	withAuthors := make([]domain.ReviewWithUser, 0, len(reviews))
	for _, review := range reviews {
		withAuthors = append(withAuthors, h.reviewWithAuthor(r, review))
	}
	respondWithJSON(w, http.StatusOK, withAuthors)
}

func (h *HTTPHandler) CreateProductReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productId")
	if !ok {
		return
	}

	var input ReviewCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	review := &domain.Review{
		ProductID: productID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	created, err := h.reviews.CreateReview(r.Context(), review)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrUserNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid user_id: user does not exist")
		default:
			log.Printf("ERROR: CreateReview store operation for product %d failed: %v", productID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, h.reviewWithAuthor(r, *created))
}
