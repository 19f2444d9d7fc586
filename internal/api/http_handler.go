package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ergili-bookshop/internal/store"
)

// HTTPHandler holds dependencies for HTTP handlers. Each handler group
// depends only on the narrow store interface it needs.
type HTTPHandler struct {
	users      store.UserStorer
	categories store.CategoryStorer
	products   store.ProductStorer
	reviews    store.ReviewStorer
	carts      store.CartStorer
	orders     store.OrderStorer
	validate   *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler backed by the given storage.
func NewHTTPHandler(s store.Storage) *HTTPHandler {
	return &HTTPHandler{
		users:      s,
		categories: s,
		products:   s,
		reviews:    s,
		carts:      s,
		orders:     s,
		validate:   validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		// The status line is already on the wire; nothing more useful than
		// logging can happen here.
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

// parseIDParam extracts a positive int64 URL parameter. The boolean result
// reports whether it was valid; on failure a 400 has already been written.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	idStr := chi.URLParam(r, name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" format")
		return 0, false
	}
	return id, true
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{categoryId}", h.GetCategoryByID)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			// Flag routes must precede {productId} so the words aren't
			// parsed as ids.
			r.Get("/featured", h.ListFeaturedProducts)
			r.Get("/bestselling", h.ListBestsellingProducts)
			r.Get("/new", h.ListNewProducts)

			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProductByID)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Get("/reviews", h.ListProductReviews)
				r.Post("/reviews", h.CreateProductReview)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.RegisterUser)
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", h.GetUserByID)
				r.Put("/", h.UpdateUser)

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", h.GetCart)
					r.Delete("/", h.ClearCart)
					r.Post("/items", h.AddCartItem)
				})

				r.Route("/orders", func(r chi.Router) {
					r.Post("/", h.PlaceOrder)
					r.Get("/", h.ListUserOrders)
				})
			})
		})

		// Cart item routes are keyed by item id alone; the owning cart is
		// resolved from the item.
		r.Put("/cart/items/{itemId}", h.UpdateCartItemQuantity)
		r.Delete("/cart/items/{itemId}", h.RemoveCartItem)

		r.Get("/orders/{orderId}", h.GetOrderByID)
	})
}
