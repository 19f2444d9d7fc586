package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ergili-bookshop/internal/store"
)

// --- Cart Handlers ---

// GetCart returns the user's cart with resolved lines and total, creating
// the cart on first access.
func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}
	if !h.requireUser(w, r, userID) {
		return
	}

	cart, err := h.carts.GetOrCreateCart(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: GetOrCreateCart store operation for user %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}

	h.respondWithCart(w, r, cart.ID)
}

// CartItemAddInput defines the expected input for adding a cart line.
type CartItemAddInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gte=1"`
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}
	if !h.requireUser(w, r, userID) {
		return
	}

	var input CartItemAddInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	cart, err := h.carts.GetOrCreateCart(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: GetOrCreateCart store operation for user %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}

	if _, err := h.carts.AddCartItem(r.Context(), cart.ID, input.ProductID, input.Quantity); err != nil {
		switch {
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		case errors.Is(err, store.ErrInvalidQuantity):
			respondWithError(w, http.StatusBadRequest, store.ErrInvalidQuantity.Error())
		default:
			log.Printf("ERROR: AddCartItem store operation for cart %d failed: %v", cart.ID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to add item to cart")
		}
		return
	}

	h.respondWithCart(w, r, cart.ID)
}

// CartItemUpdateInput defines the expected input for changing a line's
// quantity. Reducing to zero is expressed as removal, not update.
type CartItemUpdateInput struct {
	Quantity int32 `json:"quantity" validate:"required,gte=1"`
}

func (h *HTTPHandler) UpdateCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemId")
	if !ok {
		return
	}

	var input CartItemUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	item, err := h.carts.UpdateCartItemQuantity(r.Context(), itemID, input.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCartItemNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrCartItemNotFound.Error())
		case errors.Is(err, store.ErrInvalidQuantity):
			respondWithError(w, http.StatusBadRequest, store.ErrInvalidQuantity.Error())
		default:
			log.Printf("ERROR: UpdateCartItemQuantity store operation for item %d failed: %v", itemID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to update cart item")
		}
		return
	}

	h.respondWithCart(w, r, item.CartID)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemId")
	if !ok {
		return
	}

	if err := h.carts.RemoveCartItem(r.Context(), itemID); err != nil {
		if errors.Is(err, store.ErrCartItemNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCartItemNotFound.Error())
			return
		}
		log.Printf("ERROR: RemoveCartItem store operation for item %d failed: %v", itemID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to remove cart item")
		return
	}

	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}

	cart, err := h.carts.GetCartByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCartNotFound.Error())
			return
		}
		log.Printf("ERROR: GetCartByUserID store operation for user %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}

	if err := h.carts.ClearCart(r.Context(), cart.ID); err != nil {
		log.Printf("ERROR: ClearCart store operation for cart %d failed: %v", cart.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to clear cart")
		return
	}

	h.respondWithCart(w, r, cart.ID)
}

// respondWithCart writes the cart with resolved lines and total.
func (h *HTTPHandler) respondWithCart(w http.ResponseWriter, r *http.Request, cartID int64) {
	cart, err := h.carts.GetCartWithItems(r.Context(), cartID)
	if err != nil {
		log.Printf("ERROR: GetCartWithItems store operation for cart %d failed: %v", cartID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}
	respondWithJSON(w, http.StatusOK, cart)
}

// requireUser verifies the path user exists, writing a 404 otherwise.
func (h *HTTPHandler) requireUser(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if _, err := h.users.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return false
		}
		log.Printf("ERROR: GetUserByID store operation for user %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve user")
		return false
	}
	return true
}
