package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ergili-bookshop/internal/store"
)

// --- Order Handlers ---

// OrderCreateInput defines the expected input for placing an order. The
// total is never accepted from the client; it is computed from the cart.
type OrderCreateInput struct {
	Address string `json:"address" validate:"required,min=5,max=1000"`
	Phone   string `json:"phone" validate:"required,min=10,max=30"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}
	if !h.requireUser(w, r, userID) {
		return
	}

	var input OrderCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID, input.Address, input.Phone)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyCart):
			respondWithError(w, http.StatusBadRequest, store.ErrEmptyCart.Error())
		case errors.Is(err, store.ErrProductNotFound):
			// A cart line references a vanished product; the order was not
			// created.
			respondWithError(w, http.StatusConflict, store.ErrProductNotFound.Error())
		default:
			log.Printf("ERROR: PlaceOrder store operation for user %d failed: %v", userID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}
	if !h.requireUser(w, r, userID) {
		return
	}

	orders, err := h.orders.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: ListOrdersByUser store operation for user %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "orderId")
	if !ok {
		return
	}

	order, err := h.orders.GetOrderWithItems(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrOrderNotFound.Error())
			return
		}
		log.Printf("ERROR: GetOrderWithItems store operation for ID %d failed: %v", orderID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	respondWithJSON(w, http.StatusOK, order)
}
