package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ergili-bookshop/internal/domain"
	"ergili-bookshop/internal/store"
)

// --- User Handlers ---

// UserRegisterInput defines the expected input for registration. The
// password is treated as an opaque credential here; hashing belongs to the
// auth layer, which is outside this service.
type UserRegisterInput struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=100"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=2048"`
}

func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input UserRegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user := &domain.User{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Avatar:   input.Avatar,
	}
	created, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			respondWithError(w, http.StatusConflict, store.ErrUsernameExists.Error())
		case errors.Is(err, store.ErrEmailExists):
			respondWithError(w, http.StatusConflict, store.ErrEmailExists.Error())
		default:
			log.Printf("ERROR: CreateUser store operation failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		log.Printf("ERROR: GetUserByID store operation for ID %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// UserUpdateInput defines the expected input for a profile update. Omitted
// fields keep their stored values.
type UserUpdateInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=2048"`
	Address  *string `json:"address" validate:"omitempty,max=1000"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

func (h *HTTPHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}

	var input UserUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	params := store.UpdateUserParams{
		FullName: input.FullName,
		Avatar:   input.Avatar,
		Address:  input.Address,
		Phone:    input.Phone,
	}
	updated, err := h.users.UpdateUser(r.Context(), userID, params)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrUserNotFound.Error())
			return
		}
		log.Printf("ERROR: UpdateUser store operation for ID %d failed: %v", userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
