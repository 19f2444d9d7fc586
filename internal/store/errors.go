package store

import "errors"

// Predefined errors for store operations. Absence of a record is reported
// through these sentinels, never through a panic; callers translate them
// into protocol responses.
var (
	ErrUserNotFound     = errors.New("store: user not found")
	ErrUsernameExists   = errors.New("store: username already taken")
	ErrEmailExists      = errors.New("store: email already registered")
	ErrCategoryNotFound = errors.New("store: category not found")
	ErrProductNotFound  = errors.New("store: product not found")
	ErrCartNotFound     = errors.New("store: cart not found")
	ErrCartItemNotFound = errors.New("store: cart item not found")
	ErrOrderNotFound    = errors.New("store: order not found")
	ErrEmptyCart        = errors.New("store: cart has no items")
	ErrInvalidQuantity  = errors.New("store: quantity must be at least 1")
)
