package service

import "errors"

var (
	ErrNotRegistered   = errors.New("user is not registered")
	ErrEmptyCart       = errors.New("cart is empty, nothing to confirm")
	ErrIncompleteDraft = errors.New("product draft is incomplete")
	ErrInvalidValue    = errors.New("invalid field value")
)
