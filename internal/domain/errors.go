package domain

import "errors"

var (
	ErrInvalidMessage  = errors.New("invalid message")
	ErrEmptyText       = errors.New("text is required")
	ErrTextTooLong     = errors.New("text exceeds maximum length")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidID       = errors.New("invalid message id")
)
