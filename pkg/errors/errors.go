package chatwindow_errors

import (
	"errors"
)

// Common errors
var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrSendFailed     = errors.New("send failed")
	ErrFetchFailed    = errors.New("fetch failed")
	ErrStoreClosed    = errors.New("store closed")
	ErrMalformedEvent = errors.New("malformed event")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
)
