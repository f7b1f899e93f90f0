package store

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrUnavailable    = errors.New("store unavailable")
	ErrRateLimited    = errors.New("store rate limited")
)
