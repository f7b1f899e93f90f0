package queue

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid ticket transition")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrQueueEmpty        = errors.New("no waiting tickets")
)
