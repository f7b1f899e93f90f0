package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
)

// WithRetry wraps a TicketStore so that a transiently failing operation is
// retried exactly once after a fixed delay. Any second failure is returned
// to the caller.
func WithRetry(inner TicketStore, delay time.Duration) TicketStore {
	return &retryStore{inner: inner, delay: delay, sleep: sleepCtx}
}

type retryStore struct {
	inner TicketStore
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func transient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *retryStore) retry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !transient(err) {
		return err
	}
	log.Printf("store %s transient error, retrying in %s: %v", op, s.delay, err)
	if sleepErr := s.sleep(ctx, s.delay); sleepErr != nil {
		return sleepErr
	}
	return fn()
}

func (s *retryStore) ListTickets(ctx context.Context, orderHint string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.retry(ctx, "list", func() error {
		var innerErr error
		tickets, innerErr = s.inner.ListTickets(ctx, orderHint)
		return innerErr
	})
	return tickets, err
}

func (s *retryStore) FilterTickets(ctx context.Context, criteria Criteria) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.retry(ctx, "filter", func() error {
		var innerErr error
		tickets, innerErr = s.inner.FilterTickets(ctx, criteria)
		return innerErr
	})
	return tickets, err
}

func (s *retryStore) UpdateTicket(ctx context.Context, qrCode string, patch TicketPatch) (models.Ticket, error) {
	var ticket models.Ticket
	err := s.retry(ctx, "update", func() error {
		var innerErr error
		ticket, innerErr = s.inner.UpdateTicket(ctx, qrCode, patch)
		return innerErr
	})
	return ticket, err
}

func (s *retryStore) CreateTicket(ctx context.Context, input models.Ticket) (models.Ticket, error) {
	var ticket models.Ticket
	err := s.retry(ctx, "create", func() error {
		var innerErr error
		ticket, innerErr = s.inner.CreateTicket(ctx, input)
		return innerErr
	})
	return ticket, err
}

func (s *retryStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := s.retry(ctx, "rooms", func() error {
		var innerErr error
		rooms, innerErr = s.inner.ListRooms(ctx)
		return innerErr
	})
	return rooms, err
}
