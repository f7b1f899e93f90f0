package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/store"
)

// Station identifies the operator session performing transitions. It is
// passed explicitly into every operation instead of living in package
// state.
type Station struct {
	Operator string
	Language string
}

// Result reports the outcome of a transition for the presentation layer.
type Result struct {
	Ticket  models.Ticket
	Message string
}

// Service owns the queue lifecycle: it refreshes snapshots from the ticket
// store and applies lifecycle transitions through it.
type Service struct {
	store store.TicketStore
	now   func() time.Time

	mu   sync.RWMutex
	snap *Snapshot
}

func NewService(ticketStore store.TicketStore) *Service {
	return &Service{
		store: ticketStore,
		now:   func() time.Time { return time.Now().UTC() },
		snap:  NewSnapshot(nil, nil, time.Time{}),
	}
}

// Refresh fetches the full ticket and room state and swaps in a new
// snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	tickets, err := s.store.ListTickets(ctx, "-created_at")
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	snap := NewSnapshot(tickets, rooms, s.now())
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Call moves a waiting ticket in the given room to serving.
func (s *Service) Call(ctx context.Context, st Station, qrCode, roomCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionCall, ticket.Status) || ticket.RoomID != roomCode {
		return Result{}, fmt.Errorf("call %s from %s in room %s: %w", qrCode, ticket.Status, ticket.RoomID, ErrInvalidTransition)
	}
	now := s.now()
	status := models.StatusServing
	updated, err := s.apply(ctx, st, ActionCall, qrCode, store.TicketPatch{Status: &status, CalledAt: &now})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("called ticket %s", updated.QueueNumber)}, nil
}

// CallNext calls the head of the room's ordered waiting list.
func (s *Service) CallNext(ctx context.Context, st Station, roomCode string) (Result, error) {
	waiting := s.Snapshot().WaitingList(roomCode)
	if len(waiting) == 0 {
		return Result{}, ErrQueueEmpty
	}
	return s.Call(ctx, st, waiting[0].QRCode, roomCode)
}

// RepeatCall re-stamps called_at on a serving ticket so the announcement
// sequencer treats it as a fresh call event.
func (s *Service) RepeatCall(ctx context.Context, st Station, qrCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionRepeatCall, ticket.Status) {
		return Result{}, fmt.Errorf("repeat call %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	now := s.now()
	updated, err := s.apply(ctx, st, ActionRepeatCall, qrCode, store.TicketPatch{CalledAt: &now})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("repeated call for ticket %s", updated.QueueNumber)}, nil
}

func (s *Service) Pause(ctx context.Context, st Station, qrCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionPause, ticket.Status) {
		return Result{}, fmt.Errorf("pause %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	now := s.now()
	status := models.StatusPaused
	updated, err := s.apply(ctx, st, ActionPause, qrCode, store.TicketPatch{Status: &status, PausedAt: &now})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("paused ticket %s", updated.QueueNumber)}, nil
}

func (s *Service) Resume(ctx context.Context, st Station, qrCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionResume, ticket.Status) {
		return Result{}, fmt.Errorf("resume %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	now := s.now()
	status := models.StatusServing
	updated, err := s.apply(ctx, st, ActionResume, qrCode, store.TicketPatch{
		Status:        &status,
		CalledAt:      &now,
		ClearPausedAt: true,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("resumed ticket %s", updated.QueueNumber)}, nil
}

// Skip marks a serving ticket skipped. Skipped is terminal; the patient
// needs a new ticket to rejoin the queue.
func (s *Service) Skip(ctx context.Context, st Station, qrCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionSkip, ticket.Status) {
		return Result{}, fmt.Errorf("skip %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	status := models.StatusSkipped
	updated, err := s.apply(ctx, st, ActionSkip, qrCode, store.TicketPatch{Status: &status})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("skipped ticket %s", updated.QueueNumber)}, nil
}

// Complete closes the open history segment and marks the ticket completed.
func (s *Service) Complete(ctx context.Context, st Station, qrCode string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionComplete, ticket.Status) {
		return Result{}, fmt.Errorf("complete %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	now := s.now()
	history := CloseOpenSegment(cloneHistory(ticket.RoomHistory), now)
	status := models.StatusCompleted
	patch := store.TicketPatch{Status: &status, CompletedAt: &now}
	if history != nil {
		patch.RoomHistory = history
	}
	updated, err := s.apply(ctx, st, ActionComplete, qrCode, patch)
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("completed ticket %s", updated.QueueNumber)}, nil
}

// Transfer closes the current room segment, opens one for the destination
// room, and puts the ticket back in waiting there with baseline priority.
func (s *Service) Transfer(ctx context.Context, st Station, qrCode, destinationRoom string) (Result, error) {
	ticket, err := s.lookup(qrCode)
	if err != nil {
		return Result{}, err
	}
	if !ValidTransition(ActionTransfer, ticket.Status) {
		return Result{}, fmt.Errorf("transfer %s from %s: %w", qrCode, ticket.Status, ErrInvalidTransition)
	}
	room, ok := s.Snapshot().Room(destinationRoom)
	if !ok {
		return Result{}, fmt.Errorf("transfer %s to %s: %w", qrCode, destinationRoom, ErrRoomNotFound)
	}
	now := s.now()
	history := CloseOpenSegment(cloneHistory(ticket.RoomHistory), now)
	history = OpenSegment(history, room, now)
	status := models.StatusWaiting
	priority := 1
	updated, err := s.apply(ctx, st, ActionTransfer, qrCode, store.TicketPatch{
		Status:           &status,
		RoomID:           &room.RoomCode,
		Priority:         &priority,
		ClearCalledAt:    true,
		ClearCompletedAt: true,
		RoomHistory:      history,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Ticket: updated, Message: fmt.Sprintf("transferred ticket %s to %s", updated.QueueNumber, room.RoomName)}, nil
}

func (s *Service) lookup(qrCode string) (models.Ticket, error) {
	ticket, ok := s.Snapshot().Ticket(qrCode)
	if !ok {
		return models.Ticket{}, fmt.Errorf("ticket %s: %w", qrCode, ErrTicketNotFound)
	}
	return ticket, nil
}

// apply writes the patch and then refreshes the snapshot so the change is
// visible before the next scheduled poll.
func (s *Service) apply(ctx context.Context, st Station, action, qrCode string, patch store.TicketPatch) (models.Ticket, error) {
	updated, err := s.store.UpdateTicket(ctx, qrCode, patch)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("%s %s: %w", action, qrCode, err)
	}
	log.Printf("queue action=%s ticket=%s room=%s operator=%s", action, updated.QueueNumber, updated.RoomID, st.Operator)
	if err := s.Refresh(ctx); err != nil {
		log.Printf("refresh after %s: %v", action, err)
	}
	return updated, nil
}

func cloneHistory(history []models.HistorySegment) []models.HistorySegment {
	if history == nil {
		return nil
	}
	cloned := make([]models.HistorySegment, len(history))
	for i, segment := range history {
		cloned[i] = segment
		if segment.LeftAt != nil {
			left := *segment.LeftAt
			cloned[i].LeftAt = &left
		}
		if segment.DurationMinutes != nil {
			minutes := *segment.DurationMinutes
			cloned[i].DurationMinutes = &minutes
		}
	}
	return cloned
}
