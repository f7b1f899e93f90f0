// Package memory holds tickets and rooms in process memory. It backs tests
// and development runs where no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	tickets map[string]models.Ticket
	rooms   []models.Room
}

func New() *Store {
	return &Store{tickets: make(map[string]models.Ticket)}
}

// SeedRooms replaces the room list.
func (s *Store) SeedRooms(rooms []models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append([]models.Room(nil), rooms...)
}

func (s *Store) ListTickets(ctx context.Context, orderHint string) ([]models.Ticket, error) {
	s.mu.RLock()
	tickets := make([]models.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		tickets = append(tickets, cloneTicket(t))
	}
	s.mu.RUnlock()
	sortTickets(tickets, orderHint)
	return tickets, nil
}

func (s *Store) FilterTickets(ctx context.Context, criteria store.Criteria) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.Ticket
	for _, t := range s.tickets {
		if matches(t, criteria) {
			matched = append(matched, cloneTicket(t))
		}
	}
	sortTickets(matched, "created_at")
	return matched, nil
}

func (s *Store) UpdateTicket(ctx context.Context, qrCode string, patch store.TicketPatch) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[qrCode]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.RoomID != nil {
		ticket.RoomID = *patch.RoomID
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.CalledAt != nil {
		called := *patch.CalledAt
		ticket.CalledAt = &called
	} else if patch.ClearCalledAt {
		ticket.CalledAt = nil
	}
	if patch.CompletedAt != nil {
		completed := *patch.CompletedAt
		ticket.CompletedAt = &completed
	} else if patch.ClearCompletedAt {
		ticket.CompletedAt = nil
	}
	if patch.PausedAt != nil {
		paused := *patch.PausedAt
		ticket.PausedAt = &paused
	} else if patch.ClearPausedAt {
		ticket.PausedAt = nil
	}
	if patch.RoomHistory != nil {
		ticket.RoomHistory = append([]models.HistorySegment(nil), patch.RoomHistory...)
	}
	s.tickets[qrCode] = ticket
	return cloneTicket(ticket), nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	s.tickets[ticket.QRCode] = cloneTicket(ticket)
	return cloneTicket(ticket), nil
}

func (s *Store) ListRooms(ctx context.Context) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := append([]models.Room(nil), s.rooms...)
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].DisplayOrder < rooms[j].DisplayOrder })
	return rooms, nil
}

func matches(t models.Ticket, criteria store.Criteria) bool {
	for key, want := range criteria {
		field, gte := store.Field(key)
		switch field {
		case "qr_code":
			if !stringEq(t.QRCode, want) {
				return false
			}
		case "queue_number":
			if !stringEq(t.QueueNumber, want) {
				return false
			}
		case "room_id":
			if !stringEq(t.RoomID, want) {
				return false
			}
		case "status":
			if !stringEq(t.Status, want) {
				return false
			}
		case "patient_type":
			if !stringEq(t.PatientType, want) {
				return false
			}
		case "created_at":
			wantTime, ok := asTime(want)
			if !ok {
				return false
			}
			if gte {
				if t.CreatedAt.Before(wantTime) {
					return false
				}
			} else if !t.CreatedAt.Equal(wantTime) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func stringEq(have string, want any) bool {
	s, ok := want.(string)
	return ok && s == have
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func sortTickets(tickets []models.Ticket, orderHint string) {
	desc := strings.HasPrefix(orderHint, "-")
	field := strings.TrimPrefix(orderHint, "-")
	if field != "created_at" {
		return
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		if desc {
			return tickets[j].CreatedAt.Before(tickets[i].CreatedAt)
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

func cloneTicket(t models.Ticket) models.Ticket {
	clone := t
	clone.CalledAt = cloneTime(t.CalledAt)
	clone.CompletedAt = cloneTime(t.CompletedAt)
	clone.PausedAt = cloneTime(t.PausedAt)
	if t.RoomHistory != nil {
		clone.RoomHistory = make([]models.HistorySegment, len(t.RoomHistory))
		for i, segment := range t.RoomHistory {
			clone.RoomHistory[i] = segment
			clone.RoomHistory[i].LeftAt = cloneTime(segment.LeftAt)
			if segment.DurationMinutes != nil {
				minutes := *segment.DurationMinutes
				clone.RoomHistory[i].DurationMinutes = &minutes
			}
		}
	}
	return clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
