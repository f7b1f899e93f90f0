package queue

import (
	"time"

	"github.com/eieicore/queue-v1/internal/models"
)

// Snapshot is one poll cycle's view of every ticket and room. All reads
// during a cycle answer from the same snapshot, so transient store
// staleness only ever shows up as a whole cycle lagging behind.
type Snapshot struct {
	Tickets   []models.Ticket
	Rooms     []models.Room
	FetchedAt time.Time

	roomsByCode map[string]models.Room
}

func NewSnapshot(tickets []models.Ticket, rooms []models.Room, fetchedAt time.Time) *Snapshot {
	byCode := make(map[string]models.Room, len(rooms))
	for _, room := range rooms {
		byCode[room.RoomCode] = room
	}
	return &Snapshot{Tickets: tickets, Rooms: rooms, FetchedAt: fetchedAt, roomsByCode: byCode}
}

func (s *Snapshot) Room(code string) (models.Room, bool) {
	room, ok := s.roomsByCode[code]
	return room, ok
}

func (s *Snapshot) Ticket(qrCode string) (models.Ticket, bool) {
	for _, t := range s.Tickets {
		if t.QRCode == qrCode {
			return t, true
		}
	}
	return models.Ticket{}, false
}

// CurrentServing resolves the ticket being served in a room. More than one
// serving ticket is tolerated; the one with the earliest called_at wins,
// and a ticket without called_at loses to any that has one.
func (s *Snapshot) CurrentServing(roomCode string) (models.Ticket, bool) {
	var current models.Ticket
	found := false
	for _, t := range s.Tickets {
		if t.RoomID != roomCode || t.Status != models.StatusServing {
			continue
		}
		if !found {
			current = t
			found = true
			continue
		}
		if current.CalledAt == nil || (t.CalledAt != nil && t.CalledAt.Before(*current.CalledAt)) {
			current = t
		}
	}
	return current, found
}

func (s *Snapshot) WaitingList(roomCode string) []models.Ticket {
	return OrderWaiting(s.Tickets, roomCode)
}

func (s *Snapshot) PausedList(roomCode string) []models.Ticket {
	var paused []models.Ticket
	for _, t := range s.Tickets {
		if t.RoomID == roomCode && t.Status == models.StatusPaused {
			paused = append(paused, t)
		}
	}
	return paused
}

// ServingTickets returns every serving ticket across all rooms, feeding the
// announcement sequencer. Records still carrying the legacy "called" status
// are treated as serving.
func (s *Snapshot) ServingTickets() []models.Ticket {
	var serving []models.Ticket
	for _, t := range s.Tickets {
		if t.Status == models.StatusServing || t.Status == "called" {
			serving = append(serving, t)
		}
	}
	return serving
}

func (s *Snapshot) WaitingCount(roomCode string) int {
	count := 0
	for _, t := range s.Tickets {
		if t.RoomID == roomCode && t.Status == models.StatusWaiting {
			count++
		}
	}
	return count
}
