// Package announce turns snapshot refreshes into serialized voice
// announcements, one per new call event, across every room.
package announce

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/queue"
	"github.com/eieicore/queue-v1/internal/speech"
)

// announceKey identifies one call event. A repeat call changes called_at
// and therefore the key, which is what makes it announce again.
type announceKey struct {
	queueNumber string
	calledAt    string
}

func keyFor(t models.Ticket) announceKey {
	key := announceKey{queueNumber: t.QueueNumber}
	if t.CalledAt != nil {
		key.calledAt = t.CalledAt.UTC().Format(time.RFC3339Nano)
	}
	return key
}

type pendingItem struct {
	roomID      string
	queueNumber string
	roomName    string
	key         announceKey
}

type Sequencer struct {
	speaker  speech.Speaker
	language string
	cooldown time.Duration

	mu            sync.Mutex
	pending       []pendingItem
	lastAnnounced map[string]announceKey
	speaking      bool
	primed        bool

	wake chan struct{}
}

func NewSequencer(speaker speech.Speaker, language string, cooldown time.Duration) *Sequencer {
	if !Supported(language) {
		language = DefaultLanguage
	}
	return &Sequencer{
		speaker:       speaker,
		language:      language,
		cooldown:      cooldown,
		lastAnnounced: make(map[string]announceKey),
		wake:          make(chan struct{}, 1),
	}
}

// Observe inspects a fresh snapshot and queues an announcement for every
// room whose serving ticket carries a call event not yet announced. The
// first snapshot after startup only primes the bookkeeping, so a restart
// does not re-announce calls already in progress.
func (s *Sequencer) Observe(snap *queue.Snapshot) {
	serving := snap.ServingTickets()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.primed {
		for _, t := range serving {
			s.lastAnnounced[t.RoomID] = keyFor(t)
		}
		s.primed = true
		return
	}

	seen := make(map[string]bool, len(serving))
	queued := false
	for _, t := range serving {
		if t.QueueNumber == "" || t.RoomID == "" {
			continue
		}
		seen[t.RoomID] = true
		key := keyFor(t)
		if s.lastAnnounced[t.RoomID] == key {
			continue
		}
		roomName := t.RoomID
		if room, ok := snap.Room(t.RoomID); ok {
			roomName = room.LocalizedName(s.language)
		}
		item := pendingItem{roomID: t.RoomID, queueNumber: t.QueueNumber, roomName: roomName, key: key}
		if s.replacePending(item) {
			queued = true
		}
	}

	// A room that emptied out may announce again as soon as a new ticket
	// is called there.
	for roomID := range s.lastAnnounced {
		if !seen[roomID] {
			delete(s.lastAnnounced, roomID)
		}
	}

	if queued {
		s.notify()
	}
}

// replacePending queues the item, superseding any still-pending entry for
// the same room. It reports whether the pending set changed.
func (s *Sequencer) replacePending(item pendingItem) bool {
	for i, existing := range s.pending {
		if existing.roomID != item.roomID {
			continue
		}
		if existing.key == item.key {
			return false
		}
		s.pending[i] = item
		return true
	}
	s.pending = append(s.pending, item)
	return true
}

func (s *Sequencer) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drains pending announcements one at a time until the context is
// cancelled. Speech failures are logged and the sequencer advances.
func (s *Sequencer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for s.announceNext(ctx) {
		}
	}
}

func (s *Sequencer) announceNext(ctx context.Context) bool {
	s.mu.Lock()
	if s.speaking || len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	item := s.pending[0]
	s.pending = s.pending[1:]
	s.lastAnnounced[item.roomID] = item.key
	s.speaking = true
	s.mu.Unlock()

	text, tag := Message(s.language, item.queueNumber, item.roomName)
	if err := s.speaker.Speak(ctx, text, tag); err != nil {
		log.Printf("announce failed room=%s ticket=%s: %v", item.roomID, item.queueNumber, err)
	}

	if s.cooldown > 0 {
		timer := time.NewTimer(s.cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
	return ctx.Err() == nil
}
