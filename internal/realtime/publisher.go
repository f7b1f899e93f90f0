package realtime

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/queue"
)

type roomEnvelope struct {
	Type         string         `json:"type"`
	RoomID       string         `json:"room_id"`
	Current      *models.Ticket `json:"current"`
	WaitingCount int            `json:"waiting_count"`
	FetchedAt    time.Time      `json:"fetched_at"`
}

// PublishSnapshot broadcasts one envelope per room after a poll refresh.
func PublishSnapshot(h *Hub, snap *queue.Snapshot) {
	for _, room := range snap.Rooms {
		if !room.IsActive {
			continue
		}
		env := roomEnvelope{
			Type:         "room.snapshot",
			RoomID:       room.RoomCode,
			WaitingCount: snap.WaitingCount(room.RoomCode),
			FetchedAt:    snap.FetchedAt,
		}
		if current, ok := snap.CurrentServing(room.RoomCode); ok {
			env.Current = &current
		}
		payload, err := json.Marshal(env)
		if err != nil {
			log.Printf("marshal room snapshot %s: %v", room.RoomCode, err)
			continue
		}
		h.Broadcast(payload, room.RoomCode)
	}
}

// SessionHandler returns the sockjs session callback wiring a display
// client into the hub.
func SessionHandler(h *Hub) func(sockjs.Session) {
	return func(session sockjs.Session) {
		client := &Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, "")
				continue
			}
			h.UpdateSubscription(client, parsed.RoomID)
		}
	}
}
