package store

import (
	"context"
	"strings"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
)

// Criteria is a set of field=value match conditions. A key carrying the
// "_gte" suffix matches records whose field is at or after the value.
type Criteria map[string]any

const gteSuffix = "_gte"

// Field returns the underlying field name and whether the key is a
// greater-or-equal range condition.
func Field(key string) (string, bool) {
	if strings.HasSuffix(key, gteSuffix) {
		return strings.TrimSuffix(key, gteSuffix), true
	}
	return key, false
}

// TicketPatch is a partial update keyed by qr_code. Nil pointer fields are
// left untouched; the Clear flags null out their nullable timestamp.
type TicketPatch struct {
	Status           *string
	RoomID           *string
	Priority         *int
	CalledAt         *time.Time
	ClearCalledAt    bool
	CompletedAt      *time.Time
	ClearCompletedAt bool
	PausedAt         *time.Time
	ClearPausedAt    bool
	RoomHistory      []models.HistorySegment
}

type TicketStore interface {
	ListTickets(ctx context.Context, orderHint string) ([]models.Ticket, error)
	FilterTickets(ctx context.Context, criteria Criteria) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, qrCode string, patch TicketPatch) (models.Ticket, error)
	CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}
