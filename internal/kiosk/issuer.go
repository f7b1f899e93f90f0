// Package kiosk issues new queue tickets the way the walk-in kiosk does:
// generate a queue number and reference code, pick the starting room, and
// create the ticket with its first open history segment.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/store"
)

var (
	ErrUnknownPatientType = errors.New("unknown patient type")
	ErrRoomRequired       = errors.New("room is required")
	ErrRoomNotFound       = errors.New("room not found")
	ErrNoHistoryRoom      = errors.New("no history-taking room configured")
)

const codePrefix = "MEDIQUEUE"

var typePrefix = map[string]string{
	models.PatientNew:         "N",
	models.PatientReturning:   "R",
	models.PatientAppointment: "A",
}

type IssueInput struct {
	PatientType string
	PatientID   string
	PatientName string
	RoomCode    string
}

type Issuer struct {
	store store.TicketStore
	now   func() time.Time
}

func NewIssuer(ticketStore store.TicketStore) *Issuer {
	return &Issuer{
		store: ticketStore,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a waiting ticket. New patients always start in the
// history-taking room regardless of the requested room; appointments get
// baseline priority 1.
func (i *Issuer) Issue(ctx context.Context, input IssueInput) (models.Ticket, error) {
	prefix, ok := typePrefix[input.PatientType]
	if !ok {
		return models.Ticket{}, fmt.Errorf("%w: %q", ErrUnknownPatientType, input.PatientType)
	}

	rooms, err := i.store.ListRooms(ctx)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("list rooms: %w", err)
	}

	room, err := resolveRoom(rooms, input)
	if err != nil {
		return models.Ticket{}, err
	}

	now := i.now()
	queueNumber := generateQueueNumber(room.RoomCode, prefix, now)
	priority := 0
	if input.PatientType == models.PatientAppointment {
		priority = 1
	}

	ticket := models.Ticket{
		QRCode:        generateReferenceCode(queueNumber, now),
		QueueNumber:   queueNumber,
		PatientType:   input.PatientType,
		PatientID:     strings.TrimSpace(input.PatientID),
		PatientName:   strings.TrimSpace(input.PatientName),
		TriageLevel:   models.TriageNonUrgent,
		Status:        models.StatusWaiting,
		RoomID:        room.RoomCode,
		Priority:      priority,
		EstimatedWait: estimateWaitMinutes(),
		CreatedAt:     now,
		RoomHistory: []models.HistorySegment{{
			RoomID:    room.RoomCode,
			RoomName:  room.RoomName,
			EnteredAt: now,
		}},
	}

	created, err := i.store.CreateTicket(ctx, ticket)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	return created, nil
}

func resolveRoom(rooms []models.Room, input IssueInput) (models.Room, error) {
	if input.PatientType == models.PatientNew {
		for _, room := range rooms {
			if room.RoomType == "history_taking" && room.IsActive {
				return room, nil
			}
		}
		return models.Room{}, ErrNoHistoryRoom
	}
	if input.RoomCode == "" {
		return models.Room{}, ErrRoomRequired
	}
	for _, room := range rooms {
		if room.RoomCode == input.RoomCode {
			return room, nil
		}
	}
	return models.Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, input.RoomCode)
}

func generateQueueNumber(roomCode, prefix string, now time.Time) string {
	suffix := now.UnixMilli() % 1000
	return fmt.Sprintf("%s%s%03d", roomCode, prefix, suffix)
}

func generateReferenceCode(queueNumber string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%s", codePrefix, queueNumber, now.UnixMilli(), shortID())
}

func shortID() string {
	return uuid.NewString()[:8]
}

func estimateWaitMinutes() int {
	// The kiosk shows a rough figure only; real wait depends on triage.
	return 15
}
