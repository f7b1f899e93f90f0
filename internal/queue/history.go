package queue

import (
	"math"
	"time"

	"github.com/eieicore/queue-v1/internal/models"
)

// CloseOpenSegment closes the single open segment in history, stamping
// left_at and the rounded duration in minutes. A history with no open
// segment is returned unchanged, which makes a double close harmless.
func CloseOpenSegment(history []models.HistorySegment, at time.Time) []models.HistorySegment {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].LeftAt != nil {
			continue
		}
		left := at
		minutes := int(math.Round(at.Sub(history[i].EnteredAt).Minutes()))
		history[i].LeftAt = &left
		history[i].DurationMinutes = &minutes
		return history
	}
	return history
}

// OpenSegment appends a new open segment for the given room.
func OpenSegment(history []models.HistorySegment, room models.Room, at time.Time) []models.HistorySegment {
	return append(history, models.HistorySegment{
		RoomID:    room.RoomCode,
		RoomName:  room.RoomName,
		EnteredAt: at,
	})
}

// TotalServiceMinutes sums the durations of all closed segments.
func TotalServiceMinutes(history []models.HistorySegment) int {
	total := 0
	for _, segment := range history {
		if segment.DurationMinutes != nil {
			total += *segment.DurationMinutes
		}
	}
	return total
}
