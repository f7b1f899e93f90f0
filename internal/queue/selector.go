package queue

import (
	"sort"

	"github.com/eieicore/queue-v1/internal/models"
)

// OrderWaiting returns the waiting tickets for a room ordered by triage
// rank descending, then creation time ascending. The sort is stable, so
// identical input always yields identical output.
func OrderWaiting(tickets []models.Ticket, roomCode string) []models.Ticket {
	var waiting []models.Ticket
	for _, t := range tickets {
		if t.RoomID == roomCode && t.Status == models.StatusWaiting {
			waiting = append(waiting, t)
		}
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		ri, rj := models.TriageRank(waiting[i].TriageLevel), models.TriageRank(waiting[j].TriageLevel)
		if ri != rj {
			return ri > rj
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})
	return waiting
}
