package models

import "time"

type Ticket struct {
	QRCode        string           `json:"qr_code"`
	QueueNumber   string           `json:"queue_number"`
	PatientType   string           `json:"patient_type"`
	PatientID     string           `json:"patient_id,omitempty"`
	PatientName   string           `json:"patient_name,omitempty"`
	TriageLevel   string           `json:"triage_level,omitempty"`
	Status        string           `json:"status"`
	RoomID        string           `json:"room_id"`
	Priority      int              `json:"priority"`
	EstimatedWait int              `json:"estimated_wait_time,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CalledAt      *time.Time       `json:"called_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	PausedAt      *time.Time       `json:"paused_at,omitempty"`
	RoomHistory   []HistorySegment `json:"room_history"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusPaused    = "paused"
	StatusSkipped   = "skipped"
	StatusCompleted = "completed"
)

const (
	PatientNew         = "new"
	PatientReturning   = "returning"
	PatientAppointment = "appointment"
)

const (
	TriageResuscitation = "resuscitation"
	TriageEmergency     = "emergency"
	TriageUrgent        = "urgent"
	TriageLessUrgent    = "less_urgent"
	TriageNonUrgent     = "non_urgent"
)

var triageRank = map[string]int{
	TriageResuscitation: 5,
	TriageEmergency:     4,
	TriageUrgent:        3,
	TriageLessUrgent:    2,
	TriageNonUrgent:     1,
}

// TriageRank maps a triage level to its calling priority. Unknown or
// missing levels rank lowest.
func TriageRank(level string) int {
	if rank, ok := triageRank[level]; ok {
		return rank
	}
	return 1
}

// HistorySegment records one time-bounded stay in a room. LeftAt is nil
// while the ticket is still in the room; DurationMinutes is derived when
// the segment closes.
type HistorySegment struct {
	RoomID          string     `json:"room_id"`
	RoomName        string     `json:"room_name"`
	EnteredAt       time.Time  `json:"entered_at"`
	LeftAt          *time.Time `json:"left_at"`
	DurationMinutes *int       `json:"duration_minutes"`
}
