package queue

import "github.com/eieicore/queue-v1/internal/models"

const (
	ActionCall       = "call"
	ActionRepeatCall = "repeat_call"
	ActionPause      = "pause"
	ActionResume     = "resume"
	ActionSkip       = "skip"
	ActionComplete   = "complete"
	ActionTransfer   = "transfer"
)

var transitionMap = map[string][]string{
	ActionCall:       {models.StatusWaiting},
	ActionRepeatCall: {models.StatusServing},
	ActionPause:      {models.StatusServing},
	ActionResume:     {models.StatusPaused},
	ActionSkip:       {models.StatusServing},
	ActionComplete:   {models.StatusServing},
	ActionTransfer:   {models.StatusServing},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
