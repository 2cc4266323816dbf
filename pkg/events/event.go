package events

import "time"

// Event types carried on the bus. Outbound types become the subject suffix
// "events.<type>"; inbound host events use the host's own dotted names.
const (
	TypeBranchCompleted = "BRAINSTORM_BRANCH_COMPLETED"
	TypeQuestionPushed  = "BRAINSTORM_QUESTION_PUSHED"
	TypeSessionEnded    = "BRAINSTORM_SESSION_ENDED"

	TypeHostSessionDeleted = "session.deleted"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "BRAINSTORM_BRANCH_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String returns Data[key] when it is a string.
func (e BaseEvent) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}
