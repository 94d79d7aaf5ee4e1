package models

// Tables referenced by change events.
const (
	TableThreads  = "threads"
	TableMessages = "messages"
	TableLessons  = "lessons"
)

// ChangeEvent describes a store mutation. It is published by the mutators
// and fanned out to every websocket scope the change is relevant to; clients
// respond by refetching, not by applying the event incrementally.
type ChangeEvent struct {
	Table          string `json:"table"`
	Action         string `json:"action"` // insert | update | delete
	ThreadID       int    `json:"thread_id,omitempty"`
	TutorID        int    `json:"tutor_id,omitempty"`
	ParticipantIDs []int  `json:"participant_ids,omitempty"`
}

// RefetchEvent is the payload delivered to websocket subscribers.
type RefetchEvent struct {
	Type     string `json:"type"` // always "changed"
	Table    string `json:"table"`
	ThreadID int    `json:"thread_id,omitempty"`
}
