package models

import "time"

// Recipient scopes for a thread.
const (
	RecipientAll      = "all"
	RecipientGroup    = "group"
	RecipientSpecific = "specific"
)

// Thread is a conversation created by a tutor and scoped to one or more parents.
type Thread struct {
	ID            int       `db:"id" json:"id"`
	Subject       string    `db:"subject" json:"subject"`
	RecipientType string    `db:"recipient_type" json:"recipient_type"`
	GroupID       *int      `db:"group_id" json:"group_id,omitempty"`
	CreatedBy     int       `db:"created_by" json:"created_by"`
	Archived      bool      `db:"archived" json:"archived"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ThreadParticipant tracks a user's visibility into a thread with a read watermark.
// Unread count for the participant is the number of messages created after
// last_read_at, or all messages when the watermark is null.
type ThreadParticipant struct {
	ThreadID   int        `db:"thread_id" json:"thread_id"`
	UserID     int        `db:"user_id" json:"user_id"`
	UserName   string     `db:"user_name" json:"user_name"`
	Role       string     `db:"role" json:"role"`
	LastReadAt *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
}

// ThreadPreview is one row of the thread-list aggregation: thread metadata
// plus latest message snippet and the viewer's unread count, computed
// server-side in a single query.
type ThreadPreview struct {
	ThreadID      int        `db:"id" json:"thread_id"`
	Subject       string     `db:"subject" json:"subject"`
	RecipientType string     `db:"recipient_type" json:"recipient_type"`
	GroupID       *int       `db:"group_id" json:"group_id,omitempty"`
	CreatedBy     int        `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastSenderID  *int       `db:"last_sender_id" json:"last_sender_id,omitempty"`
	LastSender    *string    `db:"last_sender" json:"last_sender,omitempty"`
	LastActivity  *time.Time `db:"last_activity" json:"last_activity,omitempty"`
	UnreadCount   int        `db:"unread_count" json:"unread_count"`
}
