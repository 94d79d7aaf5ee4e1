package models

import (
	"time"

	"github.com/lib/pq"
)

// Lesson statuses.
const (
	LessonScheduled = "scheduled"
	LessonCompleted = "completed"
	LessonCancelled = "cancelled"
)

// Payment statuses. Transitions are forward-only: none -> invoiced -> paid.
const (
	PaymentNone     = "none"
	PaymentInvoiced = "invoiced"
	PaymentPaid     = "paid"
)

// Lesson is the billing view of a scheduled session.
type Lesson struct {
	ID              int       `db:"id" json:"id"`
	TutorID         int       `db:"tutor_id" json:"tutor_id"`
	ParentID        int       `db:"parent_id" json:"parent_id"`
	StudentName     string    `db:"student_name" json:"student_name"`
	Subject         string    `db:"subject" json:"subject"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Status          string    `db:"status" json:"status"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	AmountCents     int64     `db:"amount_cents" json:"amount_cents"`
	RateDisplay     string    `db:"rate_display" json:"rate_display"`
}

// FamilyLessons groups one parent's lessons for a billing period.
type FamilyLessons struct {
	ParentID   int      `json:"parent_id"`
	ParentName string   `json:"parent_name"`
	Lessons    []Lesson `json:"lessons"`
}

// PrepaidPackage is a display projection of a pre-purchased session bundle.
// It is consumed session-by-session outside the invoice flow and is a
// read-only input to collected-bucket totals.
type PrepaidPackage struct {
	ID            int            `db:"id" json:"id"`
	ParentID      int            `db:"parent_id" json:"parent_id"`
	StudentNames  pq.StringArray `db:"student_names" json:"student_names"`
	TotalSessions int            `db:"total_sessions" json:"total_sessions"`
	UsedSessions  int            `db:"used_sessions" json:"used_sessions"`
	AmountCents   int64          `db:"amount_cents" json:"amount_cents"`
	PaidAt        *time.Time     `db:"paid_at" json:"paid_at,omitempty"`
}
