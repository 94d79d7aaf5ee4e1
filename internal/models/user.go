package models

import "time"

// Roles known to the service.
const (
	RoleTutor  = "tutor"
	RoleParent = "parent"
)

// User is an identity: a tutor running the business or a parent account.
type User struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Group is a tutoring class used as a thread recipient scope.
type Group struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TutorID   int       `db:"tutor_id" json:"tutor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
