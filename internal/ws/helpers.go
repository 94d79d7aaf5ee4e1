package ws

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"tutorhub/internal/models"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// Scope keys. One live subscription per logical scope: a user's thread list,
// a single thread, a user's unread badge, or a tutor's billing view.
func ScopeThreadList(userID int) string { return fmt.Sprintf("threads:%d", userID) }
func ScopeThread(threadID int) string   { return fmt.Sprintf("thread:%d", threadID) }
func ScopeUnread(userID int) string     { return fmt.Sprintf("unread:%d", userID) }
func ScopeBilling(tutorID int) string   { return fmt.Sprintf("billing:%d", tutorID) }

// ScopesFor expands a change event into every scope key it is relevant to.
// Scopes are independent channels: there is no cross-scope ordering guarantee,
// each subscriber refetches on its own.
func ScopesFor(ev models.ChangeEvent) []string {
	var scopes []string
	switch ev.Table {
	case models.TableThreads, models.TableMessages:
		if ev.ThreadID != 0 {
			scopes = append(scopes, ScopeThread(ev.ThreadID))
		}
		for _, id := range ev.ParticipantIDs {
			scopes = append(scopes, ScopeThreadList(id), ScopeUnread(id))
		}
	case models.TableLessons:
		if ev.TutorID != 0 {
			scopes = append(scopes, ScopeBilling(ev.TutorID))
		}
	}
	return scopes
}
