package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// MaxMessageImages caps the number of image attachments per message.
const MaxMessageImages = 5

// Message is immutable once sent, except for deletion. Ordering is strictly
// by creation timestamp with ties broken by id.
type Message struct {
	ID         int            `db:"id" json:"id"`
	ThreadID   int            `db:"thread_id" json:"thread_id"`
	SenderID   int            `db:"sender_id" json:"sender_id"`
	SenderName string         `db:"sender_name" json:"sender_name,omitempty"`
	SenderRole string         `db:"sender_role" json:"sender_role,omitempty"`
	Content    string         `db:"content" json:"content"`
	ImageURLs  pq.StringArray `db:"image_urls" json:"image_urls"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Reaction is one raw (message, user, emoji) row. The unique constraint on
// that triple makes toggling a pure flip: remove if present, add if absent.
type Reaction struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionSummary is the derived per-emoji grouping shown on a message.
type ReactionSummary struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reacted_by_me"`
}

// GroupReactions folds raw reaction rows into per-message summaries keyed by
// (message, emoji), flagging whether viewerID is among the reactors. Summaries
// for each message are ordered by emoji for stable output.
func GroupReactions(rows []Reaction, viewerID int) map[int][]ReactionSummary {
	type key struct {
		messageID int
		emoji     string
	}
	index := make(map[key]*ReactionSummary)
	order := make(map[int][]string)

	for _, r := range rows {
		k := key{r.MessageID, r.Emoji}
		summary, ok := index[k]
		if !ok {
			summary = &ReactionSummary{Emoji: r.Emoji}
			index[k] = summary
			order[r.MessageID] = append(order[r.MessageID], r.Emoji)
		}
		summary.Count++
		if r.UserID == viewerID {
			summary.ReactedByMe = true
		}
	}

	result := make(map[int][]ReactionSummary, len(order))
	for messageID, emojis := range order {
		sort.Strings(emojis)
		summaries := make([]ReactionSummary, 0, len(emojis))
		for _, emoji := range emojis {
			summaries = append(summaries, *index[key{messageID, emoji}])
		}
		result[messageID] = summaries
	}
	return result
}
