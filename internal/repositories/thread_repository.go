package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tutorhub/internal/models"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrGroupNotFound  = errors.New("group not found")
)

// ThreadRepository abstracts thread persistence.
type ThreadRepository interface {
	CreateThread(ctx context.Context, subject string, createdBy int, recipientType string, groupID *int, recipientIDs []int, content string, imageURLs []string) (int, error)
	GetThread(ctx context.Context, threadID int) (models.Thread, error)
	ListThreadPreviews(ctx context.Context, userID int, limit int) ([]models.ThreadPreview, error)
	ListParticipants(ctx context.Context, threadID int) ([]models.ThreadParticipant, error)
	ParticipantIDs(ctx context.Context, threadID int) ([]int, error)
	IsParticipant(ctx context.Context, threadID int, userID int) (bool, error)
	MarkThreadRead(ctx context.Context, threadID int, userID int) error
	CountUnread(ctx context.Context, userID int) (int, error)
	ArchiveThreads(ctx context.Context, threadIDs []int) (int, error)
	DeleteThreads(ctx context.Context, threadIDs []int) (int, error)
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

// CreateThread inserts the thread, resolves its participant set from the
// recipient scope, and stores the initial announcement message, all in one
// transaction. The creator is always a participant.
func (r *ThreadRepo) CreateThread(ctx context.Context, subject string, createdBy int, recipientType string, groupID *int, recipientIDs []int, content string, imageURLs []string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var participantIDs []int
	switch recipientType {
	case models.RecipientAll:
		if err := tx.SelectContext(ctx, &participantIDs, `SELECT id FROM users WHERE role = 'parent'`); err != nil {
			return 0, err
		}
	case models.RecipientGroup:
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM groups WHERE id=$1)`, *groupID); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrGroupNotFound
		}
		if err := tx.SelectContext(ctx, &participantIDs, `SELECT parent_id FROM group_members WHERE group_id=$1`, *groupID); err != nil {
			return 0, err
		}
	case models.RecipientSpecific:
		participantIDs = recipientIDs
	}

	var threadID int
	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO threads (subject, recipient_type, group_id, created_by) VALUES ($1, $2, $3, $4) RETURNING id`,
		subject, recipientType, groupID, createdBy,
	).Scan(&threadID); err != nil {
		return 0, err
	}

	seen := map[int]struct{}{createdBy: {}}
	members := []int{createdBy}
	for _, id := range participantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	for _, id := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO thread_participants (thread_id, user_id) VALUES ($1, $2)`, threadID, id); err != nil {
			return 0, err
		}
	}

	if content != "" || len(imageURLs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (thread_id, sender_id, content, image_urls) VALUES ($1, $2, $3, $4)`,
			threadID, createdBy, content, pq.StringArray(imageURLs)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return threadID, nil
}

// GetThread fetches a thread by id.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread,
		`SELECT id, subject, recipient_type, group_id, created_by, archived, created_at FROM threads WHERE id=$1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// ListThreadPreviews computes the thread-list rows for a user in a single
// aggregation: latest message via lateral join plus the user's unread count
// from the read watermark. Ordered by most recent activity.
func (r *ThreadRepo) ListThreadPreviews(ctx context.Context, userID int, limit int) ([]models.ThreadPreview, error) {
	query := `SELECT t.id, t.subject, t.recipient_type, t.group_id, t.created_by, t.created_at,
            lm.content AS last_message, lm.sender_id AS last_sender_id, u.name AS last_sender, lm.created_at AS last_activity,
            (SELECT COUNT(*) FROM messages m
                WHERE m.thread_id = t.id
                AND (tp.last_read_at IS NULL OR m.created_at > tp.last_read_at)) AS unread_count
        FROM threads t
        JOIN thread_participants tp ON tp.thread_id = t.id AND tp.user_id = $1
        LEFT JOIN LATERAL (
            SELECT content, sender_id, created_at FROM messages m
            WHERE m.thread_id = t.id
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT 1
        ) lm ON TRUE
        LEFT JOIN users u ON u.id = lm.sender_id
        WHERE t.archived = FALSE
        ORDER BY COALESCE(lm.created_at, t.created_at) DESC
        LIMIT $2`

	previews := []models.ThreadPreview{}
	err := r.db.SelectContext(ctx, &previews, query, userID, limit)
	return previews, err
}

// ListParticipants returns the thread's participants with resolved names.
func (r *ThreadRepo) ListParticipants(ctx context.Context, threadID int) ([]models.ThreadParticipant, error) {
	query := `SELECT tp.thread_id, tp.user_id, u.name AS user_name, u.role, tp.last_read_at
        FROM thread_participants tp
        JOIN users u ON u.id = tp.user_id
        WHERE tp.thread_id = $1
        ORDER BY u.name ASC`
	participants := []models.ThreadParticipant{}
	err := r.db.SelectContext(ctx, &participants, query, threadID)
	return participants, err
}

// ParticipantIDs returns just the participant user ids, used for event fan-out.
func (r *ThreadRepo) ParticipantIDs(ctx context.Context, threadID int) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM thread_participants WHERE thread_id=$1`, threadID)
	return ids, err
}

// IsParticipant checks whether a user has visibility into the thread.
func (r *ThreadRepo) IsParticipant(ctx context.Context, threadID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM thread_participants WHERE thread_id=$1 AND user_id=$2)`, threadID, userID)
	return exists, err
}

// MarkThreadRead advances the user's read watermark. Idempotent.
func (r *ThreadRepo) MarkThreadRead(ctx context.Context, threadID int, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE thread_participants SET last_read_at = NOW() WHERE thread_id=$1 AND user_id=$2`, threadID, userID)
	return err
}

// CountUnread returns the user's global unread message count across all
// non-archived threads.
func (r *ThreadRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*)
        FROM messages m
        JOIN thread_participants tp ON tp.thread_id = m.thread_id AND tp.user_id = $1
        JOIN threads t ON t.id = m.thread_id AND t.archived = FALSE
        WHERE tp.last_read_at IS NULL OR m.created_at > tp.last_read_at`
	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// ArchiveThreads flags the given threads archived and returns the affected
// count. Already-archived or missing ids are not an error.
func (r *ThreadRepo) ArchiveThreads(ctx context.Context, threadIDs []int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE threads SET archived = TRUE WHERE id = ANY($1) AND archived = FALSE`, pq.Array(int64Slice(threadIDs)))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// DeleteThreads permanently removes the given threads (messages and
// participants cascade) and returns the affected count.
func (r *ThreadRepo) DeleteThreads(ctx context.Context, threadIDs []int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM threads WHERE id = ANY($1)`, pq.Array(int64Slice(threadIDs)))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func int64Slice(ids []int) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func rowsAffected(res sql.Result) (int, error) {
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
