package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tutorhub/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for thread messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, threadID int, senderID int, content string, imageURLs []string) (models.Message, error)
	ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID int) error
	BulkDeleteMessages(ctx context.Context, messageIDs []int) (int, error)
	ThreadIDs(ctx context.Context, messageIDs []int) ([]int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to a thread.
func (r *MessageRepo) CreateMessage(ctx context.Context, threadID int, senderID int, content string, imageURLs []string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (thread_id, sender_id, content, image_urls) VALUES ($1, $2, $3, $4)
         RETURNING id, thread_id, sender_id, content, image_urls, created_at`,
		threadID, senderID, content, pq.StringArray(imageURLs)).
		Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Content, &msg.ImageURLs, &msg.CreatedAt)
	return msg, err
}

// ListThreadMessages returns a thread's messages with sender display fields
// joined in. This is the privileged aggregation: it reads every message in
// the thread regardless of per-row visibility, because sender identities
// must be resolved for all of them. Ordered by creation time, ties by id.
func (r *MessageRepo) ListThreadMessages(ctx context.Context, threadID int) ([]models.Message, error) {
	query := `SELECT m.id, m.thread_id, m.sender_id, u.name AS sender_name, u.role AS sender_role,
            m.content, m.image_urls, m.created_at
        FROM messages m
        JOIN users u ON u.id = m.sender_id
        WHERE m.thread_id = $1
        ORDER BY m.created_at ASC, m.id ASC`
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, threadID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, thread_id, sender_id, content, image_urls, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessage removes a single message. Reactions cascade.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ThreadIDs returns the distinct threads the given messages belong to, used
// to target change-event fan-out before a bulk delete.
func (r *MessageRepo) ThreadIDs(ctx context.Context, messageIDs []int) ([]int, error) {
	if len(messageIDs) == 0 {
		return []int{}, nil
	}
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT thread_id FROM messages WHERE id = ANY($1)`, pq.Array(int64Slice(messageIDs)))
	return ids, err
}

// BulkDeleteMessages removes an explicit id set and returns the number of
// rows actually deleted. Fewer than requested means some were already gone,
// which is not an error.
func (r *MessageRepo) BulkDeleteMessages(ctx context.Context, messageIDs []int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ANY($1)`, pq.Array(int64Slice(messageIDs)))
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
