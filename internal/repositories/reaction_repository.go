package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tutorhub/internal/models"
)

// ReactionRepository defines interactions for message reactions.
type ReactionRepository interface {
	ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx-backed repository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// ToggleReaction flips the (message, user, emoji) row: removes it if present,
// adds it if absent. Returns whether the reaction was added. The unique
// constraint makes a concurrent double-insert collapse into a no-op.
func (r *ReactionRepo) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	removed, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}

	res, err = r.db.ExecContext(ctx,
		`INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
         ON CONFLICT (message_id, user_id, emoji) DO NOTHING`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	added, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

// ListReactions returns raw reaction rows for exactly the given message ids.
func (r *ReactionRepo) ListReactions(ctx context.Context, messageIDs []int) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return []models.Reaction{}, nil
	}
	rows := []models.Reaction{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, message_id, user_id, emoji, created_at FROM reactions WHERE message_id = ANY($1) ORDER BY id ASC`,
		pq.Array(int64Slice(messageIDs)))
	return rows, err
}
