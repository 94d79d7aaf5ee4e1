package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tutorhub/internal/models"
)

// LessonRepository exposes the billing read model and the invoice transition.
type LessonRepository interface {
	ListFamilyLessons(ctx context.Context, tutorID int, from, to time.Time) ([]models.FamilyLessons, error)
	ListPrepaidPackages(ctx context.Context, parentIDs []int) ([]models.PrepaidPackage, error)
	MarkLessonsInvoiced(ctx context.Context, tutorID int, parentID int, lessonIDs []int) (int, error)
}

// LessonRepo is a sqlx-backed repository.
type LessonRepo struct {
	db *sqlx.DB
}

// NewLessonRepo constructs LessonRepo.
func NewLessonRepo(db *sqlx.DB) *LessonRepo {
	return &LessonRepo{db: db}
}

type familyLessonRow struct {
	models.Lesson
	ParentName string `db:"parent_name"`
}

// ListFamilyLessons fetches the tutor's lessons for a billing period grouped
// by family (parent account), ordered per family by schedule.
func (r *LessonRepo) ListFamilyLessons(ctx context.Context, tutorID int, from, to time.Time) ([]models.FamilyLessons, error) {
	query := `SELECT l.id, l.tutor_id, l.parent_id, l.student_name, l.subject, l.scheduled_at,
            l.duration_minutes, l.status, l.payment_status, l.amount_cents, l.rate_display,
            u.name AS parent_name
        FROM lessons l
        JOIN users u ON u.id = l.parent_id
        WHERE l.tutor_id = $1 AND l.scheduled_at >= $2 AND l.scheduled_at < $3
        ORDER BY u.name ASC, l.parent_id ASC, l.scheduled_at ASC, l.id ASC`

	rows := []familyLessonRow{}
	if err := r.db.SelectContext(ctx, &rows, query, tutorID, from, to); err != nil {
		return nil, err
	}

	families := []models.FamilyLessons{}
	byParent := map[int]int{}
	for _, row := range rows {
		idx, ok := byParent[row.ParentID]
		if !ok {
			idx = len(families)
			byParent[row.ParentID] = idx
			families = append(families, models.FamilyLessons{ParentID: row.ParentID, ParentName: row.ParentName})
		}
		families[idx].Lessons = append(families[idx].Lessons, row.Lesson)
	}
	return families, nil
}

// ListPrepaidPackages returns prepaid session bundles for the given parents.
// Read-only input to collected-bucket totals.
func (r *LessonRepo) ListPrepaidPackages(ctx context.Context, parentIDs []int) ([]models.PrepaidPackage, error) {
	if len(parentIDs) == 0 {
		return []models.PrepaidPackage{}, nil
	}
	packages := []models.PrepaidPackage{}
	err := r.db.SelectContext(ctx, &packages,
		`SELECT id, parent_id, student_names, total_sessions, used_sessions, amount_cents, paid_at
         FROM prepaid_packages WHERE parent_id = ANY($1) ORDER BY id ASC`,
		pq.Array(int64Slice(parentIDs)))
	return packages, err
}

// MarkLessonsInvoiced transitions the selected lessons none -> invoiced and
// returns the affected count. The WHERE clause enforces the forward-only
// transition: cancelled, already-invoiced, or paid lessons are untouched.
func (r *LessonRepo) MarkLessonsInvoiced(ctx context.Context, tutorID int, parentID int, lessonIDs []int) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE lessons SET payment_status = 'invoiced'
         WHERE id = ANY($1) AND tutor_id = $2 AND parent_id = $3
         AND status = 'completed' AND payment_status = 'none'`,
		pq.Array(int64Slice(lessonIDs)), tutorID, parentID)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
