package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub/internal/models"
)

func lesson(id int, status, payment string, amountCents int64) models.Lesson {
	return models.Lesson{ID: id, ParentID: 1, Status: status, PaymentStatus: payment, AmountCents: amountCents}
}

func TestLessonBucketsAreAStrictPartition(t *testing.T) {
	lessons := []models.Lesson{
		lesson(1, models.LessonCompleted, models.PaymentNone, 4000),
		lesson(2, models.LessonCompleted, models.PaymentInvoiced, 4000),
		lesson(3, models.LessonCompleted, models.PaymentPaid, 4000),
		lesson(4, models.LessonScheduled, models.PaymentNone, 4000),
	}
	buckets := []Bucket{BucketReadyToBill, BucketInvoiced, BucketCollected}

	for _, l := range lessons {
		matches := 0
		for _, b := range buckets {
			if LessonInBucket(l, b) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "lesson %d must fall in exactly one bucket", l.ID)
		assert.True(t, LessonInBucket(l, BucketAll))
	}
}

func TestCancelledLessonsOnlyAppearUnderAll(t *testing.T) {
	cancelled := lesson(9, models.LessonCancelled, models.PaymentNone, 4000)

	assert.False(t, LessonInBucket(cancelled, BucketReadyToBill))
	assert.False(t, LessonInBucket(cancelled, BucketInvoiced))
	assert.False(t, LessonInBucket(cancelled, BucketCollected))
	assert.True(t, LessonInBucket(cancelled, BucketAll))
}

func TestClassifyFamilyScenario(t *testing.T) {
	// Family F: A completed/none, B completed/invoiced, C cancelled/none.
	family := models.FamilyLessons{
		ParentID:   1,
		ParentName: "F",
		Lessons: []models.Lesson{
			lesson(1, models.LessonCompleted, models.PaymentNone, 4000),
			lesson(2, models.LessonCompleted, models.PaymentInvoiced, 5000),
			lesson(3, models.LessonCancelled, models.PaymentNone, 4000),
		},
	}
	families := []models.FamilyLessons{family}

	ready := Classify(BucketReadyToBill, families, nil)
	require.Len(t, ready, 1)
	require.Len(t, ready[0].Lessons, 1)
	assert.Equal(t, 1, ready[0].Lessons[0].ID)
	assert.Equal(t, int64(4000), GrandTotals(ready).AmountCents)

	invoiced := Classify(BucketInvoiced, families, nil)
	require.Len(t, invoiced, 1)
	require.Len(t, invoiced[0].Lessons, 1)
	assert.Equal(t, 2, invoiced[0].Lessons[0].ID)

	collected := Classify(BucketCollected, families, nil)
	assert.Empty(t, collected)

	all := Classify(BucketAll, families, nil)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Lessons, 3)
}

func TestClassifyDropsFamiliesWithNoMatchingLessons(t *testing.T) {
	families := []models.FamilyLessons{
		{ParentID: 1, ParentName: "A", Lessons: []models.Lesson{lesson(1, models.LessonCompleted, models.PaymentNone, 4000)}},
		{ParentID: 2, ParentName: "B", Lessons: []models.Lesson{lesson(2, models.LessonCompleted, models.PaymentPaid, 4000)}},
	}

	summaries := Classify(BucketReadyToBill, families, nil)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ParentID)
}

func TestCollectedBucketMergesPrepaidPackages(t *testing.T) {
	// One paid $40 lesson plus one $200 prepaid package (5 sessions, 2 used)
	// yields combined count "1+1" and combined amount $240.
	families := []models.FamilyLessons{
		{ParentID: 1, ParentName: "F", Lessons: []models.Lesson{lesson(1, models.LessonCompleted, models.PaymentPaid, 4000)}},
	}
	prepaid := []models.PrepaidPackage{
		{ID: 1, ParentID: 1, TotalSessions: 5, UsedSessions: 2, AmountCents: 20000},
	}

	summaries := Classify(BucketCollected, families, prepaid)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, 1, s.LessonCount)
	assert.Equal(t, 1, s.PrepaidCount)
	assert.Equal(t, "1+1", s.CombinedLabel)
	assert.Equal(t, int64(24000), s.CombinedAmountCents)
	assert.Equal(t, "items", s.Unit)

	totals := GrandTotals(summaries)
	assert.Equal(t, 2, totals.CombinedCount)
	assert.Equal(t, int64(24000), totals.CombinedAmountCents)
	assert.Equal(t, "items", totals.Unit)
}

func TestPrepaidIgnoredOutsideCollectedBucket(t *testing.T) {
	families := []models.FamilyLessons{
		{ParentID: 1, ParentName: "F", Lessons: []models.Lesson{lesson(1, models.LessonCompleted, models.PaymentNone, 4000)}},
	}
	prepaid := []models.PrepaidPackage{{ID: 1, ParentID: 1, AmountCents: 20000}}

	summaries := Classify(BucketReadyToBill, families, prepaid)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].Prepaid)
	assert.Equal(t, "lessons", summaries[0].Unit)
	assert.Equal(t, int64(4000), summaries[0].CombinedAmountCents)
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, BucketReadyToBill, b)

	b, err = ParseBucket("collected")
	require.NoError(t, err)
	assert.Equal(t, BucketCollected, b)

	_, err = ParseBucket("bogus")
	assert.ErrorIs(t, err, ErrUnknownBucket)
}
