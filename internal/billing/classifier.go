package billing

import (
	"errors"
	"fmt"
	"strconv"

	"tutorhub/internal/models"
)

// Bucket is a billing filter over a tutor's lessons.
type Bucket string

const (
	BucketReadyToBill Bucket = "ready_to_bill"
	BucketInvoiced    Bucket = "invoiced"
	BucketCollected   Bucket = "collected"
	BucketAll         Bucket = "all"
)

var ErrUnknownBucket = errors.New("unknown billing bucket")

// ParseBucket validates a filter string. Empty defaults to ready_to_bill.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketReadyToBill, BucketInvoiced, BucketCollected, BucketAll:
		return Bucket(s), nil
	case "":
		return BucketReadyToBill, nil
	}
	return "", ErrUnknownBucket
}

// LessonInBucket reports whether the lesson belongs to the bucket. Cancelled
// lessons appear only under "all"; every non-cancelled lesson falls in
// exactly one of ready_to_bill / invoiced / collected by payment status.
func LessonInBucket(l models.Lesson, bucket Bucket) bool {
	if l.Status == models.LessonCancelled {
		return bucket == BucketAll
	}
	switch bucket {
	case BucketAll:
		return true
	case BucketReadyToBill:
		return l.PaymentStatus == models.PaymentNone
	case BucketInvoiced:
		return l.PaymentStatus == models.PaymentInvoiced
	case BucketCollected:
		return l.PaymentStatus == models.PaymentPaid
	}
	return false
}

// FamilySummary is the per-family aggregation for one bucket.
type FamilySummary struct {
	ParentID    int             `json:"parent_id"`
	ParentName  string          `json:"parent_name"`
	Lessons     []models.Lesson `json:"lessons"`
	LessonCount int             `json:"lesson_count"`
	AmountCents int64           `json:"amount_cents"`

	// Collected bucket only: prepaid payments merged into combined totals.
	Prepaid             []models.PrepaidPackage `json:"prepaid,omitempty"`
	PrepaidCount        int                     `json:"prepaid_count,omitempty"`
	PrepaidAmountCents  int64                   `json:"prepaid_amount_cents,omitempty"`
	CombinedCount       int                     `json:"combined_count"`
	CombinedAmountCents int64                   `json:"combined_amount_cents"`
	CombinedLabel       string                  `json:"combined_label"`
	Unit                string                  `json:"unit"` // "lessons" or "items"
}

// Totals aggregates across all families for display above the list.
type Totals struct {
	Families            int    `json:"families"`
	LessonCount         int    `json:"lesson_count"`
	AmountCents         int64  `json:"amount_cents"`
	CombinedCount       int    `json:"combined_count"`
	CombinedAmountCents int64  `json:"combined_amount_cents"`
	Unit                string `json:"unit"`
}

// Classify partitions each family's lessons by the bucket predicate, drops
// families with no matching lessons, and computes per-family totals. For the
// collected bucket the supplied prepaid packages (keyed by parent) are merged
// into combined count/amount with an "items" unit label; prepaid payments are
// never derived from lessons.
func Classify(bucket Bucket, families []models.FamilyLessons, prepaid []models.PrepaidPackage) []FamilySummary {
	prepaidByParent := map[int][]models.PrepaidPackage{}
	if bucket == BucketCollected {
		for _, p := range prepaid {
			prepaidByParent[p.ParentID] = append(prepaidByParent[p.ParentID], p)
		}
	}

	summaries := []FamilySummary{}
	for _, family := range families {
		matched := []models.Lesson{}
		var amount int64
		for _, l := range family.Lessons {
			if LessonInBucket(l, bucket) {
				matched = append(matched, l)
				amount += l.AmountCents
			}
		}
		if len(matched) == 0 {
			continue
		}

		summary := FamilySummary{
			ParentID:            family.ParentID,
			ParentName:          family.ParentName,
			Lessons:             matched,
			LessonCount:         len(matched),
			AmountCents:         amount,
			CombinedCount:       len(matched),
			CombinedAmountCents: amount,
			CombinedLabel:       strconv.Itoa(len(matched)),
			Unit:                "lessons",
		}

		if packages := prepaidByParent[family.ParentID]; len(packages) > 0 {
			summary.Prepaid = packages
			summary.PrepaidCount = len(packages)
			for _, p := range packages {
				summary.PrepaidAmountCents += p.AmountCents
			}
			summary.CombinedCount = summary.LessonCount + summary.PrepaidCount
			summary.CombinedAmountCents = summary.AmountCents + summary.PrepaidAmountCents
			summary.CombinedLabel = fmt.Sprintf("%d+%d", summary.LessonCount, summary.PrepaidCount)
			summary.Unit = "items"
		}

		summaries = append(summaries, summary)
	}
	return summaries
}

// GrandTotals sums the per-family summaries.
func GrandTotals(summaries []FamilySummary) Totals {
	totals := Totals{Unit: "lessons"}
	for _, s := range summaries {
		totals.Families++
		totals.LessonCount += s.LessonCount
		totals.AmountCents += s.AmountCents
		totals.CombinedCount += s.CombinedCount
		totals.CombinedAmountCents += s.CombinedAmountCents
		if s.Unit == "items" {
			totals.Unit = "items"
		}
	}
	return totals
}
