// Package progress provides the vocabulary progress domain models and the
// durable store that owns them.
package progress

import "time"

const (
	// DefaultEaseFactor is the ease factor assigned on first exposure to an item.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor below which an ease factor never drops.
	MinEaseFactor = 1.3

	masteredRepetitions = 5
	masteredAccuracy    = 0.8
)

// Item is a learnable vocabulary unit.
type Item struct {
	ID         string    `db:"id" json:"id" yaml:"id"`
	Expression string    `db:"expression" json:"expression" yaml:"expression"`
	Meaning    string    `db:"meaning" json:"meaning" yaml:"meaning"`
	CreatedAt  time.Time `db:"created_at" json:"created_at" yaml:"created_at"`
}

// ReviewRecord tracks the spaced-repetition state of one item.
type ReviewRecord struct {
	ItemID         string     `db:"item_id" json:"item_id" yaml:"item_id"`
	EaseFactor     float64    `db:"ease_factor" json:"ease_factor" yaml:"ease_factor"`
	IntervalDays   int        `db:"interval_days" json:"interval_days" yaml:"interval_days"`
	Repetitions    int        `db:"repetitions" json:"repetitions" yaml:"repetitions"`
	NextDueAt      time.Time  `db:"next_due_at" json:"next_due_at" yaml:"next_due_at"`
	LastReviewedAt *time.Time `db:"last_reviewed_at" json:"last_reviewed_at,omitempty" yaml:"last_reviewed_at,omitempty"`
	TotalReviews   int        `db:"total_reviews" json:"total_reviews" yaml:"total_reviews"`
	CorrectReviews int        `db:"correct_reviews" json:"correct_reviews" yaml:"correct_reviews"`
}

// NewReviewRecord returns the record state assigned on first exposure to an item.
func NewReviewRecord(itemID string, now time.Time) ReviewRecord {
	return ReviewRecord{
		ItemID:     itemID,
		EaseFactor: DefaultEaseFactor,
		NextDueAt:  now,
	}
}

// Accuracy returns the ratio of correct reviews, or 0 before the first review.
func (r ReviewRecord) Accuracy() float64 {
	if r.TotalReviews == 0 {
		return 0
	}
	return float64(r.CorrectReviews) / float64(r.TotalReviews)
}

// Mastered reports whether the item has at least 5 consecutive correct reviews
// and at least 80% accuracy.
func (r ReviewRecord) Mastered() bool {
	return r.Repetitions >= masteredRepetitions && r.Accuracy() >= masteredAccuracy
}

// Due reports whether the item is due for review at the given time.
func (r ReviewRecord) Due(now time.Time) bool {
	return !r.NextDueAt.After(now)
}

// Stats holds the auxiliary study counters that accompany the record set in
// snapshots: streaks and daily goals.
type Stats struct {
	StreakDays    int    `db:"streak_days" json:"streak_days" yaml:"streak_days"`
	LastStudyDate string `db:"last_study_date" json:"last_study_date" yaml:"last_study_date"`
	DailyGoal     int    `db:"daily_goal" json:"daily_goal" yaml:"daily_goal"`
	ReviewsToday  int    `db:"reviews_today" json:"reviews_today" yaml:"reviews_today"`
}

// RecordStudy updates the streak and daily counters for a review performed at now.
// A review on the day after LastStudyDate extends the streak; a gap resets it.
func (s *Stats) RecordStudy(now time.Time) {
	today := now.Format(time.DateOnly)
	if s.LastStudyDate == today {
		s.ReviewsToday++
		return
	}
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	if s.LastStudyDate == yesterday {
		s.StreakDays++
	} else {
		s.StreakDays = 1
	}
	s.LastStudyDate = today
	s.ReviewsToday = 1
}
