// Package scheduler implements the SM-2 spaced-repetition algorithm over a
// single review record. It performs no I/O and keeps no state; callers inject
// the current time and persist the returned record themselves.
package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/skondo/wordkeep/internal/progress"
)

const (
	// MinQuality and MaxQuality bound the SM-2 answer grade scale.
	MinQuality = 0
	MaxQuality = 5

	// PassingQuality is the lowest grade counted as a correct answer.
	PassingQuality = 3

	// lapseRequeue is how soon a failed item is shown again.
	lapseRequeue = 10 * time.Minute

	lapsePenalty = 0.2
)

// InvalidQualityError reports an answer grade outside [0, 5].
type InvalidQualityError struct {
	Quality int
}

func (e *InvalidQualityError) Error() string {
	return fmt.Sprintf("quality %d out of range [%d, %d]", e.Quality, MinQuality, MaxQuality)
}

// Advance computes the record state after a review graded quality at now.
// The input record is not modified. An out-of-range quality is rejected,
// not clamped.
func Advance(record progress.ReviewRecord, quality int, now time.Time) (progress.ReviewRecord, error) {
	if quality < MinQuality || quality > MaxQuality {
		return progress.ReviewRecord{}, &InvalidQualityError{Quality: quality}
	}

	next := record
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.TotalReviews++

	if quality < PassingQuality {
		next.Repetitions = 0
		next.IntervalDays = 0
		next.EaseFactor = math.Max(record.EaseFactor-lapsePenalty, progress.MinEaseFactor)
		next.NextDueAt = now.Add(lapseRequeue)
		return next, nil
	}

	next.EaseFactor = nextEaseFactor(record.EaseFactor, quality)
	next.IntervalDays = nextInterval(record.IntervalDays, record.Repetitions, next.EaseFactor)
	next.Repetitions++
	next.CorrectReviews++
	next.NextDueAt = now.AddDate(0, 0, next.IntervalDays)
	return next, nil
}

// nextEaseFactor applies the standard SM-2 ease adjustment, floored at the
// minimum ease factor.
func nextEaseFactor(ef float64, quality int) float64 {
	q := float64(quality)
	delta := 0.1 - (5-q)*(0.08+(5-q)*0.02)
	return math.Max(ef+delta, progress.MinEaseFactor)
}

// nextInterval returns the review interval in days after a correct answer.
func nextInterval(lastInterval, repetitions int, ef float64) int {
	switch repetitions {
	case 0:
		return 1
	case 1:
		return 6
	default:
		return int(math.Round(float64(lastInterval) * ef))
	}
}
