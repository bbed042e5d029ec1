package statistics

import (
	"time"

	"github.com/skondo/wordkeep/internal/progress"
)

// Stage buckets a review record by how far along the repetition schedule it is.
type Stage string

const (
	StageNew      Stage = "new"
	StageLearning Stage = "learning"
	StageYoung    Stage = "young"
	StageMature   Stage = "mature"
)

// StageCount holds the number of records in one stage.
type StageCount struct {
	Stage Stage
	Count int
}

// Summary holds aggregate study statistics computed from the full record set.
type Summary struct {
	TotalItems      int
	DueNow          int
	Mastered        int
	TotalReviews    int
	CorrectReviews  int
	AverageAccuracy float64
	StreakDays      int
	ReviewsToday    int
	DailyGoal       int
	GoalMet         bool
	Stages          []StageCount
}

// Summarize computes a Summary as of now. Records with no reviews count as new
// and do not drag the average accuracy down.
func Summarize(records []progress.ReviewRecord, stats progress.Stats, now time.Time) Summary {
	summary := Summary{
		TotalItems:   len(records),
		StreakDays:   stats.StreakDays,
		ReviewsToday: stats.ReviewsToday,
		DailyGoal:    stats.DailyGoal,
	}

	stageCounts := map[Stage]int{}
	for _, record := range records {
		if record.Due(now) {
			summary.DueNow++
		}
		if record.Mastered() {
			summary.Mastered++
		}
		summary.TotalReviews += record.TotalReviews
		summary.CorrectReviews += record.CorrectReviews
		stageCounts[stageOf(record)]++
	}

	if summary.TotalReviews > 0 {
		summary.AverageAccuracy = float64(summary.CorrectReviews) / float64(summary.TotalReviews)
	}
	summary.GoalMet = summary.DailyGoal > 0 && summary.ReviewsToday >= summary.DailyGoal

	for _, stage := range []Stage{StageNew, StageLearning, StageYoung, StageMature} {
		summary.Stages = append(summary.Stages, StageCount{Stage: stage, Count: stageCounts[stage]})
	}
	return summary
}

func stageOf(record progress.ReviewRecord) Stage {
	switch {
	case record.Repetitions == 0:
		return StageNew
	case record.IntervalDays < 7:
		return StageLearning
	case record.IntervalDays < 21:
		return StageYoung
	default:
		return StageMature
	}
}
