package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skondo/wordkeep/internal/progress"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	reviewedAt := now.Add(-24 * time.Hour)

	record := func(reps, interval, total, correct int, due time.Time) progress.ReviewRecord {
		return progress.ReviewRecord{
			ItemID:         "x",
			EaseFactor:     2.5,
			Repetitions:    reps,
			IntervalDays:   interval,
			NextDueAt:      due,
			LastReviewedAt: &reviewedAt,
			TotalReviews:   total,
			CorrectReviews: correct,
		}
	}

	tests := []struct {
		name    string
		records []progress.ReviewRecord
		stats   progress.Stats
		want    Summary
	}{
		{
			name: "empty store",
			want: Summary{
				Stages: []StageCount{
					{Stage: StageNew}, {Stage: StageLearning},
					{Stage: StageYoung}, {Stage: StageMature},
				},
			},
		},
		{
			name: "mixed stages and accuracy",
			records: []progress.ReviewRecord{
				record(0, 0, 0, 0, now),                        // new, due
				record(2, 6, 4, 3, now.Add(time.Hour)),         // learning, not due
				record(4, 14, 8, 7, now.Add(-time.Hour)),       // young, due
				record(6, 30, 12, 11, now.AddDate(0, 0, 20)),   // mature, mastered
				record(5, 35, 10, 9, now.Add(-48*time.Hour)),   // mature, mastered, due
			},
			stats: progress.Stats{StreakDays: 4, ReviewsToday: 21, DailyGoal: 20},
			want: Summary{
				TotalItems:      5,
				DueNow:          3,
				Mastered:        2,
				TotalReviews:    34,
				CorrectReviews:  30,
				AverageAccuracy: float64(30) / float64(34),
				StreakDays:      4,
				ReviewsToday:    21,
				DailyGoal:       20,
				GoalMet:         true,
				Stages: []StageCount{
					{Stage: StageNew, Count: 1},
					{Stage: StageLearning, Count: 1},
					{Stage: StageYoung, Count: 1},
					{Stage: StageMature, Count: 2},
				},
			},
		},
		{
			name: "goal not met",
			records: []progress.ReviewRecord{
				record(1, 1, 1, 1, now.AddDate(0, 0, 1)),
			},
			stats: progress.Stats{StreakDays: 1, ReviewsToday: 3, DailyGoal: 20},
			want: Summary{
				TotalItems:      1,
				TotalReviews:    1,
				CorrectReviews:  1,
				AverageAccuracy: 1,
				StreakDays:      1,
				ReviewsToday:    3,
				DailyGoal:       20,
				Stages: []StageCount{
					{Stage: StageNew},
					{Stage: StageLearning, Count: 1},
					{Stage: StageYoung},
					{Stage: StageMature},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.records, tt.stats, now)
			assert.Equal(t, tt.want, got)
		})
	}
}
