package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scorewise-backend/pkg/api"
)

func resultsWithScores(scores ...int) []api.GradingResult {
	results := make([]api.GradingResult, len(scores))
	for i, score := range scores {
		results[i] = api.GradingResult{SubmissionId: i + 1, OverallScore: score}
	}
	return results
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics(resultsWithScores(95, 82, 71, 55))

	assert.Equal(t, 75.8, stats.AverageScore)
	assert.Equal(t, 95, stats.HighestScore)
	assert.Equal(t, 55, stats.LowestScore)
	assert.Equal(t, 4, stats.TotalSubmissions)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 0, "F": 1}, stats.GradeDistribution)
}

func TestComputeStatisticsBoundaryScores(t *testing.T) {
	stats := ComputeStatistics(resultsWithScores(90, 80, 70, 60, 59))

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1, "F": 1}, stats.GradeDistribution)
}

func TestComputeStatisticsEmptyInput(t *testing.T) {
	stats := ComputeStatistics(nil)

	assert.Equal(t, api.BatchStatistics{}, stats)
}

func TestComputeStatisticsSingleResult(t *testing.T) {
	stats := ComputeStatistics(resultsWithScores(88))

	assert.Equal(t, 88.0, stats.AverageScore)
	assert.Equal(t, 88, stats.HighestScore)
	assert.Equal(t, 88, stats.LowestScore)
	assert.Equal(t, 1, stats.TotalSubmissions)
}
