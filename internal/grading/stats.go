package grading

import (
	"math"

	"scorewise-backend/pkg/api"
)

// ComputeStatistics derives cohort statistics from a set of grading results.
// An empty result set yields an empty statistics object, not an error.
func ComputeStatistics(results []api.GradingResult) api.BatchStatistics {
	if len(results) == 0 {
		return api.BatchStatistics{}
	}

	scores := make([]int, len(results))
	sum := 0
	highest, lowest := results[0].OverallScore, results[0].OverallScore

	for i, result := range results {
		scores[i] = result.OverallScore
		sum += result.OverallScore
		if result.OverallScore > highest {
			highest = result.OverallScore
		}
		if result.OverallScore < lowest {
			lowest = result.OverallScore
		}
	}

	return api.BatchStatistics{
		AverageScore:      math.Round(float64(sum)/float64(len(results))*10) / 10,
		HighestScore:      highest,
		LowestScore:       lowest,
		TotalSubmissions:  len(results),
		GradeDistribution: gradeDistribution(scores),
	}
}

func gradeDistribution(scores []int) map[string]int {
	distribution := map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}

	for _, score := range scores {
		switch {
		case score >= 90:
			distribution["A"]++
		case score >= 80:
			distribution["B"]++
		case score >= 70:
			distribution["C"]++
		case score >= 60:
			distribution["D"]++
		default:
			distribution["F"]++
		}
	}

	return distribution
}
