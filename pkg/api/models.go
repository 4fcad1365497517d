package api

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusError      = "error"
)

type GradingTask struct {
	Id             uuid.UUID
	Subject        string
	AssessmentType string
	Status         string

	SubmissionCount int

	CreationTime   time.Time
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`

	Results *TaskResults `json:"Results,omitempty"`
	Error   string       `json:"Error,omitempty"`
}

// GradingResult is the per-submission outcome. It is created once by the
// scoring engine and never mutated afterwards.
type GradingResult struct {
	SubmissionId int    `json:"submission_id"`
	FilePath     string `json:"file_path"`
	UsedOcr      bool   `json:"used_ocr"`

	OverallScore        int            `json:"overall_score"`
	RubricScores        map[string]int `json:"rubric_scores"`
	Feedback            string         `json:"feedback"`
	DetailedFeedback    string         `json:"detailed_feedback"`
	Strengths           []string       `json:"strengths"`
	AreasForImprovement []string       `json:"areas_for_improvement"`
	AiConfidence        float64        `json:"ai_confidence"`
}

// BatchStatistics is derived from a set of GradingResults; it has no
// lifecycle of its own and is recomputed from the results every time.
type BatchStatistics struct {
	AverageScore      float64        `json:"average_score"`
	HighestScore      int            `json:"highest_score"`
	LowestScore       int            `json:"lowest_score"`
	TotalSubmissions  int            `json:"total_submissions"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

type TaskResults struct {
	TaskId            uuid.UUID                  `json:"task_id"`
	Subject           string                     `json:"subject"`
	AssessmentType    string                     `json:"assessment_type"`
	RubricUsed        map[string]RubricCriterion `json:"rubric_used"`
	SubmissionCount   int                        `json:"submission_count"`
	IndividualResults []GradingResult            `json:"individual_results"`
	OverallStatistics BatchStatistics            `json:"overall_statistics"`
	Status            string                     `json:"status"`
	Error             string                     `json:"error,omitempty"`
	ProcessedAt       time.Time                  `json:"processed_at"`
}

type RubricCriterion struct {
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

type CreateTaskResponse struct {
	TaskId uuid.UUID
	Status string
}
