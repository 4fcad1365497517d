package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"scorewise-backend/internal/database"
	"scorewise-backend/pkg/api"
)

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func wireStatus(status string) string {
	switch status {
	case database.TaskCompleted:
		return api.TaskStatusCompleted
	case database.TaskFailed:
		return api.TaskStatusError
	default:
		return api.TaskStatusProcessing
	}
}

func convertGradingTask(t database.GradingTask) (api.GradingTask, error) {
	task := api.GradingTask{
		Id:              t.Id,
		Subject:         t.Subject,
		AssessmentType:  t.AssessmentType,
		Status:          wireStatus(t.Status),
		SubmissionCount: t.SubmissionCount,
		CreationTime:    t.CreationTime,
	}

	if t.CompletionTime.Valid {
		task.CompletionTime = &t.CompletionTime.Time
	}
	if t.Error.Valid {
		task.Error = t.Error.String
	}

	if len(t.Results) > 0 {
		var results api.TaskResults
		if err := json.Unmarshal(t.Results, &results); err != nil {
			return api.GradingTask{}, CodedError(http.StatusInternalServerError, fmt.Errorf("error parsing stored task results: %w", err))
		}
		task.Results = &results
	}

	return task, nil
}

func convertGradingTasks(ts []database.GradingTask) ([]api.GradingTask, error) {
	tasks := make([]api.GradingTask, 0, len(ts))
	for _, t := range ts {
		task, err := convertGradingTask(t)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
