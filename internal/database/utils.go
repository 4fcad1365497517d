package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scorewise-backend/pkg/api"
)

func UpdateTaskStatus(ctx context.Context, txn *gorm.DB, taskId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == TaskCompleted || status == TaskFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&GradingTask{Id: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error updating grading task status", "task_id", taskId, "status", status, "error", err)
		return err
	}
	return nil
}

// SaveTaskResults stores the completed result descriptor and marks the task
// done in one update.
func SaveTaskResults(ctx context.Context, txn *gorm.DB, taskId uuid.UUID, results api.TaskResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("error serializing task results: %w", err)
	}

	updates := map[string]any{
		"status":          TaskCompleted,
		"results":         data,
		"completion_time": time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Model(&GradingTask{Id: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error saving grading task results", "task_id", taskId, "error", err)
		return err
	}
	return nil
}

// MarkTaskFailed records a task-level failure; this is the only error class
// that surfaces to the caller as a failed task rather than degraded output.
func MarkTaskFailed(ctx context.Context, txn *gorm.DB, taskId uuid.UUID, cause error) {
	results, err := json.Marshal(api.TaskResults{
		TaskId:      taskId,
		Status:      api.TaskStatusError,
		Error:       cause.Error(),
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("error serializing failure results", "task_id", taskId, "error", err)
	}

	updates := map[string]any{
		"status":          TaskFailed,
		"error":           cause.Error(),
		"results":         results,
		"completion_time": time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Model(&GradingTask{Id: taskId}).Updates(updates).Error; err != nil {
		slog.Error("error marking grading task failed", "task_id", taskId, "error", err)
	}
}

func UpdateSubmissionOutcome(ctx context.Context, txn *gorm.DB, taskId uuid.UUID, seq int, usedOcr bool, overallScore int) {
	updates := map[string]any{
		"used_ocr":      usedOcr,
		"overall_score": overallScore,
	}

	if err := txn.WithContext(ctx).Model(&Submission{TaskId: taskId, Seq: seq}).Updates(updates).Error; err != nil {
		slog.Error("error updating submission outcome", "task_id", taskId, "seq", seq, "error", err)
	}
}
