package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"scorewise-backend/internal/database"
	"scorewise-backend/internal/grading"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/storage"
	"scorewise-backend/pkg/api"
)

type TaskProcessor struct {
	db       *gorm.DB
	storage  storage.ObjectStore
	reciever messaging.Reciever

	extractor *Extractor
	engine    *grading.Engine
	rubrics   *grading.Library
}

func NewTaskProcessor(db *gorm.DB, store storage.ObjectStore, reciever messaging.Reciever, extractor *Extractor, engine *grading.Engine, rubrics *grading.Library) *TaskProcessor {
	return &TaskProcessor{
		db:        db,
		storage:   store,
		reciever:  reciever,
		extractor: extractor,
		engine:    engine,
		rubrics:   rubrics,
	}
}

func (proc *TaskProcessor) Start() {
	slog.Info("starting task processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *TaskProcessor) Stop() {
	slog.Info("stopping task processor")

	proc.reciever.Close()
}

func (proc *TaskProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.GradingQueue:
		var payload messaging.GradingTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling grading task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processGradingTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil { // reject unknown message type
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (proc *TaskProcessor) processGradingTask(ctx context.Context, payload messaging.GradingTaskPayload) error {
	taskId := payload.TaskId

	slog.Info("processing grading task", "task_id", taskId)

	var task database.GradingTask
	if err := proc.db.WithContext(ctx).Preload("Submissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).First(&task, "id = ?", taskId).Error; err != nil {
		slog.Error("error fetching grading task", "task_id", taskId, "error", err)
		return fmt.Errorf("error getting grading task: %w", err)
	}

	if err := database.UpdateTaskStatus(ctx, proc.db, taskId, database.TaskRunning); err != nil {
		slog.Error("error marking task as running", "task_id", taskId, "error", err)
	}

	results, err := proc.gradeSubmissions(ctx, task)
	if err != nil {
		slog.Error("error running grading task", "task_id", taskId, "error", err)
		database.MarkTaskFailed(ctx, proc.db, taskId, err)
		return fmt.Errorf("error running grading task: %w", err)
	}

	if err := database.SaveTaskResults(ctx, proc.db, taskId, results); err != nil {
		database.MarkTaskFailed(ctx, proc.db, taskId, err)
		return fmt.Errorf("error saving grading task results: %w", err)
	}

	slog.Info("grading task completed successfully", "task_id", taskId, "submissions", len(results.IndividualResults))

	return nil
}

func (proc *TaskProcessor) gradeSubmissions(ctx context.Context, task database.GradingTask) (api.TaskResults, error) {
	if len(task.Submissions) == 0 {
		return api.TaskResults{}, fmt.Errorf("grading task %s has no submissions", task.Id)
	}

	rubric := proc.rubrics.Select(task.Subject, task.AssessmentType)

	assignmentText, err := proc.referenceText(ctx, task.AssignmentPath)
	if err != nil {
		return api.TaskResults{}, fmt.Errorf("error extracting assignment text: %w", err)
	}
	solutionText, _ := proc.referenceText(ctx, task.SolutionPath)
	rubricNotes, _ := proc.referenceText(ctx, task.RubricPath)

	individual := make([]api.GradingResult, 0, len(task.Submissions))
	for _, sub := range task.Submissions {
		path, err := proc.storage.LocalPath(ctx, sub.FilePath)
		if err != nil {
			slog.Warn("submission file not found in storage", "task_id", task.Id, "seq", sub.Seq, "error", err)
			path = sub.FilePath
		}

		extraction := proc.extractor.Extract(ctx, path)

		result := proc.engine.Score(ctx, grading.ScoringInput{
			AssignmentText: assignmentText,
			SubmissionText: extraction.Text,
			SolutionText:   solutionText,
			RubricNotes:    rubricNotes,
			Rubric:         rubric,
			Subject:        task.Subject,
			AssessmentType: task.AssessmentType,
		})
		result.SubmissionId = sub.Seq
		result.FilePath = sub.FilePath
		result.UsedOcr = extraction.UsedOcr

		database.UpdateSubmissionOutcome(ctx, proc.db, task.Id, sub.Seq, extraction.UsedOcr, result.OverallScore)

		slog.Info("graded submission", "task_id", task.Id, "seq", sub.Seq, "score", result.OverallScore, "used_ocr", extraction.UsedOcr)

		individual = append(individual, result)
	}

	return api.TaskResults{
		TaskId:            task.Id,
		Subject:           task.Subject,
		AssessmentType:    task.AssessmentType,
		RubricUsed:        rubric.ToApi(),
		SubmissionCount:   len(individual),
		IndividualResults: individual,
		OverallStatistics: grading.ComputeStatistics(individual),
		Status:            api.TaskStatusCompleted,
		ProcessedAt:       time.Now().UTC(),
	}, nil
}

// referenceText extracts an optional reference document (assignment,
// solution, or instructor rubric). A missing path is not an error, the
// prompt simply omits the section.
func (proc *TaskProcessor) referenceText(ctx context.Context, key sql.NullString) (string, error) {
	if !key.Valid || key.String == "" {
		return "", nil
	}

	path, err := proc.storage.LocalPath(ctx, key.String)
	if err != nil {
		return "", fmt.Errorf("reference document %s not found: %w", key.String, err)
	}

	return proc.extractor.Extract(ctx, path).Text, nil
}
