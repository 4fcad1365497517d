package core

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorewise-backend/internal/database"
	"scorewise-backend/internal/grading"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/storage"
	"scorewise-backend/pkg/api"
)

type cannedLLM struct {
	reply string
	err   error
}

func (m *cannedLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.reply, m.err
}

type fakeTask struct {
	queue    string
	payload  []byte
	acked    int
	nacked   int
	rejected int
}

func (t *fakeTask) Type() string    { return t.queue }
func (t *fakeTask) Payload() []byte { return t.payload }
func (t *fakeTask) Ack() error      { t.acked++; return nil }
func (t *fakeTask) Nack() error     { t.nacked++; return nil }
func (t *fakeTask) Reject() error   { t.rejected++; return nil }

func gradingPayload(taskId uuid.UUID) messaging.GradingTaskPayload {
	return messaging.GradingTaskPayload{TaskId: taskId}
}

func setupProcessorTest(t *testing.T, llm grading.LLM) (*TaskProcessor, *storage.LocalObjectStore) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	// Plain-text objects are not parseable as PDFs, so extraction falls
	// through to the stub transcriber.
	extractor := NewExtractor(&stubTranscriber{text: "The French Revolution began in 1789."}, NewQualityAnalyzer(nil), DefaultDeciderConfig())

	proc := NewTaskProcessor(db, store, nil, extractor, grading.NewEngine(llm), grading.DefaultLibrary())
	return proc, store
}

func createGradingTask(t *testing.T, proc *TaskProcessor, store *storage.LocalObjectStore, submissions int) uuid.UUID {
	t.Helper()

	taskId := uuid.New()
	ctx := context.Background()

	task := database.GradingTask{
		Id:              taskId,
		Subject:         "History",
		AssessmentType:  "Essay",
		Status:          database.TaskQueued,
		SubmissionCount: submissions,
		CreationTime:    time.Now().UTC(),
	}
	require.NoError(t, proc.db.Create(&task).Error)

	for i := 1; i <= submissions; i++ {
		key := fmt.Sprintf("tasks/%s/submissions/%d.pdf", taskId, i)
		require.NoError(t, store.PutObject(ctx, key, bytes.NewReader([]byte("not a real pdf"))))
		require.NoError(t, proc.db.Create(&database.Submission{TaskId: taskId, Seq: i, FilePath: key}).Error)
	}

	return taskId
}

func TestProcessGradingTask(t *testing.T) {
	llm := &cannedLLM{reply: `{
		"scores": {"Historical Knowledge": 90, "Analysis & Interpretation": 80, "Argumentation": 80, "Writing Quality": 80},
		"feedback": "Solid essay.",
		"detailed_feedback": "Good grasp of the period.",
		"strengths": ["Accurate dates"],
		"areas_for_improvement": ["Cite more sources"],
		"confidence": 0.9
	}`}

	proc, store := setupProcessorTest(t, llm)
	taskId := createGradingTask(t, proc, store, 2)

	err := proc.processGradingTask(context.Background(), gradingPayload(taskId))
	require.NoError(t, err)

	var task database.GradingTask
	require.NoError(t, proc.db.Preload("Submissions").First(&task, "id = ?", taskId).Error)
	assert.Equal(t, database.TaskCompleted, task.Status)
	assert.True(t, task.CompletionTime.Valid)

	var results api.TaskResults
	require.NoError(t, json.Unmarshal(task.Results, &results))
	assert.Equal(t, api.TaskStatusCompleted, results.Status)
	assert.Equal(t, "History", results.Subject)
	assert.Equal(t, 2, results.SubmissionCount)
	require.Len(t, results.IndividualResults, 2)

	for i, result := range results.IndividualResults {
		assert.Equal(t, i+1, result.SubmissionId)
		assert.True(t, result.UsedOcr)
		assert.Equal(t, 83, result.OverallScore)
		assert.Equal(t, "Solid essay.", result.Feedback)
	}

	assert.Equal(t, 83.0, results.OverallStatistics.AverageScore)
	assert.Contains(t, results.RubricUsed, "Historical Knowledge")

	for _, sub := range task.Submissions {
		assert.True(t, sub.UsedOcr)
		assert.Equal(t, sql.NullInt64{Int64: 83, Valid: true}, sub.OverallScore)
	}
}

func TestProcessGradingTaskModelFailure(t *testing.T) {
	proc, store := setupProcessorTest(t, &cannedLLM{err: fmt.Errorf("model unavailable")})
	taskId := createGradingTask(t, proc, store, 1)

	err := proc.processGradingTask(context.Background(), gradingPayload(taskId))
	require.NoError(t, err, "model failures degrade to fallback results, they do not fail the task")

	var task database.GradingTask
	require.NoError(t, proc.db.First(&task, "id = ?", taskId).Error)
	assert.Equal(t, database.TaskCompleted, task.Status)

	var results api.TaskResults
	require.NoError(t, json.Unmarshal(task.Results, &results))
	require.Len(t, results.IndividualResults, 1)
	assert.Equal(t, 75, results.IndividualResults[0].OverallScore)
	assert.Equal(t, 0.5, results.IndividualResults[0].AiConfidence)
}

func TestProcessGradingTaskNoSubmissions(t *testing.T) {
	proc, store := setupProcessorTest(t, &cannedLLM{reply: "{}"})
	taskId := createGradingTask(t, proc, store, 0)

	err := proc.processGradingTask(context.Background(), gradingPayload(taskId))
	require.Error(t, err)

	var task database.GradingTask
	require.NoError(t, proc.db.First(&task, "id = ?", taskId).Error)
	assert.Equal(t, database.TaskFailed, task.Status)
	assert.True(t, task.Error.Valid)
}

func TestProcessTaskMalformedPayload(t *testing.T) {
	proc, _ := setupProcessorTest(t, &cannedLLM{reply: "{}"})

	task := &fakeTask{queue: "grading_queue", payload: []byte("not json")}
	proc.ProcessTask(task)

	assert.Equal(t, 1, task.rejected)
	assert.Equal(t, 0, task.acked)
	assert.Equal(t, 0, task.nacked)
}

func TestProcessTaskUnknownQueue(t *testing.T) {
	proc, _ := setupProcessorTest(t, &cannedLLM{reply: "{}"})

	task := &fakeTask{queue: "unknown_queue", payload: []byte("{}")}
	proc.ProcessTask(task)

	assert.Equal(t, 1, task.rejected)
}
