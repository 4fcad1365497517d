package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	backend "scorewise-backend/internal/api"
	"scorewise-backend/internal/database"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/storage"
	"scorewise-backend/pkg/api"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func createRouter(t *testing.T, db *gorm.DB, queue messaging.Publisher) chi.Router {
	t.Helper()

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	service := backend.NewBackendService(db, queue, store)
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func addFile(t *testing.T, writer *multipart.Writer, field, filename string, content []byte) {
	t.Helper()
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
}

func createTaskRequest(t *testing.T, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for field, names := range files {
		for _, name := range names {
			addFile(t, writer, field, name, []byte("%PDF-1.4 fake"))
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/tasks", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCreateTask(t *testing.T) {
	db := createDB(t)
	queue := messaging.NewInMemoryQueue()
	router := createRouter(t, db, queue)

	req := createTaskRequest(t,
		map[string]string{"subject": "History", "assessment_type": "Essay"},
		map[string][]string{
			"assignment":  {"assignment.pdf"},
			"solution":    {"solution.pdf"},
			"submissions": {"alice.pdf", "bob.pdf"},
		},
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response api.CreateTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, api.TaskStatusProcessing, response.Status)

	var task database.GradingTask
	require.NoError(t, db.Preload("Submissions").First(&task, "id = ?", response.TaskId).Error)
	assert.Equal(t, database.TaskQueued, task.Status)
	assert.Equal(t, "History", task.Subject)
	assert.Equal(t, 2, task.SubmissionCount)
	assert.True(t, task.AssignmentPath.Valid)
	assert.True(t, task.SolutionPath.Valid)
	assert.False(t, task.RubricPath.Valid)
	require.Len(t, task.Submissions, 2)

	queued := <-queue.Tasks()
	var payload messaging.GradingTaskPayload
	require.NoError(t, json.Unmarshal(queued.Payload(), &payload))
	assert.Equal(t, response.TaskId, payload.TaskId)
}

func TestCreateTaskValidation(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string][]string
	}{
		{
			name:   "missing subject",
			fields: map[string]string{"assessment_type": "Essay"},
			files:  map[string][]string{"assignment": {"a.pdf"}, "submissions": {"s.pdf"}},
		},
		{
			name:   "missing assignment",
			fields: map[string]string{"subject": "History", "assessment_type": "Essay"},
			files:  map[string][]string{"submissions": {"s.pdf"}},
		},
		{
			name:   "no submissions",
			fields: map[string]string{"subject": "History", "assessment_type": "Essay"},
			files:  map[string][]string{"assignment": {"a.pdf"}},
		},
		{
			name:   "non pdf submission",
			fields: map[string]string{"subject": "History", "assessment_type": "Essay"},
			files:  map[string][]string{"assignment": {"a.pdf"}, "submissions": {"notes.txt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, createTaskRequest(t, tt.fields, tt.files))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	var count int64
	require.NoError(t, db.Model(&database.GradingTask{}).Count(&count).Error)
	assert.Zero(t, count, "rejected requests should not create tasks")
}

func TestCreateTaskRejectsOversizedFile(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("subject", "History"))
	require.NoError(t, writer.WriteField("assessment_type", "Essay"))
	addFile(t, writer, "assignment", "a.pdf", []byte("%PDF-1.4"))
	part, err := writer.CreateFormFile("submissions", "big.pdf")
	require.NoError(t, err)
	_, err = io.CopyN(part, zeroReader{}, 10*1024*1024+1)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/tasks", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "size limit")
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestGetTask(t *testing.T) {
	taskId := uuid.New()
	results := api.TaskResults{
		TaskId:          taskId,
		Subject:         "Science",
		AssessmentType:  "Lab Report",
		SubmissionCount: 1,
		IndividualResults: []api.GradingResult{
			{SubmissionId: 1, OverallScore: 88, Feedback: "Well reasoned."},
		},
		OverallStatistics: api.BatchStatistics{AverageScore: 88, HighestScore: 88, LowestScore: 88, TotalSubmissions: 1},
		Status:            api.TaskStatusCompleted,
		ProcessedAt:       time.Now().UTC(),
	}
	resultsJson, err := json.Marshal(results)
	require.NoError(t, err)

	db := createDB(t, &database.GradingTask{
		Id:              taskId,
		Subject:         "Science",
		AssessmentType:  "Lab Report",
		Status:          database.TaskCompleted,
		SubmissionCount: 1,
		CreationTime:    time.Now().UTC(),
		CompletionTime:  sql.NullTime{Time: time.Now().UTC(), Valid: true},
		Results:         datatypes.JSON(resultsJson),
	})
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+taskId.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response api.GradingTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, taskId, response.Id)
	assert.Equal(t, api.TaskStatusCompleted, response.Status)
	require.NotNil(t, response.Results)
	assert.Equal(t, 88, response.Results.IndividualResults[0].OverallScore)
	assert.NotNil(t, response.CompletionTime)
}

func TestGetTaskNotFound(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTasks(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	db := createDB(t,
		&database.GradingTask{Id: id1, Subject: "Math", AssessmentType: "Quiz", Status: database.TaskQueued, CreationTime: time.Now().UTC()},
		&database.GradingTask{Id: id2, Subject: "English", AssessmentType: "Essay", Status: database.TaskCompleted, CreationTime: time.Now().UTC().Add(time.Minute)},
	)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response []api.GradingTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 2)
	assert.Equal(t, id2, response[0].Id, "most recent task first")
	assert.Equal(t, api.TaskStatusProcessing, response[1].Status)

	req = httptest.NewRequest(http.MethodGet, "/tasks?status=completed", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, id2, response[0].Id)

	req = httptest.NewRequest(http.MethodGet, "/tasks?status=bogus", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	db := createDB(t)
	router := createRouter(t, db, messaging.NewInMemoryQueue())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
