package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"scorewise-backend/internal/database"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/storage"
	"scorewise-backend/pkg/api"
)

const (
	maxUploadBytes    = 10 * 1024 * 1024
	maxMultipartBytes = 256 * 1024 * 1024
)

type BackendService struct {
	db        *gorm.DB
	publisher messaging.Publisher
	storage   storage.ObjectStore
}

func NewBackendService(db *gorm.DB, publisher messaging.Publisher, store storage.ObjectStore) *BackendService {
	return &BackendService{db: db, publisher: publisher, storage: store}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateTask))
		r.Get("/", RestHandler(s.ListTasks))
		r.Get("/{task_id}", RestHandler(s.GetTask))
	})
}

func validateUpload(header *multipart.FileHeader, field string) error {
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return CodedErrorf(http.StatusBadRequest, "invalid file '%s' for %s: only PDF files are accepted", header.Filename, field)
	}
	if header.Size > maxUploadBytes {
		return CodedErrorf(http.StatusBadRequest, "file '%s' for %s exceeds the %dMB size limit", header.Filename, field, maxUploadBytes/(1024*1024))
	}
	return nil
}

func (s *BackendService) saveUpload(r *http.Request, header *multipart.FileHeader, key string) error {
	file, err := header.Open()
	if err != nil {
		return CodedErrorf(http.StatusInternalServerError, "error reading uploaded file '%s'", header.Filename)
	}
	defer file.Close()

	if err := s.storage.PutObject(r.Context(), key, file); err != nil {
		slog.Error("error saving uploaded file", "key", key, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error saving uploaded file '%s'", header.Filename)
	}
	return nil
}

// saveSingleUpload stores the lone file for an optional single-file field.
// It returns the storage key, or "" if the field was absent.
func (s *BackendService) saveSingleUpload(r *http.Request, field string, taskId uuid.UUID) (string, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return "", nil
	}
	if len(headers) > 1 {
		return "", CodedErrorf(http.StatusBadRequest, "expected a single file for %s, got %d", field, len(headers))
	}

	if err := validateUpload(headers[0], field); err != nil {
		return "", err
	}

	key := fmt.Sprintf("tasks/%s/%s.pdf", taskId, field)
	if err := s.saveUpload(r, headers[0], key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *BackendService) CreateTask(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		slog.Error("error parsing multipart form", "error", err)
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart request")
	}

	subject := r.FormValue("subject")
	assessmentType := r.FormValue("assessment_type")
	if subject == "" || assessmentType == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing required fields: subject, assessment_type")
	}

	submissions := r.MultipartForm.File["submissions"]
	if len(submissions) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "at least one submission file is required")
	}
	for _, header := range submissions {
		if err := validateUpload(header, "submissions"); err != nil {
			return nil, err
		}
	}

	taskId := uuid.New()

	assignmentKey, err := s.saveSingleUpload(r, "assignment", taskId)
	if err != nil {
		return nil, err
	}
	if assignmentKey == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "assignment file is required")
	}

	solutionKey, err := s.saveSingleUpload(r, "solution", taskId)
	if err != nil {
		return nil, err
	}
	rubricKey, err := s.saveSingleUpload(r, "rubric", taskId)
	if err != nil {
		return nil, err
	}

	task := database.GradingTask{
		Id:              taskId,
		Subject:         subject,
		AssessmentType:  assessmentType,
		Status:          database.TaskQueued,
		AssignmentPath:  nullString(assignmentKey),
		SolutionPath:    nullString(solutionKey),
		RubricPath:      nullString(rubricKey),
		SubmissionCount: len(submissions),
		CreationTime:    time.Now().UTC(),
	}

	for i, header := range submissions {
		key := fmt.Sprintf("tasks/%s/submissions/%d.pdf", taskId, i+1)
		if err := s.saveUpload(r, header, key); err != nil {
			return nil, err
		}
		task.Submissions = append(task.Submissions, database.Submission{
			TaskId:   taskId,
			Seq:      i + 1,
			FilePath: key,
		})
	}

	ctx := r.Context()

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		slog.Error("error creating grading task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create grading task")
	}

	if err := s.publisher.PublishGradingTask(ctx, messaging.GradingTaskPayload{TaskId: taskId}); err != nil {
		slog.Error("error publishing grading task", "task_id", taskId, "error", err)
		database.MarkTaskFailed(ctx, s.db, taskId, fmt.Errorf("failed to queue grading task"))
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue grading task")
	}

	slog.Info("submitted grading task", "task_id", taskId, "subject", subject, "submissions", len(submissions))
	return api.CreateTaskResponse{TaskId: taskId, Status: api.TaskStatusProcessing}, nil
}

type listTasksQuery struct {
	Status string `schema:"status"`
}

func (s *BackendService) ListTasks(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[listTasksQuery](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	query := s.db.WithContext(ctx).Order("creation_time DESC")
	switch params.Status {
	case "":
	case api.TaskStatusProcessing:
		query = query.Where("status IN ?", []string{database.TaskQueued, database.TaskRunning})
	case api.TaskStatusCompleted:
		query = query.Where("status = ?", database.TaskCompleted)
	case api.TaskStatusError:
		query = query.Where("status = ?", database.TaskFailed)
	default:
		return nil, CodedErrorf(http.StatusBadRequest, "invalid status filter '%s'", params.Status)
	}

	var tasks []database.GradingTask
	if err := query.Find(&tasks).Error; err != nil {
		slog.Error("error listing grading tasks", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving grading tasks")
	}

	return convertGradingTasks(tasks)
}

func (s *BackendService) GetTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var task database.GradingTask
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "grading task not found")
		}
		slog.Error("error getting grading task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving grading task")
	}

	return convertGradingTask(task)
}
