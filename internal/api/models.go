package api

import (
	"time"

	"github.com/phrazzld/cohort-api/internal/taskreg"
)

// QuestionRequest is one questionnaire item in a deploy request.
type QuestionRequest struct {
	ID   string `json:"id"   validate:"required"`
	Text string `json:"text" validate:"required"`
}

// RespondentRequest is one audience member in a deploy request.
type RespondentRequest struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

// DeployRequest defines the payload for the survey deployment endpoint.
type DeployRequest struct {
	Title     string              `json:"title"     validate:"required,min=1"`
	Questions []QuestionRequest   `json:"questions" validate:"required,min=1,dive"`
	Audience  []RespondentRequest `json:"audience"  validate:"required,min=1,dive"`
}

// DeployResponse defines the response for an accepted deployment.
type DeployResponse struct {
	TaskID      string `json:"task_id"`
	IsNewTask   bool   `json:"is_new_task"`
	Status      string `json:"status"`
	TotalCount  int    `json:"total_count"`
	ProgressURL string `json:"progress_url"`
}

// UnitResultResponse is one recorded unit outcome in a progress payload.
type UnitResultResponse struct {
	UnitID     string    `json:"unit_id"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TaskProgressResponse is the polling payload for a task.
type TaskProgressResponse struct {
	TaskID             string               `json:"task_id"`
	TaskKey            string               `json:"task_key"`
	Status             string               `json:"status"`
	TotalCount         int                  `json:"total_count"`
	CompletedCount     int                  `json:"completed_count"`
	SuccessCount       int                  `json:"success_count"`
	FailedCount        int                  `json:"failed_count"`
	ProgressPercentage float64              `json:"progress_percentage"`
	ElapsedSeconds     float64              `json:"elapsed_seconds"`
	ErrorMessage       string               `json:"error_message,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	Results            []UnitResultResponse `json:"results"`
}

// taskToProgressResponse converts a task snapshot to its polling payload.
func taskToProgressResponse(task taskreg.Task) TaskProgressResponse {
	results := make([]UnitResultResponse, 0, len(task.Results))
	for _, result := range task.Results {
		results = append(results, UnitResultResponse{
			UnitID:     result.UnitID,
			Success:    result.Success,
			Data:       result.Data,
			Error:      result.Error,
			RecordedAt: result.RecordedAt,
		})
	}

	return TaskProgressResponse{
		TaskID:             task.ID,
		TaskKey:            task.Key,
		Status:             string(task.Status),
		TotalCount:         task.TotalCount,
		CompletedCount:     task.CompletedCount,
		SuccessCount:       task.SuccessCount,
		FailedCount:        task.FailedCount,
		ProgressPercentage: task.ProgressPercentage(),
		ElapsedSeconds:     task.ElapsedSeconds(),
		ErrorMessage:       task.ErrorMessage,
		CreatedAt:          task.CreatedAt,
		StartedAt:          task.StartedAt,
		CompletedAt:        task.CompletedAt,
		Results:            results,
	}
}

// taskToDeployResponse converts a task snapshot to the deployment
// acceptance payload.
func taskToDeployResponse(task taskreg.Task, isNew bool) DeployResponse {
	return DeployResponse{
		TaskID:      task.ID,
		IsNewTask:   isNew,
		Status:      string(task.Status),
		TotalCount:  task.TotalCount,
		ProgressURL: "/api/tasks/" + task.ID,
	}
}
