package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/taskreg"
)

// DeploymentService is the orchestration surface the handlers consume.
type DeploymentService interface {
	// Deploy registers (or dedups) a deployment task and runs new ones
	// in the background.
	Deploy(ctx context.Context, survey domain.Survey, audience []domain.Respondent) (taskreg.Task, bool, error)

	// TaskProgress returns a snapshot of the task with the given ID.
	TaskProgress(taskID string) (taskreg.Task, error)

	// ActiveTask returns the active deployment task for a survey.
	ActiveTask(surveyID string) (taskreg.Task, error)
}

// SurveyHandler handles survey deployment HTTP requests.
type SurveyHandler struct {
	service   DeploymentService
	validator *validator.Validate
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(service DeploymentService) *SurveyHandler {
	return &SurveyHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Deploy handles POST /api/surveys/{surveyID}/deploy requests. It
// responds 202 Accepted with the task to poll; an equivalent duplicate
// submission returns the already-running task with is_new_task=false.
func (h *SurveyHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "surveyID")
	if surveyID == "" {
		RespondWithError(w, r, http.StatusBadRequest, "Survey ID is required", nil)
		return
	}

	var req DeployRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error(), err)
		return
	}

	survey, audience, err := deployRequestToDomain(surveyID, req)
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid survey: "+err.Error(), err)
		return
	}

	task, isNew, err := h.service.Deploy(r.Context(), *survey, audience)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			RespondWithError(w, r, http.StatusBadRequest, "Invalid survey: "+err.Error(), err)
			return
		}

		if errors.Is(err, taskreg.ErrParamsConflict) {
			// The key has a run in flight with different parameters;
			// the caller must wait for it or poll it.
			RespondWithError(w, r, http.StatusConflict,
				"A deployment with different parameters is already running for this survey", err)
			return
		}

		slog.Error("failed to deploy survey", "error", err, "survey_id", surveyID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to deploy survey", err)
		return
	}

	RespondWithJSON(w, r, http.StatusAccepted, taskToDeployResponse(task, isNew))
}

// ActiveTask handles GET /api/surveys/{surveyID}/task requests,
// returning the progress of the survey's active deployment.
func (h *SurveyHandler) ActiveTask(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "surveyID")
	if surveyID == "" {
		RespondWithError(w, r, http.StatusBadRequest, "Survey ID is required", nil)
		return
	}

	task, err := h.service.ActiveTask(surveyID)
	if err != nil {
		if errors.Is(err, taskreg.ErrTaskNotFound) {
			RespondWithError(w, r, http.StatusNotFound, "No active task for survey", err)
			return
		}

		slog.Error("failed to look up active task", "error", err, "survey_id", surveyID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to look up active task", err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToProgressResponse(task))
}

// deployRequestToDomain converts the request payload into domain
// objects, validating them on the way.
func deployRequestToDomain(surveyID string, req DeployRequest) (*domain.Survey, []domain.Respondent, error) {
	questions := make([]domain.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, domain.Question{ID: q.ID, Text: q.Text})
	}

	survey, err := domain.NewSurvey(surveyID, req.Title, questions)
	if err != nil {
		return nil, nil, err
	}

	audience := make([]domain.Respondent, 0, len(req.Audience))
	for _, member := range req.Audience {
		audience = append(audience, domain.Respondent{
			ID:      member.ID,
			Name:    member.Name,
			Persona: member.Persona,
		})
	}

	return survey, audience, nil
}
