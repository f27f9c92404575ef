package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API handlers into a chi router with tracing and
// metrics middleware, plus the operational endpoints.
func NewRouter(service DeploymentService) http.Handler {
	surveyHandler := NewSurveyHandler(service)
	taskHandler := NewTaskHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(TraceMiddleware)
	r.Use(MetricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/surveys/{surveyID}/deploy", surveyHandler.Deploy)
		r.Get("/surveys/{surveyID}/task", surveyHandler.ActiveTask)
		r.Get("/tasks/{taskID}", taskHandler.GetTask)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
