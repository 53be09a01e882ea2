package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "movie-dq-pipeline/docs"
	"movie-dq-pipeline/internal/api/handler"
	"movie-dq-pipeline/pkg/router"
)

// RegisterRoutes mounts the job API under /api/v1 and the swagger UI
func RegisterRoutes(r *router.Router, h *handler.PipelineHandler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", h.ValidateLine)

		r.Route("/pipelines", func(r chi.Router) {
			r.Post("/", h.CreatePipeline)
			r.Get("/", h.ListPipelines)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPipeline)
				r.Get("/errors", h.GetPipelineErrors)
				r.Get("/metrics", h.GetPipelineMetrics)
				r.Get("/summary", h.GetPipelineSummary)
				r.Get("/rejects", h.GetPipelineRejects)
				r.Get("/records", h.GetPipelineRecords)
				r.Post("/retry", h.RetryPipeline)
				r.Patch("/cancel", h.CancelPipeline)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
