package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"movie-dq-pipeline/internal/jobs"
	"movie-dq-pipeline/internal/logging"
	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/pipeline"
	"movie-dq-pipeline/internal/store"
	"movie-dq-pipeline/pkg/utils"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// PipelineHandler serves the pipeline job API
type PipelineHandler struct {
	Jobs  *jobs.Manager
	Store *store.Store
}

// New creates a handler
func New(manager *jobs.Manager, st *store.Store) *PipelineHandler {
	return &PipelineHandler{Jobs: manager, Store: st}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreatePipeline creates a new data pipeline job
// @Summary Create a new pipeline
// @Description Validate and start a movie data-quality job with the provided configuration
// @Tags pipelines
// @Accept json
// @Produce json
// @Param pipeline body model.PipelineJobSpec true "Pipeline configuration"
// @Success 202 {object} map[string]interface{} "Pipeline created successfully"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pipelines [post]
func (h *PipelineHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var job model.PipelineJobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	jobID, err := h.Jobs.Submit(r.Context(), job)
	if errors.Is(err, jobs.ErrInvalidSpec) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to submit job", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save job")
		return
	}

	logging.WithFields(r.Context(), "job_id", jobID).Info("job submitted", "sources", len(job.Sources))
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "Pipeline created successfully!",
		"jobID":     jobID,
		"status":    model.StatusPending,
		"createdAt": time.Now().UTC(),
	})
}

// ListPipelines retrieves all pipeline jobs
// @Summary List all pipelines
// @Description Get a list of all pipeline jobs with their current status
// @Tags pipelines
// @Produce json
// @Success 200 {array} store.JobSummary "List of pipelines"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pipelines [get]
func (h *PipelineHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch pipelines")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPipeline retrieves a specific pipeline job
// @Summary Get pipeline
// @Description Retrieve details of a specific pipeline job
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} store.Job "Pipeline details"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Router /pipelines/{id} [get]
func (h *PipelineHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	job, err := h.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "Failed to fetch job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetPipelineErrors retrieves errors for a pipeline
// @Summary Get pipeline errors
// @Description Retrieve all job-level errors that occurred during pipeline execution
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{} "Pipeline errors"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pipelines/{id}/errors [get]
func (h *PipelineHandler) GetPipelineErrors(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := h.Store.GetJob(r.Context(), jobID); err != nil {
		h.storeError(w, r, err, "Failed to fetch job")
		return
	}

	errs, err := h.Store.GetJobErrors(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve errors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"errors": errs,
		"count":  len(errs),
	})
}

// GetPipelineMetrics retrieves run metrics and stage progress
// @Summary Get pipeline metrics
// @Description Retrieve record counters of the last finished run and the progress of each stage
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{} "Pipeline metrics"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Router /pipelines/{id}/metrics [get]
func (h *PipelineHandler) GetPipelineMetrics(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := h.Store.GetJob(r.Context(), jobID)
	if err != nil {
		h.storeError(w, r, err, "Failed to fetch job")
		return
	}

	stages, err := h.Store.GetStageProgress(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve progress")
		return
	}

	metrics, err := h.Store.GetMetrics(r.Context(), jobID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"status":  job.Status,
		"metrics": metrics,
		"stages":  stages,
	})
}

// GetPipelineSummary retrieves the data quality report of a pipeline
// @Summary Get pipeline summary
// @Description Retrieve the rule violation histogram, valid records per year and mean rating of the last finished run
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{} "Quality report"
// @Failure 404 {object} ErrorResponse "Pipeline or report not found"
// @Router /pipelines/{id}/summary [get]
func (h *PipelineHandler) GetPipelineSummary(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := h.Store.GetJob(r.Context(), jobID)
	if err != nil {
		h.storeError(w, r, err, "Failed to fetch job")
		return
	}

	report, err := h.Store.GetReport(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Summary not available until the job finishes")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":     jobID,
		"status":     job.Status,
		"report":     report,
		"violations": pipeline.SortViolations(*report),
	})
}

// GetPipelineRejects retrieves rejected records
// @Summary Get rejected records
// @Description Read the first records of the job's rejects file (one JSON object per line)
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Param limit query int false "Maximum records to return (default 100)"
// @Success 200 {object} map[string]interface{} "Rejected records"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pipelines/{id}/rejects [get]
func (h *PipelineHandler) GetPipelineRejects(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultLimit, maxLimit)

	rejects, err := h.Jobs.Rejects(r.Context(), jobID, limit)
	if err != nil {
		h.storeError(w, r, err, "Failed to retrieve rejected records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"records": rejects,
		"count":   len(rejects),
		"limit":   limit,
	})
}

// GetPipelineRecords retrieves transformed records
// @Summary Get valid records
// @Description Read the first rows of the job's valid table
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Param limit query int false "Maximum rows to return (default 100)"
// @Success 200 {object} map[string]interface{} "Transformed records"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pipelines/{id}/records [get]
func (h *PipelineHandler) GetPipelineRecords(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), defaultLimit, maxLimit)

	records, err := h.Jobs.Records(r.Context(), jobID, limit)
	if err != nil {
		h.storeError(w, r, err, "Failed to retrieve records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"records": records,
		"count":   len(records),
		"limit":   limit,
	})
}

// RetryPipeline retries a failed or completed pipeline job
// @Summary Retry pipeline
// @Description Re-run a pipeline job with the same configuration
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 202 {object} map[string]interface{} "Retry initiated"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Failure 409 {object} ErrorResponse "Pipeline still running"
// @Router /pipelines/{id}/retry [post]
func (h *PipelineHandler) RetryPipeline(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	err := h.Jobs.Retry(r.Context(), jobID)
	if errors.Is(err, jobs.ErrRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.storeError(w, r, err, "Failed to retry job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Retry initiated",
		"job_id":  jobID,
		"status":  model.StatusPending,
	})
}

// CancelPipeline cancels a running pipeline job
// @Summary Cancel pipeline
// @Description Cancel a running pipeline job
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} map[string]interface{} "Pipeline cancelled"
// @Failure 400 {object} ErrorResponse "Pipeline already finished"
// @Failure 404 {object} ErrorResponse "Pipeline not found"
// @Router /pipelines/{id}/cancel [patch]
func (h *PipelineHandler) CancelPipeline(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	err := h.Jobs.Cancel(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotCancellable) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.storeError(w, r, err, "Failed to cancel job")
		return
	}

	logging.WithFields(r.Context(), "job_id", jobID).Info("pipeline cancelled by user")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Pipeline cancellation requested",
		"job_id":  jobID,
		"status":  model.StatusCancelled,
	})
}

// ValidateRequest is the body of POST /validate
type ValidateRequest struct {
	Line string `json:"line"`
}

// ValidateResponse describes what the pipeline does with one line
type ValidateResponse struct {
	Outcome     string                   `json:"outcome"`
	Record      model.RawRecord          `json:"record"`
	Transformed *model.TransformedRecord `json:"transformed,omitempty"`
	Errors      []string                 `json:"errors,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// ValidateLine runs one CSV line through parse, evaluate and transform
// @Summary Validate a line
// @Description Run a single CSV line through the quality rules and the schema transformation without storing anything
// @Tags quality
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "CSV line"
// @Success 200 {object} ValidateResponse "Outcome"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Router /validate [post]
func (h *PipelineHandler) ValidateLine(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	out := pipeline.Process(req.Line, pipeline.SlogDiagnostics{Logger: logging.FromContext(r.Context())})

	resp := ValidateResponse{
		Outcome:     out.Kind.String(),
		Record:      out.Record,
		Transformed: out.Transformed,
	}
	if out.Rejected != nil {
		resp.Errors = out.Rejected.Messages()
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// storeError maps store and manager errors to responses
func (h *PipelineHandler) storeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	logging.FromContext(r.Context()).Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
